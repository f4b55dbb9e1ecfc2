package constraints

import (
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

// Partition splits the tangent space into free variables and the outputs
// of explicit constraints. It is immutable.
type Partition struct {
	nv   int
	free []int
}

// NewPartition returns the partition of an nv-dimensional tangent space
// where the locked segments are removed from the unknowns.
func NewPartition(nv int, locked ...liegroup.Segment) *Partition {
	isLocked := make([]bool, nv)
	for _, s := range locked {
		for i := s.Start; i < s.End(); i++ {
			isLocked[i] = true
		}
	}
	p := &Partition{nv: nv}
	for i, l := range isLocked {
		if !l {
			p.free = append(p.free, i)
		}
	}
	return p
}

// TangentSize is the size of a full tangent vector.
func (p *Partition) TangentSize() int { return p.nv }

// NumberFreeVariables is the size of a compressed vector.
func (p *Partition) NumberFreeVariables() int { return len(p.free) }

// FreeIndices returns the tangent indices of the free variables.
func (p *Partition) FreeIndices() []int { return append([]int(nil), p.free...) }

// CompressVector keeps the free entries of a full tangent vector.
func (p *Partition) CompressVector(normal []float64) []float64 {
	small := make([]float64, len(p.free))
	for k, i := range p.free {
		small[k] = normal[i]
	}
	return small
}

// UncompressVector writes small into the free entries of normal. The other
// entries of normal are left untouched.
func (p *Partition) UncompressVector(small, normal []float64) {
	for k, i := range p.free {
		normal[i] = small[k]
	}
}

// CompressMatrix drops the locked columns of m. When rows is true the
// locked rows are dropped too, which suits square tangent-space operators.
// It returns nil when the result would be empty.
func (p *Partition) CompressMatrix(m mat.Matrix, rows bool) *mat.Dense {
	r, _ := m.Dims()
	rowIdx := identity(r)
	if rows {
		rowIdx = p.free
	}
	if len(rowIdx) == 0 || len(p.free) == 0 {
		return nil
	}
	out := mat.NewDense(len(rowIdx), len(p.free), nil)
	for a, i := range rowIdx {
		for b, j := range p.free {
			out.Set(a, b, m.At(i, j))
		}
	}
	return out
}

// UncompressMatrix writes small into the free columns (and rows, when rows
// is true) of normal.
func (p *Partition) UncompressMatrix(small mat.Matrix, normal *mat.Dense, rows bool) {
	r, _ := normal.Dims()
	rowIdx := identity(r)
	if rows {
		rowIdx = p.free
	}
	for a, i := range rowIdx {
		for b, j := range p.free {
			normal.Set(i, j, small.At(a, b))
		}
	}
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
