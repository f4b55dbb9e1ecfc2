package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var epsilon = math.Nextafter(1, 2) - 1

// pseudoInverse returns the Moore-Penrose pseudo-inverse of a, its
// numerical rank and its smallest retained singular value. Singular values
// below max(m,n)*eps*sigma_max are treated as zero.
func pseudoInverse(a mat.Matrix) (*mat.Dense, int, float64) {
	m, n := a.Dims()
	pinv := mat.NewDense(n, m, nil)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return pinv, 0, 0
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return pinv, 0, 0
	}
	tol := float64(max(m, n)) * epsilon * values[0]

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rank := 0
	smallest := values[0]
	for i, s := range values {
		if s <= tol {
			v.ColView(i).(*mat.VecDense).ScaleVec(0, v.ColView(i))
			continue
		}
		rank++
		smallest = s
		col := v.ColView(i).(*mat.VecDense)
		col.ScaleVec(1/s, col)
	}
	pinv.Mul(&v, u.T())
	return pinv, rank, smallest
}

// KernelProjector returns I - pinv(J) J, the orthogonal projector on the
// kernel of J. A nil J has the identity as kernel projector of size n.
func KernelProjector(j *mat.Dense, n int) *mat.Dense {
	p := identity(n)
	if j == nil {
		return p
	}
	pinv, _, _ := pseudoInverse(j)
	var pj mat.Dense
	pj.Mul(pinv, j)
	p.Sub(p, &pj)
	return p
}

func identity(n int) *mat.Dense {
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		p.Set(i, i, 1)
	}
	return p
}
