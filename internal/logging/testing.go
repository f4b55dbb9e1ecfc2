package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry down to TraceLevel. Hand Underlying() to
// the projectors and assert on what they wrote.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns the entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Messages lists the messages logged at level, in order.
func (t *TestLogger) Messages(level zapcore.Level) []string {
	var msgs []string
	for _, e := range t.observed.FilterLevelExact(level).All() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged checks for an entry at level whose message contains
// msgContains.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if !t.logged(level, msgContains) {
		tb.Errorf("expected log at %s containing %q, got %q", LevelName(level), msgContains, t.Messages(level))
	}
}

func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if t.logged(level, msgContains) {
		tb.Errorf("unexpected log at %s containing %q", LevelName(level), msgContains)
	}
}

func (t *TestLogger) logged(level zapcore.Level, msgContains string) bool {
	for _, e := range t.observed.FilterLevelExact(level).All() {
		if strings.Contains(e.Message, msgContains) {
			return true
		}
	}
	return false
}

// AssertField checks that some entry with message msg has key equal to
// expected. Values compare as zap's ContextMap decodes them, so integers
// are int64 and floats float64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		if v, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(v, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

// AssertQueryID checks that msg was logged under queryID.
func (t *TestLogger) AssertQueryID(tb testing.TB, msg, queryID string) {
	tb.Helper()
	t.AssertField(tb, msg, "query.id", queryID)
}

// AssertTraceCorrelation checks that msg was logged inside a span.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		if _, ok := e.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("message %q missing trace_id", msg)
}
