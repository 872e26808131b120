// internal/platform/logx/logx_test.go
package logx

import (
	"bytes"
	"errors"
	"testing"

	"corpusx/internal/testutil"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelWarn)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible", "key", "value")

	out := buf.String()
	testutil.AssertFalse(t, bytes.Contains(buf.Bytes(), []byte("hidden")), "below-level suppressed")
	testutil.AssertContains(t, out, "WRN", "warn tag")
	testutil.AssertContains(t, out, "key=value", "kv pair")
}

func TestWithScope(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelInfo).With("component", "fetcher")

	l.Info("archive cached", "id", "dev-clean")

	out := buf.String()
	testutil.AssertContains(t, out, "component=fetcher", "scoped field")
	testutil.AssertContains(t, out, "id=dev-clean", "call field")
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelError)

	l.Err(nil)
	testutil.AssertEqual(t, buf.Len(), 0, "nil error is a no-op")

	l.Err(errors.New("boom"), "id", "dev-clean")
	out := buf.String()
	testutil.AssertContains(t, out, "ERR", "error tag")
	testutil.AssertContains(t, out, "error=boom", "error field")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		testutil.AssertEqual(t, ParseLevel(in), want, in)
	}
}
