// internal/platform/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"corpusx/internal/testutil"
)

func TestWrap(t *testing.T) {
	t.Run("nil passthrough", func(t *testing.T) {
		testutil.AssertTrue(t, Wrap(nil, "ctx") == nil, "wrap nil")
		testutil.AssertTrue(t, Wrapf(nil, "ctx %d", 1) == nil, "wrapf nil")
	})

	t.Run("message composition", func(t *testing.T) {
		err := Wrap(ErrNetwork, "GET archive")
		testutil.AssertEqual(t, err.Error(), "GET archive: network transfer failed", "message")
	})

	t.Run("sentinel survives wrapping layers", func(t *testing.T) {
		err := Wrapf(ErrCollision, "target %s", "/data/LibriTTS_R/dev-clean")
		err = fmt.Errorf("relocate: %w", err)
		testutil.AssertTrue(t, Is(err, ErrCollision), "sentinel match")
		testutil.AssertTrue(t, IsCollision(err), "classifier match")
	})

	t.Run("unwrap returns the cause", func(t *testing.T) {
		err := Wrap(ErrDiskSpace, "extracting")
		testutil.AssertTrue(t, Unwrap(err) == ErrDiskSpace, "unwrap")
	})
}

func TestClassifiers(t *testing.T) {
	cases := []struct {
		err      error
		classify func(error) bool
		name     string
	}{
		{Wrap(ErrNetwork, "x"), IsNetwork, "network"},
		{Wrap(ErrCorruptArchive, "x"), IsCorruptArchive, "corrupt archive"},
		{Wrap(ErrDiskSpace, "x"), IsDiskSpace, "disk space"},
		{Wrap(ErrCollision, "x"), IsCollision, "collision"},
		{Wrap(ErrStateCorrupt, "x"), IsStateCorrupt, "state corrupt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertTrue(t, tc.classify(tc.err), "classifies own sentinel")
			testutil.AssertFalse(t, tc.classify(New("unrelated")), "rejects unrelated")
		})
	}
}

func TestRetryable(t *testing.T) {
	testutil.AssertTrue(t, Retryable(Wrap(ErrNetwork, "timeout")), "network retries")
	testutil.AssertFalse(t, Retryable(Wrap(ErrCorruptArchive, "md5")), "corruption does not retry")
	testutil.AssertFalse(t, Retryable(Wrap(ErrDiskSpace, "full")), "disk space does not retry")
	testutil.AssertFalse(t, Retryable(nil), "nil does not retry")
}
