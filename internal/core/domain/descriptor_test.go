// internal/core/domain/descriptor_test.go
package domain

import (
	"errors"
	"path/filepath"
	"testing"

	"corpusx/internal/testutil"
)

func validDescriptor() Descriptor {
	return Descriptor{
		ID:               "dev-clean",
		URL:              "https://example.org/resources/dev_clean.tar.gz",
		MD5:              "2c1f5312914890634cc2d15783032ff3",
		ExtractedSubpath: "LibriTTS_R/dev-clean",
		TargetParent:     "LibriTTS_R",
	}
}

func TestDescriptorValidate(t *testing.T) {
	t.Run("valid descriptor passes", func(t *testing.T) {
		d := validDescriptor()
		testutil.AssertNoError(t, d.Validate(), "validate")
	})

	t.Run("empty id", func(t *testing.T) {
		d := validDescriptor()
		d.ID = "  "
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrEmptyDescriptorID), "empty id sentinel")
	})

	t.Run("id with path separators", func(t *testing.T) {
		d := validDescriptor()
		d.ID = "../evil"
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrInvalidID), "invalid id sentinel")
	})

	t.Run("empty url", func(t *testing.T) {
		d := validDescriptor()
		d.URL = ""
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrEmptyDescriptorURL), "empty url sentinel")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		d := validDescriptor()
		d.URL = "ftp://example.org/data.tar.gz"
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrInvalidURL), "invalid url sentinel")
	})

	t.Run("gs urls are accepted", func(t *testing.T) {
		d := validDescriptor()
		d.URL = "gs://corpus-bucket/libritts/dev_clean.tar.gz"
		testutil.AssertNoError(t, d.Validate(), "gs url")
	})

	t.Run("traversal in subpath", func(t *testing.T) {
		d := validDescriptor()
		d.ExtractedSubpath = "../outside"
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrInvalidSubpath), "subpath sentinel")
	})

	t.Run("absolute target parent", func(t *testing.T) {
		d := validDescriptor()
		d.TargetParent = "/etc"
		testutil.AssertTrue(t, errors.Is(d.Validate(), ErrInvalidTarget), "target sentinel")
	})
}

func TestDescriptorResolve(t *testing.T) {
	root := t.TempDir()

	t.Run("anchors every path under the root", func(t *testing.T) {
		d := validDescriptor()
		res, err := d.Resolve(root)
		testutil.AssertNoError(t, err, "resolve")

		wantStaging := filepath.Join(root, ".corpusx", "staging", "dev-clean")
		testutil.AssertEqual(t, res.StagingDir, wantStaging, "staging dir")
		testutil.AssertEqual(t, res.ArchivePath, filepath.Join(wantStaging, "dev_clean.tar.gz"), "archive path")
		testutil.AssertEqual(t, res.ExtractedPath, filepath.Join(wantStaging, "LibriTTS_R", "dev-clean"), "extracted path")
		testutil.AssertEqual(t, res.TargetParentDir, filepath.Join(root, "LibriTTS_R"), "target parent")
		testutil.AssertEqual(t, res.FinalPath, filepath.Join(root, "LibriTTS_R", "dev-clean"), "final path")
	})

	t.Run("honors explicit archive name", func(t *testing.T) {
		d := validDescriptor()
		d.ArchiveName = "renamed.tar.gz"
		res, err := d.Resolve(root)
		testutil.AssertNoError(t, err, "resolve")
		testutil.AssertEqual(t, filepath.Base(res.ArchivePath), "renamed.tar.gz", "archive name")
	})

	t.Run("relative staging override resolves against root", func(t *testing.T) {
		d := validDescriptor()
		d.StagingDir = "tmp/work"
		res, err := d.Resolve(root)
		testutil.AssertNoError(t, err, "resolve")
		testutil.AssertEqual(t, res.StagingDir, filepath.Join(root, "tmp", "work"), "staging override")
	})

	t.Run("invalid descriptor does not resolve", func(t *testing.T) {
		d := validDescriptor()
		d.URL = ""
		_, err := d.Resolve(root)
		testutil.AssertError(t, err, "resolve invalid")
	})
}

func TestArchiveNameFromURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://example.org/res/141/dev_clean.tar.gz", "dev_clean.tar.gz"},
		{"https://example.org/", "archive.tar.gz"},
		{"https://example.org", "archive.tar.gz"},
		{"gs://bucket/path/train.tar.gz", "train.tar.gz"},
	}
	for _, tc := range cases {
		testutil.AssertEqual(t, archiveNameFromURL(tc.raw), tc.want, tc.raw)
	}
}

func TestValidateSet(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		testutil.AssertTrue(t, errors.Is(ValidateSet(nil), ErrNoDescriptors), "no descriptors sentinel")
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		a := validDescriptor()
		b := validDescriptor()
		err := ValidateSet([]Descriptor{a, b})
		testutil.AssertTrue(t, errors.Is(err, ErrDuplicateID), "duplicate sentinel")
	})

	t.Run("distinct valid descriptors pass", func(t *testing.T) {
		a := validDescriptor()
		b := validDescriptor()
		b.ID = "test-clean"
		testutil.AssertNoError(t, ValidateSet([]Descriptor{a, b}), "set")
	})
}
