// internal/adapters/relocate/relocate_test.go
package relocate

import (
	"context"
	"path/filepath"
	"testing"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
	"corpusx/internal/testutil"
)

func testMover() *Mover {
	return NewMover(logx.NewSilent())
}

func resolveMove(t *testing.T, root string) domain.Resolved {
	t.Helper()
	d := domain.Descriptor{
		ID:               "dev-clean",
		URL:              "https://example.org/dev_clean.tar.gz",
		ExtractedSubpath: "LibriTTS_R/dev-clean",
		TargetParent:     "LibriTTS_R",
	}
	res, err := d.Resolve(root)
	testutil.AssertNoError(t, err, "resolve")
	return res
}

// stageExtracted simula el resultado de una extracción exitosa.
func stageExtracted(t *testing.T, desc domain.Resolved) {
	t.Helper()
	testutil.WriteFile(t, desc.ExtractedPath, "84/wav.txt", "transcript")
	testutil.WriteFile(t, desc.ExtractedPath, "84/audio.wav", "RIFF....")
	// Residuo adicional del staging: el archive descargado.
	testutil.WriteFile(t, desc.StagingDir, "dev_clean.tar.gz", "bytes")
}

func TestRelocate(t *testing.T) {
	t.Run("moves the subtree and cleans staging", func(t *testing.T) {
		desc := resolveMove(t, t.TempDir())
		stageExtracted(t, desc)

		err := testMover().Relocate(context.Background(), desc, false)
		testutil.AssertNoError(t, err, "relocate")

		testutil.FileExists(t, filepath.Join(desc.FinalPath, "84", "wav.txt"), "moved file")
		testutil.FileMissing(t, desc.StagingDir, "staging removed")
	})

	t.Run("collision fails by default and leaves both trees intact", func(t *testing.T) {
		desc := resolveMove(t, t.TempDir())
		stageExtracted(t, desc)
		testutil.WriteFile(t, desc.FinalPath, "84/wav.txt", "previous content")

		err := testMover().Relocate(context.Background(), desc, false)
		testutil.AssertTrue(t, errors.IsCollision(err), "collision taxonomy")

		testutil.AssertEqual(t,
			testutil.ReadFile(t, filepath.Join(desc.FinalPath, "84", "wav.txt")),
			"previous content", "target untouched")
		testutil.FileExists(t, filepath.Join(desc.ExtractedPath, "84", "wav.txt"), "staging intact")
	})

	t.Run("force merges and overwrites collisions", func(t *testing.T) {
		desc := resolveMove(t, t.TempDir())
		stageExtracted(t, desc)
		testutil.WriteFile(t, desc.FinalPath, "84/wav.txt", "stale")
		testutil.WriteFile(t, desc.FinalPath, "84/other.txt", "kept")
		testutil.WriteFile(t, desc.FinalPath, "unrelated.txt", "kept too")

		err := testMover().Relocate(context.Background(), desc, true)
		testutil.AssertNoError(t, err, "force relocate")

		testutil.AssertEqual(t,
			testutil.ReadFile(t, filepath.Join(desc.FinalPath, "84", "wav.txt")),
			"transcript", "collision overwritten")
		testutil.AssertEqual(t,
			testutil.ReadFile(t, filepath.Join(desc.FinalPath, "84", "other.txt")),
			"kept", "sibling preserved")
		testutil.AssertEqual(t,
			testutil.ReadFile(t, filepath.Join(desc.FinalPath, "unrelated.txt")),
			"kept too", "non-colliding entry preserved")
		testutil.FileMissing(t, desc.StagingDir, "staging removed")
	})

	t.Run("repeat after success only cleans residue", func(t *testing.T) {
		desc := resolveMove(t, t.TempDir())
		stageExtracted(t, desc)

		m := testMover()
		testutil.AssertNoError(t, m.Relocate(context.Background(), desc, false), "first")

		// Residuo nuevo sin subtree extraído: caso de una ejecución que
		// murió entre el move y la limpieza.
		testutil.WriteFile(t, desc.StagingDir, "leftover.tmp", "x")
		testutil.AssertNoError(t, m.Relocate(context.Background(), desc, false), "second")

		testutil.FileExists(t, filepath.Join(desc.FinalPath, "84", "wav.txt"), "target intact")
		testutil.FileMissing(t, desc.StagingDir, "residue removed")
	})

	t.Run("missing source without a target is an error", func(t *testing.T) {
		desc := resolveMove(t, t.TempDir())
		err := testMover().Relocate(context.Background(), desc, false)
		testutil.AssertError(t, err, "nothing to move")
	})
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	testutil.WriteFile(t, src, "a/b/deep.txt", "deep")
	testutil.WriteFile(t, src, "top.txt", "top")

	m := testMover()
	testutil.AssertNoError(t, m.copyTree(context.Background(), src, dst), "copy tree")

	testutil.AssertEqual(t, testutil.ReadFile(t, filepath.Join(dst, "a", "b", "deep.txt")), "deep", "nested")
	testutil.AssertEqual(t, testutil.ReadFile(t, filepath.Join(dst, "top.txt")), "top", "top level")
}
