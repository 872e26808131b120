// Package relocate moves extracted subtrees from staging into the
// canonical dataset layout. Moves are rename-based when source and
// target share a volume; otherwise the tree is copied into a temporary
// sibling of the target and renamed into place, so an interrupted move
// never leaves a half-populated entry under the target parent.
package relocate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
)

// Mover implements ports.Relocator.
type Mover struct {
	logger logx.Logger

	// copyWorkers bounds the parallel file copies of the cross-volume
	// fallback
	copyWorkers int
}

// NewMover creates the relocator.
func NewMover(logger logx.Logger) *Mover {
	if logger == nil {
		logger = logx.New()
	}
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Mover{
		logger:      logger.With("component", "relocator"),
		copyWorkers: workers,
	}
}

// Relocate moves desc.ExtractedPath to desc.FinalPath and removes the
// descriptor's staging residue. Collisions fail unless force is set, in
// which case colliding entries are overwritten during the merge.
func (m *Mover) Relocate(ctx context.Context, desc domain.Resolved, force bool) error {
	srcInfo, srcErr := os.Stat(desc.ExtractedPath)
	_, dstErr := os.Stat(desc.FinalPath)
	dstExists := dstErr == nil

	if srcErr != nil {
		if os.IsNotExist(srcErr) && dstExists {
			// Already relocated by a previous run; only residue remains.
			m.logger.Info("already relocated, cleaning staging", "id", desc.ID)
			return m.removeStaging(desc)
		}
		return fmt.Errorf("extracted tree missing: %w", srcErr)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("extracted path %s is not a directory", desc.ExtractedPath)
	}

	if err := os.MkdirAll(desc.TargetParentDir, 0o755); err != nil {
		return fmt.Errorf("cannot create target parent: %w", err)
	}

	switch {
	case !dstExists:
		if err := m.move(ctx, desc.ExtractedPath, desc.FinalPath); err != nil {
			return err
		}
	case force:
		m.logger.Warn("force merge into existing target", "id", desc.ID, "target", desc.FinalPath)
		if err := m.mergeMove(ctx, desc.ExtractedPath, desc.FinalPath); err != nil {
			return err
		}
	default:
		// Leave both the pre-existing entry and the staging tree intact.
		return errors.Wrapf(errors.ErrCollision,
			"%s already exists; pass force to merge", desc.FinalPath)
	}

	if err := m.removeStaging(desc); err != nil {
		return err
	}

	m.logger.Info("subtree relocated", "id", desc.ID, "path", desc.FinalPath)
	return nil
}

// move renames src to dst, falling back to copy-to-temp-then-rename
// when they live on different volumes.
func (m *Mover) move(ctx context.Context, src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("cannot move %s: %w", src, err)
	}

	m.logger.Debug("cross-volume move, copying", "src", src, "dst", dst)

	tmp := filepath.Join(filepath.Dir(dst), ".corpusx-move-"+filepath.Base(dst))
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("cannot clear move scratch: %w", err)
	}
	if err := m.copyTree(ctx, src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("cannot finalize move: %w", err)
	}
	return os.RemoveAll(src)
}

// mergeMove merges src into the existing dst, overwriting collisions.
// Directories merge recursively; everything else is replaced.
func (m *Mover) mergeMove(ctx context.Context, src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", src, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		dstInfo, statErr := os.Stat(dstPath)
		switch {
		case os.IsNotExist(statErr):
			if err := m.move(ctx, srcPath, dstPath); err != nil {
				return err
			}
		case statErr != nil:
			return fmt.Errorf("cannot stat %s: %w", dstPath, statErr)
		case entry.IsDir() && dstInfo.IsDir():
			if err := m.mergeMove(ctx, srcPath, dstPath); err != nil {
				return err
			}
		default:
			if err := os.RemoveAll(dstPath); err != nil {
				return fmt.Errorf("cannot replace %s: %w", dstPath, err)
			}
			if err := m.move(ctx, srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return os.RemoveAll(src)
}

// copyTree replicates a directory tree. Directories are created first,
// then file contents are copied on a bounded errgroup.
func (m *Mover) copyTree(ctx context.Context, src, dst string) error {
	type filePair struct {
		src, dst string
		mode     os.FileMode
	}
	var files []filePair

	err := filepath.Walk(src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode()&0o777)
		}
		files = append(files, filePair{src: path, dst: target, mode: info.Mode() & 0o777})
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot scan %s: %w", src, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.copyWorkers)

	for _, pair := range files {
		pair := pair
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return copyFile(pair.src, pair.dst, pair.mode)
		})
	}
	return group.Wait()
}

// removeStaging deletes the descriptor's staging directory tree.
func (m *Mover) removeStaging(desc domain.Resolved) error {
	if err := os.RemoveAll(desc.StagingDir); err != nil {
		return fmt.Errorf("cannot remove staging residue: %w", err)
	}
	return nil
}

// copyFile copies a single file preserving its mode.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// isCrossDevice detects EXDEV from a rename.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
