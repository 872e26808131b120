// Package archive unpacks gzip-compressed tar archives into staging.
// Extraction is atomic: content lands in a temporary directory that is
// renamed into place only after the whole archive was read cleanly, so
// a present extracted tree is never half-written.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/validator"
)

// spaceFactor is the assumed worst-case expansion of a gzip member
// relative to the archive size, used for the free-space precheck.
const spaceFactor = 3

// TarGzExtractor implements ports.Extractor for .tar.gz archives.
type TarGzExtractor struct {
	logger logx.Logger

	// diskFree is swappable in tests
	diskFree func(dir string) (uint64, error)
}

// NewTarGz creates the tar.gz extractor.
func NewTarGz(logger logx.Logger) *TarGzExtractor {
	if logger == nil {
		logger = logx.New()
	}
	return &TarGzExtractor{
		logger:   logger.With("component", "extractor"),
		diskFree: diskFree,
	}
}

// Extract unpacks desc.ArchivePath under desc.StagingDir and returns
// the absolute extracted subtree path. Skips work when the expected
// subtree already exists.
func (e *TarGzExtractor) Extract(ctx context.Context, desc domain.Resolved) (string, error) {
	if info, err := os.Stat(desc.ExtractedPath); err == nil && info.IsDir() {
		e.logger.Info("already extracted, skipping", "id", desc.ID, "path", desc.ExtractedPath)
		return desc.ExtractedPath, nil
	}

	archiveInfo, err := os.Stat(desc.ArchivePath)
	if err != nil {
		return "", fmt.Errorf("archive missing: %w", err)
	}

	if err := e.checkSpace(desc.StagingDir, archiveInfo.Size()); err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(desc.StagingDir, ".extract-*")
	if err != nil {
		return "", fmt.Errorf("cannot create extraction dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := e.unpack(ctx, desc.ArchivePath, tmpDir); err != nil {
		return "", err
	}

	// The expected subtree must have come out of the archive.
	rel := filepath.FromSlash(validator.NormalizeRelPath(desc.ExtractedSubpath))
	tmpExtracted := filepath.Join(tmpDir, rel)
	if info, statErr := os.Stat(tmpExtracted); statErr != nil || !info.IsDir() {
		return "", errors.Wrapf(errors.ErrCorruptArchive,
			"%s: expected subtree %q not produced by extraction", desc.ID, desc.ExtractedSubpath)
	}

	// Rename the subtree's top-level entry into staging in one step.
	top := topComponent(rel)
	finalTop := filepath.Join(desc.StagingDir, top)
	if err := os.RemoveAll(finalTop); err != nil {
		return "", fmt.Errorf("cannot clear stale staging entry: %w", err)
	}
	if err := os.Rename(filepath.Join(tmpDir, top), finalTop); err != nil {
		return "", fmt.Errorf("cannot promote extracted tree: %w", err)
	}

	e.logger.Info("archive extracted", "id", desc.ID, "path", desc.ExtractedPath)
	return desc.ExtractedPath, nil
}

// unpack streams the tar.gz into destDir, entry by entry, checking
// cancellation between entries and rejecting unsafe paths.
func (e *TarGzExtractor) unpack(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrapf(errors.ErrCorruptArchive, "bad gzip stream: %v", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(errors.ErrCorruptArchive, "bad tar header: %v", err)
		}

		if !validator.IsSafeRelPath(header.Name) {
			return errors.Wrapf(errors.ErrCorruptArchive, "unsafe entry path %q", header.Name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(header.Name))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}

			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}

			_, copyErr := io.Copy(outFile, tarReader)
			closeErr := outFile.Close()
			if copyErr != nil {
				if isNoSpace(copyErr) {
					return errors.Wrapf(errors.ErrDiskSpace, "while writing %s", header.Name)
				}
				return errors.Wrapf(errors.ErrCorruptArchive, "truncated entry %q: %v", header.Name, copyErr)
			}
			if closeErr != nil {
				return fmt.Errorf("failed to close file: %w", closeErr)
			}

		default:
			// Symlinks and specials are not part of corpus archives.
			e.logger.Warn("skipping unsupported tar entry",
				"name", header.Name,
				"type", header.Typeflag,
			)
		}
	}
}

// checkSpace fails fast when the staging volume cannot hold the
// expanded archive.
func (e *TarGzExtractor) checkSpace(stagingDir string, archiveSize int64) error {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("cannot create staging dir: %w", err)
	}

	free, err := e.diskFree(stagingDir)
	if err != nil {
		// Precheck is advisory; extraction itself still detects ENOSPC.
		e.logger.Warn("cannot query free space", "dir", stagingDir, "error", err.Error())
		return nil
	}

	required := uint64(archiveSize) * spaceFactor
	if free < required {
		return errors.Wrapf(errors.ErrDiskSpace,
			"need ~%d bytes in %s, %d available", required, stagingDir, free)
	}
	return nil
}

// diskFree returns the bytes available to this process on the volume.
func diskFree(dir string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// isNoSpace detects ENOSPC anywhere in the chain.
func isNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || strings.Contains(err.Error(), "no space left")
}

// topComponent returns the first path component of a relative path.
func topComponent(rel string) string {
	rel = filepath.ToSlash(rel)
	if idx := strings.Index(rel, "/"); idx > 0 {
		return rel[:idx]
	}
	return rel
}
