// internal/core/domain/descriptor.go
package domain

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"corpusx/internal/platform/validator"
)

// Descriptor describes one remote corpus archive and where its content
// ends up inside the dataset tree. Immutable once resolved.
type Descriptor struct {
	// ID identifica el descriptor (único dentro de un manifest)
	ID string `yaml:"id"`

	// URL is the remote archive location (http://, https:// or gs://)
	URL string `yaml:"url"`

	// ArchiveName is the local filename for the downloaded archive.
	// Defaults to the basename of URL.
	ArchiveName string `yaml:"archive,omitempty"`

	// MD5 is the expected hex digest of the archive. Optional; when set,
	// a cached archive is only reused if the digest matches.
	MD5 string `yaml:"md5,omitempty"`

	// ExtractedSubpath is the directory the archive produces under the
	// staging dir, relative, possibly nested (wrapper directories that
	// archives in the wild tend to carry, e.g. "LibriTTS_R/dev-clean").
	ExtractedSubpath string `yaml:"extracted_subpath"`

	// TargetParent is the directory (relative to the dataset root) that
	// receives the extracted subpath as a child after relocation.
	TargetParent string `yaml:"target_parent"`

	// StagingDir overrides the per-descriptor staging location. Optional;
	// resolved against the dataset root when empty.
	StagingDir string `yaml:"staging_dir,omitempty"`
}

// Validate verifica que el descriptor sea consistente antes de ejecutarlo.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyDescriptorID
	}
	if !validator.IsIdent(d.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, d.ID)
	}
	if strings.TrimSpace(d.URL) == "" {
		return ErrEmptyDescriptorURL
	}
	if !validator.IsFetchURL(d.URL) {
		return fmt.Errorf("%w: %s", ErrInvalidURL, d.URL)
	}
	if d.ExtractedSubpath == "" || !validator.IsSafeRelPath(d.ExtractedSubpath) {
		return fmt.Errorf("%w: %q", ErrInvalidSubpath, d.ExtractedSubpath)
	}
	if d.TargetParent == "" || !validator.IsSafeRelPath(d.TargetParent) {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, d.TargetParent)
	}
	return nil
}

// Resolved is a descriptor with every path made absolute against the
// dataset root. All pipeline stages operate on resolved descriptors so
// no component depends on the process working directory.
type Resolved struct {
	Descriptor

	// StagingDir absolute staging directory for this descriptor
	StagingDir string

	// ArchivePath absolute path of the downloaded archive
	ArchivePath string

	// ExtractedPath absolute path of the extracted subtree inside staging
	ExtractedPath string

	// TargetParentDir absolute final parent directory
	TargetParentDir string

	// FinalPath absolute path the subtree occupies after relocation
	FinalPath string
}

// Resolve valida y ancla el descriptor al dataset root.
func (d Descriptor) Resolve(datasetRoot string) (Resolved, error) {
	if err := d.Validate(); err != nil {
		return Resolved{}, err
	}

	root, err := filepath.Abs(datasetRoot)
	if err != nil {
		return Resolved{}, fmt.Errorf("cannot resolve dataset root: %w", err)
	}

	archive := d.ArchiveName
	if archive == "" {
		archive = archiveNameFromURL(d.URL)
	}

	staging := d.StagingDir
	if staging == "" {
		staging = filepath.Join(root, ".corpusx", "staging", d.ID)
	} else if !filepath.IsAbs(staging) {
		staging = filepath.Join(root, staging)
	}

	targetParent := filepath.Join(root, filepath.FromSlash(d.TargetParent))
	extracted := filepath.Join(staging, filepath.FromSlash(d.ExtractedSubpath))

	return Resolved{
		Descriptor:      d,
		StagingDir:      staging,
		ArchivePath:     filepath.Join(staging, archive),
		ExtractedPath:   extracted,
		TargetParentDir: targetParent,
		FinalPath:       filepath.Join(targetParent, filepath.Base(extracted)),
	}, nil
}

// archiveNameFromURL derives a local archive filename from the URL path.
func archiveNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "archive.tar.gz"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "archive.tar.gz"
	}
	return name
}

// ValidateSet checks a whole manifest worth of descriptors: each must be
// individually valid and ids must be unique (state records are keyed by id).
func ValidateSet(descriptors []Descriptor) error {
	if len(descriptors) == 0 {
		return ErrNoDescriptors
	}

	seen := make(map[string]bool, len(descriptors))
	for i := range descriptors {
		if err := descriptors[i].Validate(); err != nil {
			return fmt.Errorf("descriptor %d (%s): %w", i, descriptors[i].ID, err)
		}
		if seen[descriptors[i].ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, descriptors[i].ID)
		}
		seen[descriptors[i].ID] = true
	}
	return nil
}
