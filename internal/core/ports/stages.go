// internal/core/ports/stages.go
package ports

import (
	"context"

	"corpusx/internal/core/domain"
)

// ProgressFunc recibe bytes transferidos y total (total < 0 si es
// desconocido) durante una descarga.
type ProgressFunc func(transferred, total int64)

// Fetcher materializes a remote archive on local disk. Implementations
// are stateless; idempotence is decided from what is already on disk
// (size and, when available, checksum). Partial downloads are resumed.
type Fetcher interface {
	// Supports reports whether this fetcher understands the URL scheme
	Supports(rawURL string) bool

	// Fetch downloads desc.URL to desc.ArchivePath. A nil progress is
	// allowed. The returned result marks cache hits and resumed
	// transfers so the orchestrator can report them.
	Fetch(ctx context.Context, desc domain.Resolved, progress ProgressFunc) (domain.FetchResult, error)
}

// Extractor unpacks an archive into the staging directory and returns
// the absolute extracted root. Extraction writes to a temporary name
// and renames into place only on success, so a present extracted tree
// is always complete.
type Extractor interface {
	Extract(ctx context.Context, desc domain.Resolved) (string, error)
}

// Relocator moves the extracted subtree into the canonical dataset
// layout, merging into the target parent. The default policy fails on
// name collisions; force overwrites them. After a successful move the
// staging residue of the descriptor is removed.
type Relocator interface {
	Relocate(ctx context.Context, desc domain.Resolved, force bool) error
}

// StateStore persists per-descriptor pipeline state across runs.
// Implementations must write atomically; concurrent descriptors never
// share a record but may share the store.
type StateStore interface {
	// Load returns the persisted state, or a fresh NOT_STARTED record
	// when none exists yet
	Load(descriptorID string) (domain.State, error)

	// Save persists the record, replacing any previous one
	Save(st domain.State) error

	// Reset removes the record so the descriptor restarts from scratch
	Reset(descriptorID string) error
}
