// Package fetch provides the fetcher adapters: http(s) downloads and
// gs:// bucket objects, plus a mux that routes by URL scheme.
package fetch

import (
	"context"
	"fmt"

	"corpusx/internal/core/domain"
	"corpusx/internal/core/ports"
)

// Mux routes each descriptor to the first fetcher that supports its
// URL scheme. It implements ports.Fetcher itself.
type Mux struct {
	fetchers []ports.Fetcher
}

// NewMux creates a scheme-routing fetcher.
func NewMux(fetchers ...ports.Fetcher) *Mux {
	return &Mux{fetchers: fetchers}
}

// Supports reports whether any registered fetcher handles the URL.
func (m *Mux) Supports(rawURL string) bool {
	for _, f := range m.fetchers {
		if f.Supports(rawURL) {
			return true
		}
	}
	return false
}

// Fetch delegates to the fetcher registered for the URL scheme.
func (m *Mux) Fetch(ctx context.Context, desc domain.Resolved, progress ports.ProgressFunc) (domain.FetchResult, error) {
	for _, f := range m.fetchers {
		if f.Supports(desc.URL) {
			return f.Fetch(ctx, desc, progress)
		}
	}
	return domain.FetchResult{}, fmt.Errorf("%w: no fetcher for %s", domain.ErrInvalidURL, desc.URL)
}
