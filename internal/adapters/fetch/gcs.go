// internal/adapters/fetch/gcs.go
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"corpusx/internal/core/domain"
	"corpusx/internal/core/ports"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/rate"
)

// GCSFetcher stages archives from gs:// bucket objects. The bucket is
// an opaque object store; credentials come from the ambient environment
// the way the storage client resolves them.
type GCSFetcher struct {
	client  *storage.Client
	limiter *rate.Limiter
	logger  logx.Logger
}

// NewGCS creates a fetcher backed by a Cloud Storage client.
func NewGCS(ctx context.Context, limiter *rate.Limiter, logger logx.Logger) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if limiter == nil {
		limiter = rate.New(0, 0)
	}
	if logger == nil {
		logger = logx.New()
	}

	return &GCSFetcher{
		client:  client,
		limiter: limiter,
		logger:  logger.With("component", "gcs-fetcher"),
	}, nil
}

// Supports reports whether the URL is a gs:// object reference.
func (f *GCSFetcher) Supports(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "gs://")
}

// Fetch implements ports.Fetcher for bucket objects. Resume uses a
// range reader from the partial's current size; the object generation
// is pinned so a partial never mixes object versions.
func (f *GCSFetcher) Fetch(ctx context.Context, desc domain.Resolved, progress ports.ProgressFunc) (domain.FetchResult, error) {
	bucket, object, err := SplitGSURL(desc.URL)
	if err != nil {
		return domain.FetchResult{}, err
	}

	if err := os.MkdirAll(filepath.Dir(desc.ArchivePath), 0o755); err != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot create staging dir: %w", err)
	}

	handle := f.client.Bucket(bucket).Object(object)
	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return domain.FetchResult{}, errors.Wrapf(errors.ErrNetwork, "attrs of gs://%s/%s: %v", bucket, object, err)
	}

	// Prefer the object's own digest over the manifest one when present.
	expectedMD5 := desc.MD5
	if expectedMD5 == "" && len(attrs.MD5) > 0 {
		expectedMD5 = hex.EncodeToString(attrs.MD5)
	}
	check := desc
	check.MD5 = expectedMD5

	if cached, result := checkCached(check, attrs.Size, f.logger); cached {
		return result, nil
	}

	partPath := desc.ArchivePath + partSuffix
	offset := int64(0)
	if info, statErr := os.Stat(partPath); statErr == nil && info.Size() < attrs.Size {
		offset = info.Size()
	} else if statErr == nil {
		// Oversized or stale partial, restart.
		_ = os.Remove(partPath)
	}

	reader, err := handle.Generation(attrs.Generation).NewRangeReader(ctx, offset, -1)
	if err != nil {
		return domain.FetchResult{}, errors.Wrapf(errors.ErrNetwork, "read gs://%s/%s: %v", bucket, object, err)
	}
	defer reader.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot open partial file: %w", err)
	}

	written, copyErr := copyChunks(ctx, out, reader, offset, attrs.Size, f.limiter, progress)
	closeErr := out.Close()
	if copyErr != nil {
		return domain.FetchResult{}, copyErr
	}
	if closeErr != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot close partial file: %w", closeErr)
	}
	if offset+written != attrs.Size {
		return domain.FetchResult{}, errors.Wrapf(errors.ErrNetwork,
			"short object read: got %d of %d bytes", offset+written, attrs.Size)
	}

	result, err := finalizeDownload(check, partPath, offset > 0)
	if err != nil {
		return domain.FetchResult{}, err
	}

	f.logger.Info("object staged",
		"id", desc.ID,
		"bucket", bucket,
		"bytes", result.ByteSize,
	)
	return result, nil
}

// Close releases the storage client.
func (f *GCSFetcher) Close() error {
	return f.client.Close()
}

// SplitGSURL parses gs://bucket/path/to/object into its components.
func SplitGSURL(raw string) (bucket, object string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if !strings.EqualFold(u.Scheme, "gs") || u.Host == "" {
		return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidURL, raw)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if object == "" {
		return "", "", fmt.Errorf("%w: missing object path in %s", domain.ErrInvalidURL, raw)
	}
	return u.Host, object, nil
}
