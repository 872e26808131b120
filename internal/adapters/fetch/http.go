// internal/adapters/fetch/http.go
package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"corpusx/internal/core/domain"
	"corpusx/internal/core/ports"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/rate"
)

const (
	// partSuffix marks an in-progress download next to its final name.
	partSuffix = ".part"

	// copyChunkSize is the unit of transfer; also the cancellation
	// checkpoint granularity.
	copyChunkSize = 128 * 1024
)

// HTTPFetcher downloads archives over http(s) with bounded retries,
// exponential backoff with jitter, and byte-range resume of partials.
type HTTPFetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	logger      logx.Logger
	maxRetries  int
	backoffBase time.Duration
}

// HTTPOptions configures an HTTPFetcher.
type HTTPOptions struct {
	Client      *http.Client
	Limiter     *rate.Limiter
	Logger      logx.Logger
	MaxRetries  int
	BackoffBase time.Duration
}

// NewHTTP creates an HTTP fetcher. Defaults: 3 attempts, 2s base
// delay, no bandwidth cap.
func NewHTTP(opts HTTPOptions) *HTTPFetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 0} // transfers may be long; ctx governs
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.New(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}

	return &HTTPFetcher{
		client:      opts.Client,
		limiter:     opts.Limiter,
		logger:      opts.Logger.With("component", "http-fetcher"),
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
	}
}

// Supports reports whether the URL uses http or https.
func (f *HTTPFetcher) Supports(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch implements ports.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, desc domain.Resolved, progress ports.ProgressFunc) (domain.FetchResult, error) {
	if err := os.MkdirAll(filepath.Dir(desc.ArchivePath), 0o755); err != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot create staging dir: %w", err)
	}

	remoteSize := f.probeSize(ctx, desc.URL)

	if cached, result := checkCached(desc, remoteSize, f.logger); cached {
		return result, nil
	}

	partPath := desc.ArchivePath + partSuffix
	resumed := false

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(f.backoffBase, attempt)
			f.logger.Warn("retrying download",
				"id", desc.ID,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
			)
			select {
			case <-ctx.Done():
				return domain.FetchResult{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		var wasResumed bool
		wasResumed, lastErr = f.download(ctx, desc.URL, partPath, remoteSize, progress)
		resumed = resumed || wasResumed
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return domain.FetchResult{}, ctx.Err()
		}
		if !errors.Retryable(lastErr) {
			return domain.FetchResult{}, lastErr
		}
	}
	if lastErr != nil {
		return domain.FetchResult{}, errors.Wrapf(lastErr, "download of %s exhausted %d attempts", desc.URL, f.maxRetries)
	}

	result, err := finalizeDownload(desc, partPath, resumed)
	if err != nil {
		return domain.FetchResult{}, err
	}

	f.logger.Info("archive fetched",
		"id", desc.ID,
		"bytes", result.ByteSize,
		"resumed", result.Resumed,
	)
	return result, nil
}

// probeSize asks the server for the content length. Best effort: -1 on
// any failure, the fetch itself will surface real errors.
func (f *HTTPFetcher) probeSize(ctx context.Context, url string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return -1
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return -1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength < 0 {
		return -1
	}
	return resp.ContentLength
}

// download transfers the body into partPath, resuming from its current
// size when the server honors byte ranges. Returns whether the transfer
// continued a previous partial.
func (f *HTTPFetcher) download(ctx context.Context, url, partPath string, totalSize int64, progress ports.ProgressFunc) (bool, error) {
	offset := int64(0)
	if info, err := os.Stat(partPath); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("cannot build request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, errors.Wrapf(errors.ErrNetwork, "GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	resumed := false
	flags := os.O_CREATE | os.O_WRONLY

	switch resp.StatusCode {
	case http.StatusPartialContent:
		resumed = offset > 0
		flags |= os.O_APPEND
	case http.StatusOK:
		// Server ignored the range; restart from zero.
		offset = 0
		flags |= os.O_TRUNC
	default:
		return false, errors.Wrapf(errors.ErrNetwork, "GET %s: status %d", url, resp.StatusCode)
	}

	out, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return resumed, fmt.Errorf("cannot open partial file: %w", err)
	}
	defer out.Close()

	if totalSize < 0 && resp.ContentLength >= 0 {
		totalSize = offset + resp.ContentLength
	}

	written, err := copyChunks(ctx, out, resp.Body, offset, totalSize, f.limiter, progress)
	if err != nil {
		return resumed, err
	}

	if totalSize >= 0 && offset+written != totalSize {
		return resumed, errors.Wrapf(errors.ErrNetwork,
			"short body for %s: got %d of %d bytes", url, offset+written, totalSize)
	}
	return resumed, nil
}

// copyChunks copies in fixed-size chunks so cancellation and bandwidth
// limiting happen at chunk boundaries, never mid-write.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, offset, total int64, limiter *rate.Limiter, progress ports.ProgressFunc) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if err := limiter.WaitN(ctx, int64(n)); err != nil {
				return written, err
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write failed: %w", err)
			}
			written += int64(n)
			if progress != nil {
				progress(offset+written, total)
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, errors.Wrapf(errors.ErrNetwork, "read failed: %v", readErr)
		}
	}
}

// checkCached decides if the already-present archive can be reused:
// checksum match when the descriptor carries one, size match otherwise.
// A mismatching file is removed so the caller re-downloads.
func checkCached(desc domain.Resolved, remoteSize int64, logger logx.Logger) (bool, domain.FetchResult) {
	info, err := os.Stat(desc.ArchivePath)
	if err != nil {
		return false, domain.FetchResult{}
	}

	if desc.MD5 != "" {
		sum, err := fileMD5(desc.ArchivePath)
		if err == nil && strings.EqualFold(sum, desc.MD5) {
			logger.Info("archive cached, checksum verified", "id", desc.ID)
			return true, domain.FetchResult{
				LocalPath: desc.ArchivePath,
				ByteSize:  info.Size(),
				Checksum:  sum,
				Cached:    true,
			}
		}
		logger.Warn("cached archive failed checksum, refetching", "id", desc.ID)
		_ = os.Remove(desc.ArchivePath)
		return false, domain.FetchResult{}
	}

	if remoteSize >= 0 && info.Size() == remoteSize {
		logger.Info("archive cached, size verified", "id", desc.ID, "bytes", info.Size())
		return true, domain.FetchResult{
			LocalPath: desc.ArchivePath,
			ByteSize:  info.Size(),
			Cached:    true,
		}
	}
	if remoteSize >= 0 {
		logger.Warn("cached archive size mismatch, refetching",
			"id", desc.ID,
			"local", info.Size(),
			"remote", remoteSize,
		)
		_ = os.Remove(desc.ArchivePath)
	}
	return false, domain.FetchResult{}
}

// finalizeDownload verifies the checksum when one is declared and
// promotes the partial to its final name.
func finalizeDownload(desc domain.Resolved, partPath string, resumed bool) (domain.FetchResult, error) {
	var checksum string
	if desc.MD5 != "" {
		sum, err := fileMD5(partPath)
		if err != nil {
			return domain.FetchResult{}, fmt.Errorf("cannot hash download: %w", err)
		}
		if !strings.EqualFold(sum, desc.MD5) {
			_ = os.Remove(partPath)
			return domain.FetchResult{}, errors.Wrapf(errors.ErrCorruptArchive,
				"%s: md5 %s does not match expected %s", desc.ID, sum, desc.MD5)
		}
		checksum = sum
	}

	if err := os.Rename(partPath, desc.ArchivePath); err != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot finalize download: %w", err)
	}

	info, err := os.Stat(desc.ArchivePath)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("cannot stat archive: %w", err)
	}

	return domain.FetchResult{
		LocalPath: desc.ArchivePath,
		ByteSize:  info.Size(),
		Checksum:  checksum,
		Resumed:   resumed,
	}, nil
}

// fileMD5 computes the hex md5 digest of a file.
func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// backoffDelay computes exponential backoff with jitter for attempt n.
// The jitter bound is clamped to 1ns so sub-2ns bases stay valid for
// rand.Int63n.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	bound := int64(base) / 2
	if bound < 1 {
		bound = 1
	}
	jitter := time.Duration(rand.Int63n(bound))
	return delay + jitter
}
