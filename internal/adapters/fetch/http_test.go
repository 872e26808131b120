// internal/adapters/fetch/http_test.go
package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/errors"
	"corpusx/internal/platform/logx"
	"corpusx/internal/testutil"
)

func testFetcher() *HTTPFetcher {
	return NewHTTP(HTTPOptions{
		Logger:      logx.NewSilent(),
		BackoffBase: time.Millisecond,
	})
}

func resolveFor(t *testing.T, rawURL, sum string) domain.Resolved {
	t.Helper()
	d := domain.Descriptor{
		ID:               "dev-clean",
		URL:              rawURL,
		MD5:              sum,
		ExtractedSubpath: "LibriTTS_R/dev-clean",
		TargetParent:     "LibriTTS_R",
	}
	res, err := d.Resolve(t.TempDir())
	testutil.AssertNoError(t, err, "resolve descriptor")
	return res
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// archiveServer serves body at /dev_clean.tar.gz honoring byte ranges.
func archiveServer(body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			return
		}

		if rng := r.Header.Get("Range"); rng != "" {
			var offset int
			fmt.Sscanf(rng, "bytes=%d-", &offset)
			if offset > 0 && offset < len(body) {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)-offset))
				w.WriteHeader(http.StatusPartialContent)
				w.Write(body[offset:])
				return
			}
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))
}

func TestHTTPFetcherSupports(t *testing.T) {
	f := testFetcher()
	testutil.AssertTrue(t, f.Supports("http://example.org/a.tar.gz"), "http")
	testutil.AssertTrue(t, f.Supports("HTTPS://example.org/a.tar.gz"), "https upper")
	testutil.AssertFalse(t, f.Supports("gs://bucket/a.tar.gz"), "gs")
}

func TestHTTPFetcherDownload(t *testing.T) {
	body := []byte(strings.Repeat("speech-corpus-bytes-", 1000))
	server := archiveServer(body)
	defer server.Close()

	t.Run("fresh download verifies checksum and promotes the partial", func(t *testing.T) {
		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex(body))

		var lastTransferred, lastTotal int64
		result, err := testFetcher().Fetch(context.Background(), desc, func(transferred, total int64) {
			lastTransferred, lastTotal = transferred, total
		})

		testutil.AssertNoError(t, err, "fetch")
		testutil.AssertEqual(t, result.ByteSize, int64(len(body)), "byte size")
		testutil.AssertEqual(t, result.Checksum, md5Hex(body), "checksum")
		testutil.AssertFalse(t, result.Cached, "not cached")
		testutil.AssertEqual(t, lastTransferred, int64(len(body)), "progress reached the end")
		testutil.AssertEqual(t, lastTotal, int64(len(body)), "progress knew the total")

		testutil.FileExists(t, desc.ArchivePath, "final archive")
		testutil.FileMissing(t, desc.ArchivePath+partSuffix, "partial removed")
	})

	t.Run("matching archive on disk is reused without transfer", func(t *testing.T) {
		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex(body))
		testutil.WriteFile(t, desc.StagingDir, "dev_clean.tar.gz", string(body))

		result, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertNoError(t, err, "fetch")
		testutil.AssertTrue(t, result.Cached, "cache hit")
	})

	t.Run("corrupted cache entry is refetched", func(t *testing.T) {
		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex(body))
		testutil.WriteFile(t, desc.StagingDir, "dev_clean.tar.gz", "garbage")

		result, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertNoError(t, err, "fetch")
		testutil.AssertFalse(t, result.Cached, "refetched")
		testutil.AssertEqual(t, result.ByteSize, int64(len(body)), "full body")
	})

	t.Run("partial download resumes with a range request", func(t *testing.T) {
		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex(body))
		testutil.WriteFile(t, desc.StagingDir, "dev_clean.tar.gz"+partSuffix, string(body[:5000]))

		result, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertNoError(t, err, "fetch")
		testutil.AssertTrue(t, result.Resumed, "resumed")
		testutil.AssertEqual(t, result.Checksum, md5Hex(body), "resumed content intact")
	})
}

func TestHTTPFetcherRetries(t *testing.T) {
	body := []byte("tiny archive body")

	t.Run("transient errors retry until success", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				return
			}
			if atomic.AddInt32(&calls, 1) <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write(body)
		}))
		defer server.Close()

		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex(body))
		result, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertNoError(t, err, "fetch after retries")
		testutil.AssertEqual(t, result.ByteSize, int64(len(body)), "size")
		testutil.AssertEqual(t, int(atomic.LoadInt32(&calls)), 3, "two failures then success")
	})

	t.Run("retries exhaust into a network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", "")
		_, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertError(t, err, "exhausted")
		testutil.AssertTrue(t, errors.IsNetwork(err), "network taxonomy")
	})

	t.Run("checksum mismatch is corruption, not retried", func(t *testing.T) {
		server := archiveServer(body)
		defer server.Close()

		desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", md5Hex([]byte("different")))
		_, err := testFetcher().Fetch(context.Background(), desc, nil)
		testutil.AssertError(t, err, "mismatch")
		testutil.AssertTrue(t, errors.IsCorruptArchive(err), "corruption taxonomy")

		// El parcial se descarta para no reusar bytes inválidos.
		testutil.FileMissing(t, desc.ArchivePath, "no final archive")
		testutil.FileMissing(t, desc.ArchivePath+partSuffix, "no partial left")
	})
}

func TestHTTPFetcherCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		flusher := w.(http.Flusher)
		for i := 0; i < 1000; i++ {
			if _, err := w.Write(make([]byte, 1000)); err != nil {
				return
			}
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer server.Close()

	desc := resolveFor(t, server.URL+"/dev_clean.tar.gz", "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := testFetcher().Fetch(ctx, desc, nil)
	testutil.AssertError(t, err, "canceled fetch")

	// El parcial queda para que la próxima ejecución reanude.
	if _, statErr := os.Stat(desc.ArchivePath + partSuffix); statErr != nil {
		t.Errorf("expected resumable partial, got %v", statErr)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		d := backoffDelay(base, attempt)
		min := base << (attempt - 1)
		max := min + base/2
		testutil.AssertTrue(t, d >= min && d <= max,
			fmt.Sprintf("attempt %d delay %v within [%v, %v]", attempt, d, min, max))
	}

	t.Run("tiny base", func(t *testing.T) {
		// Bases under 2ns must not panic the jitter draw.
		d := backoffDelay(1, 1)
		testutil.AssertTrue(t, d >= 1, "delay at least the base")
	})
}
