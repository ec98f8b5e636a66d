// Package adapter integrates the external collaborators of the link
// tracker. The only one today is the topology document fetch.
package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"linkmesh/internal/domain"
)

// DocumentFetcher retrieves topology documents over http(s) or from the
// local filesystem. Every fetch is a single cancellable unit bounded by the
// configured timeout; failures come back as domain.FetchError so the whole
// reconciliation run aborts without mutating anything.
type DocumentFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewDocumentFetcher creates a fetcher with the given per-fetch timeout.
func NewDocumentFetcher(timeout time.Duration) *DocumentFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DocumentFetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Fetch retrieves the document at url. Supported forms: http://, https://,
// file:// and bare filesystem paths.
func (f *DocumentFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return f.fetchHTTP(ctx, url)
	case strings.HasPrefix(url, "file://"):
		return f.fetchFile(ctx, url, strings.TrimPrefix(url, "file://"))
	default:
		return f.fetchFile(ctx, url, url)
	}
}

func (f *DocumentFetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	return body, nil
}

// fetchFile honors the same deadline as the HTTP path. os.ReadFile cannot be
// interrupted, so the read runs in a goroutine and the slow side is abandoned
// when the context expires first.
func (f *DocumentFetcher) fetchFile(ctx context.Context, url, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(path)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &domain.FetchError{URL: url, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return nil, &domain.FetchError{URL: url, Err: res.err}
		}
		return res.data, nil
	}
}
