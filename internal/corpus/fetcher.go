package corpus

import (
	"context"
	"io"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

// maxCorpusBytes bounds a remote download. The complete works are ~5.5 MB.
const maxCorpusBytes = 64 << 20

// Fetcher retrieves raw corpus text from a remote location.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads the corpus with a plain GET.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the response body. Transport failures and non-2xx statuses
// are reported as ErrNetwork.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", apperrors.New(apperrors.ErrNetwork, 0, "no corpus url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrNetwork, 0, "building request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", "shakespeare-qa/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrNetwork, 0, "fetching %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.Newf(apperrors.ErrNetwork, 0, "fetching %s: status %d: %s", url, resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCorpusBytes+1))
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrNetwork, 0, "reading body of %s: %v", url, err)
	}
	if len(body) > maxCorpusBytes {
		return "", apperrors.Newf(apperrors.ErrNetwork, 0, "corpus at %s exceeds %d bytes", url, maxCorpusBytes)
	}
	return string(body), nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
