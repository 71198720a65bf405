package deck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher localizes image references for deck assembly. Local paths
// pass through untouched; URLs are downloaded to a temp file with a
// bounded timeout. Downloads are rate-limited so a large deck does not
// hammer the image bucket.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	dir     string
}

// NewFetcher creates a Fetcher writing downloads under dir ("" for the
// system temp dir), at most rps requests per second.
func NewFetcher(dir string, rps float64) *Fetcher {
	if rps <= 0 {
		rps = 5
	}
	return &Fetcher{
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		dir:     dir,
	}
}

// Fetch returns a local path for ref. Callers own the returned file
// when it was downloaded (it lives under the fetcher's dir).
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if !strings.Contains(ref, "://") {
		return ref, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image %s: HTTP %d", ref, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.dir, "deckimg-*"+extFor(resp.Header.Get("Content-Type"), ref))
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp image: %w", err)
	}
	return tmp.Name(), nil
}

// extFor picks a file extension from the Content-Type, falling back to
// the URL suffix and finally .jpg.
func extFor(contentType, ref string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	}
	lower := strings.ToLower(ref)
	for _, ext := range []string{".png", ".webp", ".jpeg", ".jpg"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ".jpg"
}
