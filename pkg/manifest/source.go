package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout bounds a single remote manifest fetch attempt.
const DefaultTimeout = 30 * time.Second

// fetchAttempts is the number of tries per remote fetch; retryBackoff
// is a variable so tests do not sleep for real.
const fetchAttempts = 3

var retryBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Source locates the manifest data. A remote URL takes precedence over
// the local path when both are configured. A Source holds no mutable
// state, so concurrent reloads may share one.
type Source struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Path    string        `yaml:"path"`
	Format  FormatSpec    `yaml:"format"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load fetches and parses the manifest. A fetch or parse failure
// returns whatever rows were recovered together with the error; the
// caller logs it and keeps serving (possibly with an empty index).
// An unconfigured source yields no rows and no error.
func (s *Source) Load(ctx context.Context) ([]Row, error) {
	if s.URL != "" {
		return s.loadRemote(ctx)
	}
	if s.Path != "" {
		return s.loadLocal()
	}
	return nil, nil
}

func (s *Source) loadRemote(ctx context.Context) ([]Row, error) {
	body, _, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseCSV(body, s.Format)
}

// Fetch downloads the remote manifest, retrying transport errors and
// non-200 statuses with exponential backoff; each attempt is bounded by
// the source timeout. It returns the body stream of the successful
// attempt plus the HTTP status. The fetch subcommand uses it directly
// to persist the payload.
func (s *Source) Fetch(ctx context.Context) (io.ReadCloser, int, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Per-call client; the default transport and its connection pool
	// are still shared process-wide.
	client := &http.Client{Timeout: timeout}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("build manifest request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch manifest %s: %w", s.URL, err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, resp.StatusCode, nil
		}
		resp.Body.Close()
		lastStatus = resp.StatusCode
		lastErr = fmt.Errorf("fetch manifest %s: HTTP %d", s.URL, resp.StatusCode)
	}
	return nil, lastStatus, lastErr
}

// loadLocal reads the manifest from disk. A gob snapshot written by the
// fetch subcommand takes priority over the CSV; the CSV stays
// authoritative and the snapshot is re-derived on every fetch.
func (s *Source) loadLocal() ([]Row, error) {
	if gobPath := SnapshotPath(s.Path); gobPath != "" {
		if _, err := os.Stat(gobPath); err == nil {
			return LoadSnapshot(gobPath)
		}
	}

	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing manifest degrades to "no images", not a fault.
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest %s: %w", s.Path, err)
	}
	defer f.Close()
	return ParseCSV(f, s.Format)
}
