package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Checker periodically probes every tracked manifest source with a HEAD
// request and persists the result. A dead source is logged, never
// fatal: the served index keeps whatever the last good fetch produced.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker probing every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx
// is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every tracked source once.
func (c *Checker) CheckAll(ctx context.Context) {
	sources, err := c.sources.List()
	if err != nil {
		c.logger.Error("source check: cannot list sources", "error", err)
		return
	}

	var ok, failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}
		if src.URL == "" {
			continue
		}

		status, checkErr := c.checkOne(ctx, src.URL)
		errMsg := ""
		if checkErr != nil {
			errMsg = checkErr.Error()
		}

		if err := c.sources.RecordCheck(src.Name, status, errMsg); err != nil {
			c.logger.Error("source check: record failed", "source", src.Name, "error", err)
		}

		if status >= 200 && status < 400 {
			ok++
		} else {
			failed++
			c.logger.Warn("manifest source unreachable",
				"source", src.Name,
				"url", src.URL,
				"status", status,
				"error", errMsg,
			)
		}
	}

	if ok+failed > 0 {
		c.logger.Info("source check complete", "total", ok+failed, "ok", ok, "failed", failed)
	}
}

// checkOne performs a single HEAD request and returns the HTTP status.
// On network error, status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
