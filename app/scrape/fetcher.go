package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// PageFetcher retrieves raw page bytes for a source URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	client *resty.Client
}

// NewFetcher builds a resty-backed fetcher. A zero timeout leaves requests unbounded.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", res.StatusCode(), res.Status())
	}

	return res.Body(), nil
}
