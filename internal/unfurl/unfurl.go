// Package unfurl fetches link metadata used for text-only post previews.
package unfurl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mbaird/twitrelay/internal/domain"
	"github.com/mbaird/twitrelay/internal/metric"
)

// maxBodyBytes caps how much of a page is read; card meta lives in <head>.
const maxBodyBytes = 2 << 20

// Client fetches a page and scrapes its twitter-card and Open-Graph image
// metadata. Each call is independent; a failure degrades to "no preview" for
// that link only.
type Client struct {
	httpClient *http.Client
	metrics    *metric.Metrics
}

// NewClient creates an unfurl client with the given timeout. metrics may be
// nil.
func NewClient(timeout time.Duration, metrics *metric.Metrics) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

// FetchMetadata implements domain.Unfurler. Redirects are followed, so
// shortened URLs land on the final page.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*domain.LinkMetadata, error) {
	meta, err := c.fetch(ctx, url)
	if err != nil {
		c.metrics.IncUnfurlErrors()
		return nil, err
	}
	return meta, nil
}

func (c *Client) fetch(ctx context.Context, url string) (*domain.LinkMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "twitrelay/1.0 (+https://github.com/mbaird/twitrelay)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return extract(doc), nil
}

// extract collects image URLs from meta tags. Twitter cards use name=,
// Open Graph uses property=; some pages swap them, so both attributes are
// checked for each.
func extract(doc *goquery.Document) *domain.LinkMetadata {
	meta := &domain.LinkMetadata{}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok || content == "" {
			return
		}
		key, _ := sel.Attr("name")
		if key == "" {
			key, _ = sel.Attr("property")
		}
		switch key {
		case "twitter:image", "twitter:image:src":
			meta.TwitterCardImages = append(meta.TwitterCardImages, content)
		case "og:image", "og:image:url", "og:image:secure_url":
			meta.OpenGraphImages = append(meta.OpenGraphImages, content)
		}
	})
	return meta
}
