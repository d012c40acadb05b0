// Package marketplace looks up a product's title and list price from its public page.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound means the page was fetched but carried no recognisable price
	ErrNotFound = errors.New("product price not found")
	// ErrInvalidURL is returned for anything other than an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid product URL")
)

const maxPageBytes = 4 << 20

// Product is what a listing page says about an item
type Product struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	URL      string          `json:"url"`
}

// Looker is implemented by Client; services depend on this
type Looker interface {
	Lookup(ctx context.Context, rawURL string) (*Product, error)
}

type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Lookup fetches rawURL and extracts title, price and currency
func (c *Client) Lookup(ctx context.Context, rawURL string) (*Product, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch product page: unexpected status %d", resp.StatusCode)
	}

	p, err := Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	p.URL = u.String()
	return p, nil
}
