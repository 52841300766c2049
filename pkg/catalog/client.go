// Package catalog talks to the product catalog and stock service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rocketshoes/pkg/cart"
)

// ErrNotFound is matched by a StatusError carrying 404.
var ErrNotFound = errors.New("catalog: not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: GET %s: status %d", e.Path, e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client implements cart.Catalog over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the service rooted at baseURL. Every request
// is bounded by timeout; zero means no limit beyond the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Stock fetches the available amount of a product.
func (c *Client) Stock(ctx context.Context, productID int) (cart.Stock, error) {
	var s cart.Stock
	if err := c.get(ctx, fmt.Sprintf("/stock/%d", productID), &s); err != nil {
		return cart.Stock{}, err
	}
	return s, nil
}

// Product fetches product metadata. The returned Amount is always zero.
func (c *Client) Product(ctx context.Context, productID int) (cart.Product, error) {
	var p cart.Product
	if err := c.get(ctx, fmt.Sprintf("/products/%d", productID), &p); err != nil {
		return cart.Product{}, err
	}
	p.Amount = 0
	return p, nil
}

// Products lists the whole catalog.
func (c *Client) Products(ctx context.Context) ([]cart.Product, error) {
	var ps []cart.Product
	if err := c.get(ctx, "/products", &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
