package host

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is a fetched text resource.
type Response struct {
	StatusCode int
	StatusText string
	Body       string
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves script text by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// HTTPFetcher fetches over HTTP with caching disabled.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "tui-player/1.0").
		SetHeader("Cache-Control", "no-store").
		SetHeader("Pragma", "no-cache")
	return &HTTPFetcher{client: client}
}

// Fetch implements Fetcher. Non-2xx responses are returned, not treated as
// errors; transport failures are.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Response, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	code := resp.StatusCode()
	return Response{
		StatusCode: code,
		StatusText: statusText(code, resp.Status()),
		Body:       resp.String(),
	}, nil
}

// FetchBytes retrieves binary content such as images. Any non-2xx status
// is an error.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, fmt.Errorf("HTTP %d %s", code, statusText(code, resp.Status()))
	}
	return resp.Body(), nil
}

// statusText extracts the reason phrase from a status line like "404 Not Found".
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}
