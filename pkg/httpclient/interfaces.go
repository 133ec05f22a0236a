package httpclient

import (
	"context"
	"errors"
)

// ErrBodyTooLarge is returned by Get when the response body exceeds the
// client's configured body limit. The body is never fully buffered.
var ErrBodyTooLarge = errors.New("httpclient: response body too large")

// Response is the status and buffered body of a completed GET.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client fetches documents. The extractor depends on this rather than on
// resty so tests can serve canned pages.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
