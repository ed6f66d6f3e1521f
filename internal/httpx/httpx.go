package httpx

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
)

const acceptEncoding = "br, gzip"

// Transport advertises brotli/gzip, decodes the response body transparently
// and logs one debug line per round trip. Requests are never retried.
type Transport struct {
	Base   http.RoundTripper
	Logger zerolog.Logger
}

// NewClient returns the HTTP client every outbound API call goes through.
func NewClient(timeout time.Duration, logger zerolog.Logger) *http.Client {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Base: base, Logger: logger},
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	out := req
	negotiated := false
	if req.Header.Get("Accept-Encoding") == "" {
		out = req.Clone(req.Context())
		out.Header.Set("Accept-Encoding", acceptEncoding)
		negotiated = true
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		t.Logger.Debug().Err(err).
			Str("method", req.Method).
			Str("host", req.URL.Host).
			Str("path", req.URL.Path).
			Dur("took", time.Since(start)).
			Msg("http request failed")
		return nil, err
	}

	t.Logger.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Str("content_encoding", resp.Header.Get("Content-Encoding")).
		Dur("took", time.Since(start)).
		Msg("http request")

	if negotiated {
		if err := decode(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}
	return resp, nil
}

type decodedBody struct {
	io.Reader
	closer io.Closer
}

func (d decodedBody) Close() error { return d.closer.Close() }

func decode(resp *http.Response) error {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("httpx: gzip body: %w", err)
		}
		r = gz
	default:
		return nil
	}

	resp.Body = decodedBody{Reader: r, closer: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// Snippet trims b for log and error messages.
func Snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
