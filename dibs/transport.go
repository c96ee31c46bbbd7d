package dibs

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport posts a set of form fields to a gateway endpoint and returns the
// raw response body. Implementations own connection handling, TLS and
// timeouts; the protocol clients never retry and never interpret the
// transport options.
type Transport interface {
	Post(ctx context.Context, endpoint string, form url.Values) ([]byte, error)
}

// TransportOptions is the uninterpreted configuration bag passed through to
// the default transport.
type TransportOptions struct {
	// Timeout bounds the whole request. Zero means 30 seconds, matching
	// the gateway's documented client defaults.
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment. Zero means 30
	// seconds.
	ConnectTimeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Only for
	// test environments.
	InsecureSkipVerify bool
}

const defaultTimeout = 30 * time.Second

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPTransport{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Post issues a form-encoded POST and returns the body regardless of HTTP
// status: the gateway reports its errors in the body, and classification
// happens upstream.
func (t *HTTPTransport) Post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
