package ontap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/metrics"
)

const (
	// DefaultTimeout bounds every request that is not the availability
	// probe. Collection endpoints also carry return_timeout=15 so the
	// cluster gives up at the same point.
	DefaultTimeout = 15 * time.Second

	// ProbeTimeout bounds the availability probe.
	ProbeTimeout = 5 * time.Second
)

// StatusError reports a non-200 response from the cluster API.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned HTTP status %d", e.Path, e.Status)
}

// Client issues authenticated requests against one cluster management
// endpoint. Certificates are not verified; management endpoints present
// self-signed certificates.
type Client struct {
	host     string
	username string
	password string
	hc       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// NewClient creates a client for the given admin endpoint. The host is a
// hostname or IP without scheme.
func NewClient(host, username, password string, opts ...Option) *Client {
	c := &Client{
		host:     host,
		username: username,
		password: password,
		hc: &http.Client{
			Transport: &retryTransport{
				base: &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the admin endpoint the client talks to.
func (c *Client) Host() string {
	return c.host
}

// Result is the outcome of a request that reached the cluster. Non-200
// statuses are returned here, not as errors; transport failures are errors.
type Result struct {
	Status int
	Body   []byte
}

// OK reports whether the request returned HTTP 200.
func (r *Result) OK() bool {
	return r.Status == http.StatusOK
}

// Decode unmarshals the response body into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Get issues a GET against path (which must start with /api) and reads the
// whole body. A zero timeout uses DefaultTimeout.
func (c *Client) Get(ctx context.Context, path string, timeout time.Duration) (*Result, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := "https://" + c.host + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	timer := metrics.NewTimer()
	resp, err := c.hc.Do(req)
	timer.ObserveDuration(metrics.ClusterRequestDuration)
	if err != nil {
		metrics.ClusterRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("request to %s failed: %w", c.host, err)
	}
	defer resp.Body.Close()
	metrics.ClusterRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", c.host, err)
	}
	return &Result{Status: resp.StatusCode, Body: body}, nil
}

// retryTransport retries a failed connect once and a failed read once.
// Response statuses are never retried, and redirects are left to the
// http.Client (which follows up to 10).
type retryTransport struct {
	base http.RoundTripper
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	connectLeft, readLeft := 1, 1
	for {
		resp, err := t.base.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		if req.Context().Err() != nil {
			return nil, err
		}
		if isConnectError(err) {
			if connectLeft == 0 {
				return nil, err
			}
			connectLeft--
			continue
		}
		if readLeft == 0 {
			return nil, err
		}
		readLeft--
	}
}

// isConnectError reports whether the request never reached the server.
func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
