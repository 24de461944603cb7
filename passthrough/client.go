package passthrough

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ClientConfig controls retry and timeout behavior for upstream calls.
type ClientConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// DefaultClientConfig returns the default upstream client configuration.
// Retries are off by default; the gateway relays upstream failures to the
// client rather than masking them.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxRetries:     0,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		RequestTimeout: 5 * time.Minute,
		ConnectTimeout: 10 * time.Second,
	}
}

// Client is the upstream HTTP client. Unary requests go through retry logic
// with Retry-After support; streaming requests bypass both the retry loop and
// the overall request timeout, since a healthy stream can outlive any
// reasonable deadline.
type Client struct {
	unary  *http.Client
	stream *http.Client
	config ClientConfig
}

// NewClient creates an upstream client. A zero config gets defaults.
func NewClient(config ClientConfig) *Client {
	if config == (ClientConfig{}) {
		config = DefaultClientConfig()
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.ConnectTimeout,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		unary: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: transport,
		},
		stream: &http.Client{
			Transport: transport,
		},
		config: config,
	}
}

// Do executes a unary request, retrying retryable failures up to MaxRetries.
// When retries run out on a retryable status, the final response is returned
// intact so the caller can relay its status and body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var originalBody []byte

	if req.Body != nil && req.GetBody == nil {
		var err error
		originalBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body.Close()
	}

	for attempt := 0; ; attempt++ {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		} else if originalBody != nil {
			req.Body = io.NopCloser(bytes.NewReader(originalBody))
		}

		resp, err := c.unary.Do(req)
		if err == nil && !isRetryableStatusCode(resp.StatusCode) {
			return resp, nil
		}
		if attempt == c.config.MaxRetries {
			return resp, err
		}
		if err != nil && !isRetryableError(err) {
			return nil, err
		}

		delay := parseRetryAfter(resp)
		if delay == 0 {
			delay = c.calculateDelay(attempt)
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}
	}
}

// DoStream executes a streaming request. No retries: a stream that fails
// midway cannot be resumed, and retrying the opening call risks duplicating
// a request the upstream already started processing.
func (c *Client) DoStream(req *http.Request) (*http.Response, error) {
	return c.stream.Do(req)
}

func (c *Client) calculateDelay(attempt int) time.Duration {
	delay := float64(c.config.InitialDelay) * math.Pow(c.config.Multiplier, float64(attempt))
	if delay > float64(c.config.MaxDelay) {
		delay = float64(c.config.MaxDelay)
	}
	if c.config.Jitter {
		jitter := delay * 0.25 * (2*rand.Float64() - 1)
		delay += jitter
		if delay < 0 {
			delay = float64(c.config.InitialDelay)
		}
	}
	return time.Duration(delay)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// Context errors first: context.DeadlineExceeded implements net.Error.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// parseRetryAfter extracts the retry delay from a Retry-After header,
// supporting both delta-seconds and HTTP-date formats. Returns 0 when absent
// or unparseable.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
