// Package httpclient implements the blocking HTTP request helper shared by
// the CEX and DEX adapters: bounded connect/total timeouts, a 60s DNS
// cache, and uniform error wrapping for transport failures and non-2xx
// statuses.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultConnectTimeoutMs = 1500
	defaultTotalTimeoutMs   = 2500
	dnsCacheTTL             = 60 * time.Second
)

// Client wraps *http.Client with bounded timeouts and DNS caching, plus
// the venue's base URL.
type Client struct {
	BaseURL string
	http    *http.Client
}

// New builds a Client. Timeouts are read from
// LATENTSPEED_HTTP_CONNECT_TIMEOUT_MS / LATENTSPEED_HTTP_TIMEOUT_MS when
// set, else defaultConnectTimeoutMs / defaultTotalTimeoutMs.
func New(baseURL string) *Client {
	connectMs := envIntMs("LATENTSPEED_HTTP_CONNECT_TIMEOUT_MS", defaultConnectTimeoutMs)
	totalMs := envIntMs("LATENTSPEED_HTTP_TIMEOUT_MS", defaultTotalTimeoutMs)

	resolver := newCachingResolver(dnsCacheTTL)
	dialer := &net.Dialer{
		Timeout: time.Duration(connectMs) * time.Millisecond,
	}

	transport := &http.Transport{
		DialContext:           resolver.dialContext(dialer),
		TLSHandshakeTimeout:   time.Duration(connectMs) * time.Millisecond,
		ResponseHeaderTimeout: time.Duration(totalMs) * time.Millisecond,
	}

	return &Client{
		BaseURL: baseURL,
		http: &http.Client{
			Timeout:   time.Duration(totalMs) * time.Millisecond,
			Transport: transport,
		},
	}
}

func envIntMs(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Do issues a request and returns the body. Transport errors are wrapped
// with the underlying message; HTTP status >= 400 returns an error of the
// form "HTTP status <n>: <body>" so callers (notably the DEX adapter's
// 429 detector) can pattern-match on it.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport error: %w", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("HTTP status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// DoWithRetry retries once on transport error (not on HTTP status errors),
// waiting at least 200ms between attempts, per §4.8's "transport failures
// retry once after >= 200ms".
func (c *Client) DoWithRetry(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	respBody, err := c.Do(ctx, method, path, body, headers)
	if err == nil {
		return respBody, nil
	}
	if isHTTPStatusError(err) {
		return respBody, err
	}

	log.Warn().Err(err).Str("path", path).Msg("transport error, retrying once")
	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.Do(ctx, method, path, body, headers)
}

func isHTTPStatusError(err error) bool {
	// The error carries "HTTP status" in its text per Do's contract above;
	// transport errors carry "transport error" instead.
	msg := err.Error()
	return len(msg) >= 11 && msg[:11] == "HTTP status"
}
