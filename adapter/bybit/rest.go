// Package bybit implements the Bybit-shape CEX adapter: a signed REST
// client guarded by a token-bucket rate limit, a private WebSocket with
// auto-reconnect and REST catch-up, and the order/execution state
// mapping into the shared adapter.Adapter contract, authenticated via
// internal/signing.CEXSigner's hex HMAC.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/httpclient"
	"github.com/latentspeed/gateway/internal/signing"
)

// defaultRateLimit is the REST token bucket rate: 8 req/s by default.
const defaultRateLimit = 8

// restEnvelope is Bybit's uniform REST response shape.
type restEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// restClient reuses one TLS connection (via internal/httpclient.Client)
// guarded by a mutex; the mutex here serializes request
// construction/signing, not the underlying *http.Client, which is
// already goroutine-safe.
type restClient struct {
	http    *httpclient.Client
	signer  *signing.CEXSigner
	limiter *rate.Limiter

	mu sync.Mutex
}

func newRESTClient(baseURL, apiKey, apiSecret string, recvWindowMs int) *restClient {
	return &restClient{
		http:    httpclient.New(baseURL),
		signer:  signing.NewCEXSigner(apiKey, apiSecret, recvWindowMs),
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
	}
}

// get issues a signed GET with query params sorted for a deterministic,
// reproducible signable string.
func (c *restClient) get(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := encodeSortedQuery(params)

	c.mu.Lock()
	headers := c.signer.Sign(query).ToHTTPHeaders()
	c.mu.Unlock()
	headers["Content-Type"] = "application/json"

	fullPath := path
	if query != "" {
		fullPath += "?" + query
	}

	body, err := c.http.DoWithRetry(ctx, "GET", fullPath, nil, headers)
	if err != nil {
		return nil, wrapRESTError(err)
	}
	return decodeEnvelope(body)
}

// post issues a signed POST with body as the signable payload.
func (c *restClient) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	c.mu.Lock()
	headers := c.signer.Sign(string(payload)).ToHTTPHeaders()
	c.mu.Unlock()
	headers["Content-Type"] = "application/json"

	respBody, err := c.http.DoWithRetry(ctx, "POST", path, payload, headers)
	if err != nil {
		return nil, wrapRESTError(err)
	}
	return decodeEnvelope(respBody)
}

func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env restEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.RetCode != 0 {
		if env.RetCode == 10006 || env.RetCode == 10018 {
			return nil, adapter.NewError(adapter.ReasonRateLimited, env.RetMsg)
		}
		return nil, adapter.NewError(adapter.ReasonVenueRejected, env.RetMsg)
	}
	return env.Result, nil
}

func wrapRESTError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "HTTP status 429") {
		return adapter.NewError(adapter.ReasonRateLimited, msg)
	}
	if strings.Contains(msg, "HTTP status") {
		return adapter.NewError(adapter.ReasonHTTPStatusError, msg)
	}
	return adapter.NewError(adapter.ReasonTransportFailed, msg)
}

func encodeSortedQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := url.Values{}
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		v.Set(k, params[k])
	}
	return v.Encode()
}

// nowMs is a small seam so tests can pin time deterministically if needed.
var nowMs = func() int64 { return time.Now().UnixMilli() }
