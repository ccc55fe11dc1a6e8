// Package signing implements the venue auth providers: an HMAC-SHA256
// request signer for CEX venues (Bybit-shape) and an EIP-712
// phantom-agent signer for DEX venues (Hyperliquid-shape).
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	// DefaultRecvWindowMs is Bybit's default signature freshness window.
	DefaultRecvWindowMs = 5000
)

// CEXHeaders are the auth headers a Bybit-shape REST/WS request attaches:
// Bybit's X-BAPI-* header set.
type CEXHeaders struct {
	APIKey     string
	Timestamp  string
	Sign       string
	RecvWindow string
}

// CEXSigner produces Bybit-shape HMAC-SHA256 request signatures: the
// message is timestamp || api_key || recv_window || (query string for GET,
// JSON body for POST), and the signature is lowercase hex.
type CEXSigner struct {
	apiKey     string
	apiSecret  string
	recvWindow int
	now        func() int64
}

// NewCEXSigner builds a signer for the given API credentials. recvWindowMs
// defaults to DefaultRecvWindowMs when <= 0.
func NewCEXSigner(apiKey, apiSecret string, recvWindowMs int) *CEXSigner {
	if recvWindowMs <= 0 {
		recvWindowMs = DefaultRecvWindowMs
	}
	return &CEXSigner{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: recvWindowMs,
		now:        func() int64 { return time.Now().UnixMilli() },
	}
}

// Sign builds the auth headers for a request whose signable payload is
// queryOrBody: the raw query string for GET requests, or the exact JSON
// body bytes (as a string) for POST requests.
func (s *CEXSigner) Sign(queryOrBody string) CEXHeaders {
	ts := strconv.FormatInt(s.now(), 10)
	recv := strconv.Itoa(s.recvWindow)

	message := ts + s.apiKey + recv + queryOrBody
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	mac.Write([]byte(message))
	sig := hex.EncodeToString(mac.Sum(nil))

	return CEXHeaders{
		APIKey:     s.apiKey,
		Timestamp:  ts,
		Sign:       sig,
		RecvWindow: recv,
	}
}

// ToHTTPHeaders renders the headers using Bybit's canonical header names.
func (h CEXHeaders) ToHTTPHeaders() map[string]string {
	return map[string]string{
		"X-BAPI-API-KEY":     h.APIKey,
		"X-BAPI-TIMESTAMP":   h.Timestamp,
		"X-BAPI-SIGN":        h.Sign,
		"X-BAPI-RECV-WINDOW": h.RecvWindow,
	}
}

// WSAuthPayload builds the args array Bybit's private WS "auth" op expects:
// [api_key, expires_ms, signature], where the signature covers the literal
// string "GET/realtime" + expires.
func (s *CEXSigner) WSAuthPayload() (apiKey string, expiresMs int64, signature string) {
	expires := s.now() + 10000
	message := fmt.Sprintf("GET/realtime%d", expires)
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	mac.Write([]byte(message))
	return s.apiKey, expires, hex.EncodeToString(mac.Sum(nil))
}
