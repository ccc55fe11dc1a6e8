package signing

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCEXSignerDeterministicForFixedClock(t *testing.T) {
	s := NewCEXSigner("key123", "secret456", 0)
	s.now = func() int64 { return 1700000000000 }

	h1 := s.Sign("symbol=BTCUSDT")
	h2 := s.Sign("symbol=BTCUSDT")
	if h1.Sign != h2.Sign {
		t.Fatalf("expected deterministic signature for identical inputs, got %s vs %s", h1.Sign, h2.Sign)
	}
	if h1.RecvWindow != "5000" {
		t.Fatalf("expected default recv window 5000, got %s", h1.RecvWindow)
	}

	h3 := s.Sign("symbol=ETHUSDT")
	if h3.Sign == h1.Sign {
		t.Fatal("expected different signature for different payload")
	}
}

func TestCEXHeadersMapping(t *testing.T) {
	s := NewCEXSigner("key123", "secret456", 2000)
	s.now = func() int64 { return 1700000000000 }
	headers := s.Sign("").ToHTTPHeaders()
	if headers["X-BAPI-API-KEY"] != "key123" {
		t.Fatalf("unexpected api key header: %v", headers)
	}
	if headers["X-BAPI-RECV-WINDOW"] != "2000" {
		t.Fatalf("unexpected recv window header: %v", headers)
	}
}

func TestWSAuthPayloadFormat(t *testing.T) {
	s := NewCEXSigner("key123", "secret456", 0)
	s.now = func() int64 { return 1700000000000 }
	apiKey, expires, sig := s.WSAuthPayload()
	if apiKey != "key123" {
		t.Fatalf("unexpected api key: %s", apiKey)
	}
	if expires != 1700000010000 {
		t.Fatalf("unexpected expires: %d", expires)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 32-byte hex signature (64 chars), got %d", len(sig))
	}
}

func TestDEXSignerSignL1ActionProducesValidSignature(t *testing.T) {
	// A throwaway test key, never used on any real chain.
	signer, err := NewDEXSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", ChainIDArbitrumOne)
	if err != nil {
		t.Fatalf("NewDEXSigner: %v", err)
	}

	action := map[string]interface{}{
		"type": "order",
		"orders": []map[string]interface{}{
			{"a": 0, "b": true, "p": "100", "s": "1", "r": false, "t": map[string]interface{}{"limit": map[string]string{"tif": "Gtc"}}},
		},
		"grouping": "na",
	}

	sig, err := signer.SignL1Action(action, common.Address{}, 1700000000000, true)
	if err != nil {
		t.Fatalf("SignL1Action: %v", err)
	}
	if !strings.HasPrefix(sig.R, "0x") || !strings.HasPrefix(sig.S, "0x") {
		t.Fatalf("expected 0x-prefixed r/s, got %+v", sig)
	}
	if sig.V != 27 && sig.V != 28 {
		t.Fatalf("expected v in {27,28}, got %d", sig.V)
	}
}

func TestRefusingSignerAlwaysErrors(t *testing.T) {
	var s Signer = RefusingSigner{}
	if _, err := s.SignL1Action(nil, common.Address{}, 0, true); err == nil {
		t.Fatal("expected RefusingSigner to refuse")
	}
}
