package assets

import (
	"context"
	"testing"
	"time"
)

type stubFetcher struct {
	perp PerpMeta
	spot SpotMeta
	err  error
}

func (s stubFetcher) FetchPerpMeta(ctx context.Context) (PerpMeta, error) { return s.perp, s.err }
func (s stubFetcher) FetchSpotMeta(ctx context.Context) (SpotMeta, error) { return s.spot, s.err }

func TestResolvePerpAssetByIndex(t *testing.T) {
	fetcher := stubFetcher{
		perp: PerpMeta{Universe: []struct {
			Name       string `json:"name"`
			SzDecimals int    `json:"szDecimals"`
		}{
			{Name: "BTC", SzDecimals: 5},
			{Name: "ETH", SzDecimals: 4},
		}},
	}
	r := NewResolver(fetcher, time.Minute)

	asset, err := r.Resolve(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.ID != 1 || asset.SzDecimals != 4 {
		t.Fatalf("unexpected asset: %+v", asset)
	}
}

func TestResolveSpotAssetOffsetAndDefaultDecimals(t *testing.T) {
	fetcher := stubFetcher{
		spot: SpotMeta{
			Tokens: []struct {
				Name       string `json:"name"`
				SzDecimals int    `json:"szDecimals"`
			}{
				{Name: "PURR", SzDecimals: 0},
				{Name: "USDC", SzDecimals: 8},
			},
			Universe: []struct {
				Name   string `json:"name"`
				Tokens [2]int `json:"tokens"`
			}{
				{Name: "PURR/USDC", Tokens: [2]int{0, 1}},
				{Name: "GHOST/USDC", Tokens: [2]int{7, 1}},
			},
		},
	}
	r := NewResolver(fetcher, time.Minute)

	asset, err := r.Resolve(context.Background(), "PURR/USDC")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.ID != spotAssetIDOffset {
		t.Fatalf("expected spot asset id offset %d, got %d", spotAssetIDOffset, asset.ID)
	}
	if !asset.IsSpot {
		t.Fatal("expected IsSpot=true")
	}

	ghost, err := r.Resolve(context.Background(), "GHOST/USDC")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ghost.ID != spotAssetIDOffset+1 || ghost.SzDecimals != defaultSpotDecimals {
		t.Fatalf("expected id %d with default decimals %d for an unknown base token, got %+v", spotAssetIDOffset+1, defaultSpotDecimals, ghost)
	}
}

func TestResolveUnknownSymbolErrorsAfterRetry(t *testing.T) {
	fetcher := stubFetcher{}
	r := NewResolver(fetcher, time.Minute)
	if _, err := r.Resolve(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for unknown symbol")
	}
}

func TestResolveCacheExpiresAfterTTL(t *testing.T) {
	fetcher := stubFetcher{
		perp: PerpMeta{Universe: []struct {
			Name       string `json:"name"`
			SzDecimals int    `json:"szDecimals"`
		}{{Name: "BTC", SzDecimals: 5}}},
	}
	r := NewResolver(fetcher, 10*time.Millisecond)
	if _, err := r.Resolve(context.Background(), "BTC"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := r.lookup("BTC"); ok {
		t.Fatal("expected cache entry to be considered stale after ttl")
	}
}
