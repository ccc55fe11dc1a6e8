// Package assets implements the DEX asset resolver: a TTL-cached mapping
// from coin/pair symbol to numeric asset id and size decimals, refreshed
// from the venue's meta endpoints and retried once on a cache miss.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTTL = 5 * time.Minute

// Asset describes one tradable instrument on a Hyperliquid-shape venue:
// its numeric id (used in the wire "a" field) and its size precision.
type Asset struct {
	ID           int
	Name         string
	SzDecimals   int
	IsSpot       bool
	PairBaseName string // spot only: e.g. "PURR"
}

// MetaFetcher fetches the raw perp-universe and spot-meta documents. It is
// an interface so tests can stub it without a live venue; the production
// implementation wraps internal/httpclient.
type MetaFetcher interface {
	FetchPerpMeta(ctx context.Context) (PerpMeta, error)
	FetchSpotMeta(ctx context.Context) (SpotMeta, error)
}

// PerpMeta mirrors the venue's perp "universe" array: index in the array
// is the asset id.
type PerpMeta struct {
	Universe []struct {
		Name       string `json:"name"`
		SzDecimals int    `json:"szDecimals"`
	} `json:"universe"`
}

// SpotMeta mirrors the venue's spot meta response: tokens[] gives
// szDecimals per token, universe[] gives base/quote token-index pairs;
// spot asset id = 10000 + pair index.
type SpotMeta struct {
	Tokens []struct {
		Name       string `json:"name"`
		SzDecimals int    `json:"szDecimals"`
	} `json:"tokens"`
	Universe []struct {
		Name    string `json:"name"`
		Tokens  [2]int `json:"tokens"`
	} `json:"universe"`
}

const spotAssetIDOffset = 10000

// defaultSpotDecimals is used when a spot pair's base token decimals
// cannot be determined from the fetched meta (Open Question #1: default
// rather than refuse, see DESIGN.md).
const defaultSpotDecimals = 8

// Resolver caches Asset lookups by symbol with a TTL, refreshing and
// retrying once on a miss before giving up.
type Resolver struct {
	fetcher MetaFetcher
	ttl     time.Duration

	mu         sync.RWMutex
	byName     map[string]Asset
	byIndex    map[int]Asset
	lastReload time.Time
}

// NewResolver builds a Resolver. ttl defaults to 5 minutes when <= 0.
func NewResolver(fetcher MetaFetcher, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Resolver{
		fetcher: fetcher,
		ttl:     ttl,
		byName:  make(map[string]Asset),
		byIndex: make(map[int]Asset),
	}
}

// Resolve looks up symbol, refreshing the cache if it is empty or stale,
// and retrying exactly once after a forced refresh if the symbol is still
// unknown.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Asset, error) {
	if asset, ok := r.lookup(symbol); ok {
		return asset, nil
	}

	if err := r.reload(ctx); err != nil {
		return Asset{}, fmt.Errorf("reload asset meta: %w", err)
	}
	if asset, ok := r.lookup(symbol); ok {
		return asset, nil
	}

	return Asset{}, fmt.Errorf("assets: unknown symbol %q after refresh", symbol)
}

func (r *Resolver) lookup(symbol string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastReload) > r.ttl {
		return Asset{}, false
	}
	asset, ok := r.byName[symbol]
	return asset, ok
}

// ResolveSpotIndex looks up a spot pair by its wire index N (the form a
// Hyperliquid-shape coin name takes when written "@N"), refreshing and
// retrying once on a miss exactly like Resolve.
func (r *Resolver) ResolveSpotIndex(ctx context.Context, index int) (Asset, error) {
	if asset, ok := r.lookupIndex(index); ok {
		return asset, nil
	}
	if err := r.reload(ctx); err != nil {
		return Asset{}, fmt.Errorf("reload asset meta: %w", err)
	}
	if asset, ok := r.lookupIndex(index); ok {
		return asset, nil
	}
	return Asset{}, fmt.Errorf("assets: unknown spot index %d after refresh", index)
}

func (r *Resolver) lookupIndex(index int) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastReload) > r.ttl {
		return Asset{}, false
	}
	asset, ok := r.byIndex[index]
	return asset, ok
}

// RefreshAll forces an unconditional reload of both perp and spot meta,
// regardless of TTL.
func (r *Resolver) RefreshAll(ctx context.Context) error {
	return r.reload(ctx)
}

func (r *Resolver) reload(ctx context.Context) error {
	perp, err := r.fetcher.FetchPerpMeta(ctx)
	if err != nil {
		return fmt.Errorf("fetch perp meta: %w", err)
	}
	spot, err := r.fetcher.FetchSpotMeta(ctx)
	if err != nil {
		return fmt.Errorf("fetch spot meta: %w", err)
	}

	byName := make(map[string]Asset, len(perp.Universe)+len(spot.Universe))
	byIndex := make(map[int]Asset, len(spot.Universe))
	for i, u := range perp.Universe {
		byName[u.Name] = Asset{ID: i, Name: u.Name, SzDecimals: u.SzDecimals}
	}

	tokenDecimals := make(map[int]int, len(spot.Tokens))
	tokenName := make(map[int]string, len(spot.Tokens))
	for i, tok := range spot.Tokens {
		tokenDecimals[i] = tok.SzDecimals
		tokenName[i] = tok.Name
	}

	for i, pair := range spot.Universe {
		baseIdx := pair.Tokens[0]
		decimals, ok := tokenDecimals[baseIdx]
		if !ok {
			log.Warn().Str("pair", pair.Name).Msg("spot pair base token decimals not found, defaulting")
			decimals = defaultSpotDecimals
		}
		name := pair.Name
		if name == "" {
			name = tokenName[baseIdx]
		}
		asset := Asset{
			ID:           spotAssetIDOffset + i,
			Name:         name,
			SzDecimals:   decimals,
			IsSpot:       true,
			PairBaseName: tokenName[baseIdx],
		}
		byName[name] = asset
		byIndex[i] = asset
	}

	r.mu.Lock()
	r.byName = byName
	r.byIndex = byIndex
	r.lastReload = time.Now()
	r.mu.Unlock()
	return nil
}

// HTTPMetaFetcher is the production MetaFetcher, backed by a plain HTTP
// getter so it can share internal/httpclient.Client without importing it
// directly here (keeps this package testable with httptest servers too).
type HTTPMetaFetcher struct {
	// Get performs a POST to path with body and returns the response body.
	Get func(ctx context.Context, path string, body []byte) ([]byte, error)
}

func (f HTTPMetaFetcher) FetchPerpMeta(ctx context.Context) (PerpMeta, error) {
	body, err := f.Get(ctx, "/info", []byte(`{"type":"meta"}`))
	if err != nil {
		return PerpMeta{}, err
	}
	var meta PerpMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return PerpMeta{}, fmt.Errorf("decode perp meta: %w", err)
	}
	return meta, nil
}

func (f HTTPMetaFetcher) FetchSpotMeta(ctx context.Context) (SpotMeta, error) {
	body, err := f.Get(ctx, "/info", []byte(`{"type":"spotMeta"}`))
	if err != nil {
		return SpotMeta{}, err
	}
	var meta SpotMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return SpotMeta{}, fmt.Errorf("decode spot meta: %w", err)
	}
	return meta, nil
}
