package hyperliquid

import (
	"context"
	"sync"
	"time"

	"github.com/latentspeed/gateway/adapter"
)

const defaultBatchCadence = 100 * time.Millisecond

// batchItem is one order queued for the next flush; respond delivers that
// order's translated response (or a transport-level error shared by the
// whole batch) back to the caller blocked in PlaceOrder.
type batchItem struct {
	clientID string
	wire     orderWire
	respond  func(adapter.OrderResponse, error)
}

// batcher implements the q_fast/q_alo submission queues: a ticker wakes
// every cadence and flushes each non-empty queue as one signed "order"
// action.
type batcher struct {
	cadence time.Duration
	send    func(ctx context.Context, items []batchItem)

	mu    sync.Mutex
	qFast []batchItem
	qAlo  []batchItem
}

func newBatcher(cadence time.Duration, send func(ctx context.Context, items []batchItem)) *batcher {
	if cadence <= 0 {
		cadence = defaultBatchCadence
	}
	return &batcher{cadence: cadence, send: send}
}

// enqueueFast queues a non-post-only limit order (q_fast). IOC and FOK
// orders are submitted directly by PlaceOrder and never reach this queue.
func (b *batcher) enqueueFast(item batchItem) {
	b.mu.Lock()
	b.qFast = append(b.qFast, item)
	b.mu.Unlock()
}

// enqueueAlo queues a post-only limit order (q_alo).
func (b *batcher) enqueueAlo(item batchItem) {
	b.mu.Lock()
	b.qAlo = append(b.qAlo, item)
	b.mu.Unlock()
}

// run drives the flush ticker until ctx is cancelled.
func (b *batcher) run(ctx context.Context) {
	ticker := time.NewTicker(b.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.flush(ctx, &b.qFast)
			b.flush(ctx, &b.qAlo)
		case <-ctx.Done():
			return
		}
	}
}

func (b *batcher) flush(ctx context.Context, q *[]batchItem) {
	b.mu.Lock()
	items := *q
	*q = nil
	b.mu.Unlock()
	if len(items) == 0 {
		return
	}
	b.send(ctx, items)
}
