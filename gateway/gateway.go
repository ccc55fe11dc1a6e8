package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/rs/zerolog/log"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/internal/hft"
	"github.com/latentspeed/gateway/internal/router"
	"github.com/latentspeed/gateway/tracker"
)

// egressRingCapacity is rounded up to a power of two by hft.NewSPSCRing.
const egressRingCapacity = 4096

// Gateway owns the two bus sockets and the ingress/publisher goroutines.
// One ingress thread pulls and fully processes each intent (including
// the blocking adapter call) before pulling the next, so a slow venue
// response cannot reorder reports relative to the intents that caused
// them.
type Gateway struct {
	ingressAddr string
	egressAddr  string

	router  *router.Router
	tracker *tracker.Tracker

	processedIDs *hft.FlatMap[struct{}]
	ring         *hft.SPSCRing[[]byte]
	// publishMu serializes the ring's producer side: SPSCRing.TryPush has
	// no CAS and assumes exactly one caller. The ingress goroutine and the
	// adapter callback goroutines wired in Handlers() both call publish,
	// so they're funneled through this lock to present the ring with a
	// single effective producer.
	publishMu sync.Mutex

	ingressSock zmq4.Socket
	egressSock  zmq4.Socket

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Gateway. processedIDCapacity is the bounded idempotency
// set's fixed size. The tracker is wired in separately via AttachTracker,
// since the tracker's own construction needs Handlers() from this
// Gateway first.
func New(ingressAddr, egressAddr string, r *router.Router, processedIDCapacity int) *Gateway {
	return &Gateway{
		ingressAddr:  ingressAddr,
		egressAddr:   egressAddr,
		router:       r,
		processedIDs: hft.NewFlatMap[struct{}](processedIDCapacity),
		ring:         hft.NewSPSCRing[[]byte](egressRingCapacity),
		stopCh:       make(chan struct{}),
	}
}

// AttachTracker wires the order-state tracker in after construction,
// breaking the New/Handlers/tracker.New construction cycle: Handlers()
// must exist to build the tracker, so the tracker can't be a New()
// parameter. Must be called before Start.
func (g *Gateway) AttachTracker(t *tracker.Tracker) {
	g.tracker = t
}

// Handlers returns the tracker.EventHandlers that enqueue every order
// update and fill into the egress ring, so adapter callbacks never write
// to the PUB socket directly — only the publisher goroutine touches
// egressSock. An event that carries no tags of its own is published with
// the tracked order's tags, so an intent's tags reach its reports.
func (g *Gateway) Handlers() tracker.EventHandlers {
	return tracker.EventHandlers{
		OnOrderUpdate: func(o *adapter.InFlightOrder, update tracker.OrderUpdate) {
			if len(update.Tags) == 0 {
				update.Tags = o.Tags
			}
			g.publish(newOrderUpdateWire(update))
		},
		OnOrderFilled: func(o *adapter.InFlightOrder, trade tracker.Trade) {
			if len(trade.Tags) == 0 {
				trade.Tags = o.Tags
			}
			g.publish(newFillWire(trade))
		},
	}
}

// Start binds the PULL/PUB sockets and launches the ingress worker and
// the egress publisher worker.
func (g *Gateway) Start(ctx context.Context) error {
	g.ingressSock = zmq4.NewPull(ctx)
	if err := g.ingressSock.Listen(g.ingressAddr); err != nil {
		return err
	}
	g.egressSock = zmq4.NewPub(ctx)
	if err := g.egressSock.Listen(g.egressAddr); err != nil {
		g.ingressSock.Close()
		return err
	}

	log.Info().Str("ingress", g.ingressAddr).Str("egress", g.egressAddr).Msg("gateway bus sockets bound")

	g.wg.Add(2)
	go g.publisherLoop()
	go g.ingressLoop(ctx)
	return nil
}

// Stop closes both sockets (unblocking Recv in the ingress loop) and
// waits for both workers to exit. Shutdown is cooperative via a closed
// channel plus closing sockets.
func (g *Gateway) Stop() {
	close(g.stopCh)
	if g.ingressSock != nil {
		g.ingressSock.Close()
	}
	if g.egressSock != nil {
		g.egressSock.Close()
	}
	g.wg.Wait()
}

func (g *Gateway) ingressLoop(ctx context.Context) {
	defer g.wg.Done()
	for {
		select {
		case <-g.stopCh:
			return
		default:
		}

		msg, err := g.ingressSock.Recv()
		if err != nil {
			select {
			case <-g.stopCh:
				return
			default:
				log.Warn().Err(err).Msg("gateway: ingress recv failed")
				continue
			}
		}
		g.handleIntent(ctx, msg.Bytes())
	}
}

// handleIntent runs the whole ingress pipeline for one message: parse,
// validate, idempotency check, router lookup, adapter dispatch, and
// synchronous accept/reject reporting.
func (g *Gateway) handleIntent(ctx context.Context, raw []byte) {
	var intent adapter.OrderIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		g.publish(rejectionWire("", adapter.NewError(adapter.ReasonInvalidParams, "malformed intent json: "+err.Error()).Error(), nowMs()))
		return
	}

	if err := validateIntent(intent); err != nil {
		g.publish(rejectionWire(intent.ClientID, err.Error(), nowMs()))
		return
	}

	if g.processedIDs.Contains(intent.ClientID) {
		g.publish(rejectionWire(intent.ClientID, adapter.NewError(adapter.ReasonIdempotentDuplicate, "client id already seen").Error(), nowMs()))
		return
	}

	a, ok := g.router.Get(intent.Venue)
	if !ok {
		g.publish(rejectionWire(intent.ClientID, adapter.NewError(adapter.ReasonUnknownVenue, "no adapter registered for "+intent.Venue).Error(), nowMs()))
		return
	}

	g.processedIDs.Put(intent.ClientID, struct{}{})

	switch intent.Action {
	case adapter.IntentActionPlace:
		g.handlePlace(ctx, a, intent)
	case adapter.IntentActionCancel:
		g.handleCancel(ctx, a, intent)
	case adapter.IntentActionReplace:
		g.handleReplace(ctx, a, intent)
	}
}

func (g *Gateway) handlePlace(ctx context.Context, a adapter.Adapter, intent adapter.OrderIntent) {
	req, err := buildOrderRequest(intent)
	if err != nil {
		g.publish(rejectionWire(intent.ClientID, err.Error(), nowMs()))
		return
	}

	// Track before submit: inbound WS events racing ahead of the REST
	// response must still find the client id tracked.
	g.tracker.StartTracking(newInFlightOrder(intent, req))

	resp, err := a.PlaceOrder(ctx, req)
	if err != nil {
		g.tracker.ProcessOrderUpdate(tracker.OrderUpdate{
			ClientID:    intent.ClientID,
			Status:      adapter.StatusRejected,
			Reason:      err.Error(),
			TimestampMs: nowMs(),
		})
		g.publish(rejectionWire(intent.ClientID, err.Error(), nowMs()))
		return
	}
	if !resp.Success {
		g.tracker.ProcessOrderUpdate(tracker.OrderUpdate{
			ClientID:    intent.ClientID,
			Status:      adapter.StatusRejected,
			Reason:      resp.Message,
			TimestampMs: nowMs(),
		})
		g.publish(rejectionWire(intent.ClientID, adapter.NewError(adapter.ReasonVenueRejected, resp.Message).Error(), nowMs()))
		return
	}

	status := resp.Status
	if status == "" {
		status = adapter.StatusAccepted
	}
	// ProcessOrderUpdate alone carries the acceptance onto the wire via
	// OnOrderUpdate; publishing acceptanceWire here too would double-report.
	g.tracker.ProcessOrderUpdate(tracker.OrderUpdate{
		ClientID:    resp.ClientID,
		ExchangeID:  resp.ExchangeID,
		Status:      status,
		Reason:      resp.Message,
		TimestampMs: nowMs(),
	})
}

func (g *Gateway) handleCancel(ctx context.Context, a adapter.Adapter, intent adapter.OrderIntent) {
	d := intent.Details
	resp, err := a.CancelOrder(ctx, intent.ClientID, strPtrOrNil(d, "symbol"), strPtrOrNil(d, "exchange_id"))
	if err != nil {
		g.publish(rejectionWire(intent.ClientID, err.Error(), nowMs()))
		return
	}
	g.publish(acceptanceWire(resp, nowMs()))
}

func (g *Gateway) handleReplace(ctx context.Context, a adapter.Adapter, intent adapter.OrderIntent) {
	d := intent.Details
	resp, err := a.ModifyOrder(ctx, intent.ClientID, strPtrOrNil(d, "quantity"), strPtrOrNil(d, "price"))
	if err != nil {
		g.publish(rejectionWire(intent.ClientID, err.Error(), nowMs()))
		return
	}
	g.publish(acceptanceWire(resp, nowMs()))
}

// publish marshals v and pushes it onto the egress ring. A full ring
// drops the report with a warning rather than blocking the producer
// (adapter callback or ingress thread) — the ring itself never blocks.
// publishMu serializes callers so the ring only ever sees one producer
// at a time, as its TryPush implementation requires.
func (g *Gateway) publish(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("gateway: failed to marshal egress report")
		return
	}
	g.publishMu.Lock()
	ok := g.ring.TryPush(raw)
	g.publishMu.Unlock()
	if !ok {
		log.Warn().Msg("gateway: egress ring full, dropping report")
	}
}

// publisherLoop drains the ring and writes to the PUB socket. The ring
// is polled with a short idle sleep rather than busy-spun continuously,
// so the publisher backs off instead of pegging a core while idle.
func (g *Gateway) publisherLoop() {
	defer g.wg.Done()
	idle := time.NewTicker(time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case <-g.stopCh:
			g.drainRing()
			return
		case <-idle.C:
			g.drainRing()
		}
	}
}

func (g *Gateway) drainRing() {
	for {
		raw, ok := g.ring.TryPop()
		if !ok {
			return
		}
		if err := g.egressSock.Send(zmq4.NewMsg(raw)); err != nil {
			log.Warn().Err(err).Msg("gateway: egress send failed")
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
