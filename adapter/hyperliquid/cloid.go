package hyperliquid

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/latentspeed/gateway/adapter"
)

// cloidShapeLen is "0x" + 32 hex chars (a 128-bit value).
const cloidShapeLen = 2 + 32

// isValidCloidShape reports whether s already matches Hyperliquid's client
// order id shape: 0x followed by exactly 32 lowercase hex digits.
func isValidCloidShape(s string) bool {
	if len(s) != cloidShapeLen || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// newRandomCloid generates a fresh 0x+32-hex cloid from a random 128-bit
// value. google/uuid's v4 generator is used purely as a convenient source
// of cryptographically random bits: 122 of the 128 bits are random, and
// the 6 fixed UUID version/variant bits are irrelevant here since the
// result is consumed only as an opaque hex string.
func newRandomCloid() string {
	return "0x" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// orderRole distinguishes a submitted order's relationship to the position
// it targets: a plain order has no special role; trigger orders are
// tagged so a future cancel/replace can tell a take-profit leg from a
// stop-loss leg.
type orderRole string

const (
	orderRolePrimary    orderRole = "primary"
	orderRoleTakeProfit orderRole = "take_profit"
	orderRoleStopLoss   orderRole = "stop_loss"
)

// orderRecord is what the adapter remembers about a client id across its
// lifetime: the cloid assigned to it, the exchange oid once known, the
// asset/symbol needed to build cancel/modify payloads, and its role.
type orderRecord struct {
	ClientID string
	Cloid    string
	Oid      int64
	HasOid   bool
	AssetID  int
	Symbol   string
	Role     orderRole
	Req      adapter.OrderRequest
}

// orderMaps is the mutex-guarded cloid<->client-id<->oid index shared by
// the DEX adapter.
type orderMaps struct {
	mu          sync.Mutex
	byClientID  map[string]*orderRecord
	byCloid     map[string]*orderRecord
	byOid       map[int64]*orderRecord
}

func newOrderMaps() *orderMaps {
	return &orderMaps{
		byClientID: make(map[string]*orderRecord),
		byCloid:    make(map[string]*orderRecord),
		byOid:      make(map[int64]*orderRecord),
	}
}

// ensureCloid returns the caller-supplied client id as a cloid if it
// already has the right shape, otherwise mints a fresh random one and
// records the client_id<->cloid association. The original request is
// retained so ModifyOrder can later reconstruct a place-order call after
// a cancel (see DESIGN.md's Open Question decision).
func (m *orderMaps) ensureCloid(req adapter.OrderRequest, assetID int, role orderRole) *orderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.byClientID[req.ClientID]; ok {
		return rec
	}

	cloid := req.ClientID
	if !isValidCloidShape(cloid) {
		cloid = newRandomCloid()
	}
	rec := &orderRecord{ClientID: req.ClientID, Cloid: cloid, AssetID: assetID, Symbol: req.Symbol, Role: role, Req: req}
	m.byClientID[req.ClientID] = rec
	m.byCloid[cloid] = rec
	return rec
}

func (m *orderMaps) setOid(clientID string, oid int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byClientID[clientID]
	if !ok {
		return
	}
	rec.Oid = oid
	rec.HasOid = true
	m.byOid[oid] = rec
}

func (m *orderMaps) byClient(clientID string) (*orderRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byClientID[clientID]
	return rec, ok
}

func (m *orderMaps) byCloidValue(cloid string) (*orderRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byCloid[cloid]
	return rec, ok
}

func (m *orderMaps) byOidValue(oid int64) (*orderRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byOid[oid]
	return rec, ok
}

func (m *orderMaps) remove(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byClientID[clientID]
	if !ok {
		return
	}
	delete(m.byClientID, clientID)
	delete(m.byCloid, rec.Cloid)
	if rec.HasOid {
		delete(m.byOid, rec.Oid)
	}
}
