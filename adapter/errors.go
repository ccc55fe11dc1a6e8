package adapter

// ReasonCode is the machine-readable rejection code every synchronous
// reject carries.
type ReasonCode string

const (
	ReasonInvalidParams          ReasonCode = "invalid_params"
	ReasonIdempotentDuplicate    ReasonCode = "idempotent_duplicate"
	ReasonUnknownVenue           ReasonCode = "unknown_venue"
	ReasonSymbolResolutionFailed ReasonCode = "symbol_resolution_failed"
	ReasonSignerUnavailable      ReasonCode = "signer_unavailable"
	ReasonTransportFailed        ReasonCode = "transport_failed"
	ReasonHTTPStatusError        ReasonCode = "http_status_error"
	ReasonRateLimited            ReasonCode = "rate_limited"
	ReasonVenueRejected          ReasonCode = "venue_rejected"
	ReasonExpired                ReasonCode = "expired"
	ReasonNotFound               ReasonCode = "not_found"
	ReasonNotImplemented         ReasonCode = "not_implemented"
)

// Error is a rejection carrying both a machine-readable reason code and a
// human-readable message, so ingress can build an execution report with
// status=rejected directly from it.
type Error struct {
	Reason  ReasonCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Reason) + ": " + e.Message
}

// NewError builds a rejection Error.
func NewError(reason ReasonCode, message string) *Error {
	return &Error{Reason: reason, Message: message}
}
