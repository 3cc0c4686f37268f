package book

// Reason classifies a MatchingError.
type Reason uint8

const (
	// ReasonNoCounterparty means a price level holds no order the incoming
	// order may trade with (empty, or only same-account orders).
	ReasonNoCounterparty Reason = iota + 1
	// ReasonOrderFilled means an order with nothing left to fill was handed
	// to a level, either as aggressor or for resting.
	ReasonOrderFilled
	// ReasonDuplicateOrder means an order with the same priority key
	// already rests at the level.
	ReasonDuplicateOrder
)

// MatchingError is a cheap signal raised inside the matching core. Values
// are pre-allocated and compared by identity; no call stack is captured.
type MatchingError struct {
	Reason Reason
	msg    string
}

func (e *MatchingError) Error() string { return e.msg }

var (
	ErrDuplicateOrder = &MatchingError{Reason: ReasonDuplicateOrder, msg: "book: order already rests at price level"}
	ErrNoCounterparty = &MatchingError{Reason: ReasonNoCounterparty, msg: "book: no eligible counterparty at price level"}
	ErrOrderFilled    = &MatchingError{Reason: ReasonOrderFilled, msg: "book: order has no remaining quantity"}
)
