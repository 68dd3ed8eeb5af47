package pharmacy

// OrderStatus is the closed set of order states. Orders created by the
// request router start as StatusPending (gated) or StatusAutoApproved
// (instant purchase); only the approval workflow moves them afterwards.
type OrderStatus string

const (
	StatusPending      OrderStatus = "pending"
	StatusApproved     OrderStatus = "approved"
	StatusRejected     OrderStatus = "rejected"
	StatusFulfilled    OrderStatus = "fulfilled"
	StatusAutoApproved OrderStatus = "auto_approved"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFulfilled, StatusAutoApproved:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusFulfilled, StatusAutoApproved:
		return true
	case StatusPending, StatusApproved:
		return false
	}
	return false
}

// CanTransitionTo is the single source of truth for the state machine:
// pending -> approved | rejected, approved -> fulfilled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusFulfilled
	case StatusRejected, StatusFulfilled, StatusAutoApproved:
		return false
	}
	return false
}
