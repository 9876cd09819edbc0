package order

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
	StatusRefunded   Status = "Refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// next is the happy path successor of each non-terminal status.
var next = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CheckTransition validates a move from one status to another. Delivered is
// only reachable through delivery confirmation and is rejected here with
// ErrDeliveryCodeRequired.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	if from.Terminal() || from == to {
		return &TransitionError{From: from, To: to}
	}
	switch to {
	case StatusDelivered:
		return ErrDeliveryCodeRequired
	case StatusCancelled, StatusRefunded:
		return nil
	}
	if next[from] != to {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
