package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses. The happy path runs pending, processing, shipped,
// delivered; any non-terminal status may be cancelled.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ErrTrackingNumberRequired is returned when shipping without a tracking number.
var ErrTrackingNumberRequired = errors.New("tracking number required to ship")

// InvalidTransitionError is returned for a transition the state machine
// does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

var next = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// ParseStatus returns the status named s.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Allowed returns the statuses reachable from s in one step, the next
// happy path status first.
func (s Status) Allowed() []Status {
	if !s.Valid() || s.Terminal() {
		return nil
	}
	return []Status{next[s], StatusCancelled}
}

// CanTransition reports whether s may move to to.
func (s Status) CanTransition(to Status) bool {
	for _, a := range s.Allowed() {
		if a == to {
			return true
		}
	}
	return false
}

// Transition moves o to status to. Shipping requires a tracking number,
// which is stored together with the status. o is left untouched on error.
func Transition(o *Order, to Status, trackingNumber string) error {
	if !o.Status.CanTransition(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	if to == StatusShipped {
		if trackingNumber == "" {
			return ErrTrackingNumberRequired
		}
		o.TrackingNumber = trackingNumber
	}
	o.Status = to
	return nil
}
