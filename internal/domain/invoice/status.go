package invoice

import (
	"github.com/qmuntal/stateless"
)

// Status is the lifecycle state of an invoice derived from its paid and deleted flags
type Status string

const (
	StatusUnpaid  Status = "UNPAID"
	StatusPaid    Status = "PAID"
	StatusDeleted Status = "DELETED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

type trigger string

const (
	triggerPay        trigger = "pay"
	triggerAdjust     trigger = "adjust"
	triggerSoftDelete trigger = "soft_delete"
)

// newStatusMachine builds the transition table starting from current.
// Adjustment is a reentry on any active state; a deleted invoice accepts nothing.
func newStatusMachine(current Status) *stateless.StateMachine {
	machine := stateless.NewStateMachine(current)

	machine.Configure(StatusUnpaid).
		Permit(triggerPay, StatusPaid).
		PermitReentry(triggerAdjust).
		Permit(triggerSoftDelete, StatusDeleted)

	machine.Configure(StatusPaid).
		PermitReentry(triggerAdjust).
		Permit(triggerSoftDelete, StatusDeleted)

	machine.Configure(StatusDeleted)

	return machine
}
