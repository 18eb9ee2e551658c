// Package lifecycle is the appointment status state machine. All status
// checks live here so handlers and the booking service share one
// transition table instead of re-checking status strings ad hoc.
package lifecycle

import (
	"errors"
	"time"

	"github.com/clinicbook/clinicbook/internal/model"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFutureAppointment = errors.New("cannot update the appointment status for a future date")
	ErrNotAnOutcome      = errors.New("status must be completed or missed")
)

// Forward transitions only. Cancellation is a deletion, not a status, and
// completed/missed are terminal.
var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusPending: {model.StatusBooked},
	model.StatusBooked:  {model.StatusCompleted, model.StatusMissed},
}

func CanTransition(from, to model.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateOutcome checks a doctor marking an appointment completed or
// missed. The appointment date must already be in the past, and only
// booked appointments have an outcome (a pending one was never paid
// for). The date check runs first so a future appointment is reported
// as such regardless of its current status.
func ValidateOutcome(appt model.Appointment, outcome model.AppointmentStatus, now time.Time) error {
	if outcome != model.StatusCompleted && outcome != model.StatusMissed {
		return ErrNotAnOutcome
	}
	// Stored dates may carry a different zone than the clock (UTC
	// midnight vs clinic-local now), so compare calendar days in the
	// clock's location rather than instants.
	apptDay := time.Date(appt.Date.Year(), appt.Date.Month(), appt.Date.Day(), 0, 0, 0, 0, now.Location())
	if !apptDay.Before(DateOnly(now)) {
		return ErrFutureAppointment
	}
	if !CanTransition(appt.Status, outcome) {
		return ErrInvalidTransition
	}
	return nil
}

// CancellableBy reports whether the role may cancel an appointment in the
// given status. Patients may only withdraw while pending; admins may
// cancel anything that has not been completed and billed; doctors never
// cancel directly.
func CancellableBy(role model.Role, status model.AppointmentStatus) bool {
	switch role {
	case model.RolePatient:
		return status == model.StatusPending
	case model.RoleAdmin:
		return status != model.StatusCompleted
	default:
		return false
	}
}

// Reschedulable reports whether an appointment's date/slot may still
// change: only while pending and unpaid.
func Reschedulable(status model.AppointmentStatus, payment model.PaymentStatus) bool {
	return status == model.StatusPending && payment != model.PaymentPaid
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
