package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/clinicbook/clinicbook/internal/model"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]model.AppointmentStatus]bool{
		{model.StatusPending, model.StatusBooked}:   true,
		{model.StatusBooked, model.StatusCompleted}: true,
		{model.StatusBooked, model.StatusMissed}:    true,
	}
	statuses := []model.AppointmentStatus{
		model.StatusPending, model.StatusBooked, model.StatusCompleted, model.StatusMissed,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]model.AppointmentStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestValidateOutcome(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	appt := func(status model.AppointmentStatus, d time.Time) model.Appointment {
		return model.Appointment{Status: status, Date: d}
	}
	yesterday := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	if err := ValidateOutcome(appt(model.StatusBooked, yesterday), model.StatusCompleted, now); err != nil {
		t.Fatalf("past booked -> completed should pass: %v", err)
	}
	if err := ValidateOutcome(appt(model.StatusBooked, yesterday), model.StatusMissed, now); err != nil {
		t.Fatalf("past booked -> missed should pass: %v", err)
	}

	// Same-day is still a future appointment for outcome purposes.
	if err := ValidateOutcome(appt(model.StatusBooked, today), model.StatusCompleted, now); !errors.Is(err, ErrFutureAppointment) {
		t.Fatalf("same-day: err = %v, want ErrFutureAppointment", err)
	}
	if err := ValidateOutcome(appt(model.StatusBooked, tomorrow), model.StatusCompleted, now); !errors.Is(err, ErrFutureAppointment) {
		t.Fatalf("tomorrow: err = %v, want ErrFutureAppointment", err)
	}

	if err := ValidateOutcome(appt(model.StatusPending, yesterday), model.StatusCompleted, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending: err = %v, want ErrInvalidTransition", err)
	}
	// For a future appointment the date wins over the status check.
	if err := ValidateOutcome(appt(model.StatusPending, tomorrow), model.StatusCompleted, now); !errors.Is(err, ErrFutureAppointment) {
		t.Fatalf("future pending: err = %v, want ErrFutureAppointment", err)
	}
	if err := ValidateOutcome(appt(model.StatusBooked, yesterday), model.StatusBooked, now); !errors.Is(err, ErrNotAnOutcome) {
		t.Fatalf("booked target: err = %v, want ErrNotAnOutcome", err)
	}
}

func TestValidateOutcomeComparesCalendarDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// Evening in New York; the stored UTC-midnight date is an earlier
	// instant, but on the calendar it is still today.
	now := time.Date(2026, time.June, 10, 20, 0, 0, 0, loc)

	sameDay := model.Appointment{Status: model.StatusBooked, Date: time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)}
	if err := ValidateOutcome(sameDay, model.StatusCompleted, now); !errors.Is(err, ErrFutureAppointment) {
		t.Fatalf("same-day: err = %v, want ErrFutureAppointment", err)
	}

	past := model.Appointment{Status: model.StatusBooked, Date: time.Date(2026, time.June, 9, 0, 0, 0, 0, time.UTC)}
	if err := ValidateOutcome(past, model.StatusCompleted, now); err != nil {
		t.Fatalf("yesterday should pass: %v", err)
	}
}

func TestCancellableBy(t *testing.T) {
	cases := []struct {
		role   model.Role
		status model.AppointmentStatus
		want   bool
	}{
		{model.RolePatient, model.StatusPending, true},
		{model.RolePatient, model.StatusBooked, false},
		{model.RolePatient, model.StatusCompleted, false},
		{model.RoleAdmin, model.StatusPending, true},
		{model.RoleAdmin, model.StatusBooked, true},
		{model.RoleAdmin, model.StatusMissed, true},
		{model.RoleAdmin, model.StatusCompleted, false},
		{model.RoleDoctor, model.StatusPending, false},
		{model.RoleDoctor, model.StatusBooked, false},
	}
	for _, tc := range cases {
		if got := CancellableBy(tc.role, tc.status); got != tc.want {
			t.Errorf("CancellableBy(%s, %s) = %v, want %v", tc.role, tc.status, got, tc.want)
		}
	}
}

func TestReschedulable(t *testing.T) {
	if !Reschedulable(model.StatusPending, model.PaymentUnpaid) {
		t.Fatal("pending+unpaid should be reschedulable")
	}
	if Reschedulable(model.StatusPending, model.PaymentPaid) {
		t.Fatal("paid appointment must not be reschedulable")
	}
	if Reschedulable(model.StatusBooked, model.PaymentPaid) {
		t.Fatal("booked appointment must not be reschedulable")
	}
}

func TestDateOnly(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	ts := time.Date(2026, time.July, 4, 23, 45, 0, 0, loc)
	got := DateOnly(ts)
	if got.Hour() != 0 || got.Minute() != 0 || got.Day() != 4 {
		t.Fatalf("DateOnly = %v", got)
	}
	if got.Location() != loc {
		t.Fatal("location not preserved")
	}
}
