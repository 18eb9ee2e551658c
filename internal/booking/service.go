// Package booking is the only mutating entry point for appointments. It
// composes the slot generator (read side) with transactional storage
// writes, and applies the lifecycle rules on every status change.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/availability"
	"github.com/clinicbook/clinicbook/internal/lifecycle"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/outbox"
	"github.com/clinicbook/clinicbook/internal/storage"
)

// Store is the persistence surface the service needs. Implemented by
// *storage.Repository; faked in tests. Methods that change appointment
// state accept the outbox events to commit atomically with the change.
type Store interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	GetPatient(ctx context.Context, id string) (model.Patient, error)

	GetSchedule(ctx context.Context, doctorID string, weekday time.Weekday) (model.Schedule, error)
	ListSchedules(ctx context.Context, doctorID string) ([]model.Schedule, error)
	UpdateSchedule(ctx context.Context, sched model.Schedule) error
	HasFutureAppointmentsOn(ctx context.Context, doctorID string, weekday time.Weekday, after time.Time) (bool, error)

	BookedSlots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeOfDay, error)
	CreateAppointment(ctx context.Context, appt model.Appointment, pay model.Payment, evt outbox.Event) (model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, filter storage.AppointmentFilter) ([]model.Appointment, error)
	MoveAppointment(ctx context.Context, id string, date time.Time, slot model.TimeOfDay) error
	DeleteAppointment(ctx context.Context, id string, evt outbox.Event) error
	SetAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, evt outbox.Event) error

	GetPayment(ctx context.Context, appointmentID string) (model.Payment, error)
	ConfirmPayment(ctx context.Context, appointmentID, providerRef string, evts []outbox.Event) error
}

type Service struct {
	store           Store
	logger          *slog.Logger
	now             func() time.Time
	loc             *time.Location
	reminderOffsets []time.Duration
}

type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the clinic's local timezone used for "today" and
// lead-time checks.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithReminderOffsets sets how long before a confirmed appointment
// reminder events are requested.
func WithReminderOffsets(offsets []time.Duration) Option {
	return func(s *Service) { s.reminderOffsets = offsets }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		logger:          logger,
		now:             time.Now,
		loc:             time.UTC,
		reminderOffsets: []time.Duration{24 * time.Hour},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return lifecycle.DateOnly(s.now().In(s.loc))
}

// AvailableSlots computes the bookable slots for a doctor on a date. An
// empty result is a normal outcome (no schedule, toggled unavailable, or
// fully booked).
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeOfDay, error) {
	if _, err := s.store.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Errorf(KindNotFound, "doctor not found")
		}
		return nil, err
	}

	sched, err := s.store.GetSchedule(ctx, doctorID, date.Weekday())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	booked, err := s.store.BookedSlots(ctx, doctorID, lifecycle.DateOnly(date))
	if err != nil {
		return nil, err
	}
	return availability.AvailableSlots(&sched, booked), nil
}

type CreateParams struct {
	DoctorID string
	Date     time.Time
	Slot     model.TimeOfDay
	// PatientID is required when an admin books on a patient's behalf;
	// ignored for patient callers, who always book for themselves.
	PatientID string
}

// Create books a new appointment in pending status together with its
// unpaid payment row. The slot is validated against the current available
// set, and the storage layer's uniqueness constraint settles concurrent
// requests for the same slot.
func (s *Service) Create(ctx context.Context, actor model.Actor, p CreateParams) (model.Appointment, error) {
	patientID, err := s.resolvePatient(ctx, actor, p.PatientID)
	if err != nil {
		return model.Appointment{}, err
	}

	date := lifecycle.DateOnly(p.Date)
	if err := s.checkLeadTime(date); err != nil {
		return model.Appointment{}, err
	}

	doctor, err := s.store.GetDoctor(ctx, p.DoctorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Appointment{}, Errorf(KindNotFound, "doctor not found")
		}
		return model.Appointment{}, err
	}

	if err := s.checkSlotOpen(ctx, doctor.ID, date, p.Slot); err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		DoctorID:  doctor.ID,
		Date:      date,
		Slot:      p.Slot,
		Status:    model.StatusPending,
	}
	pay := model.Payment{
		// One slot is half an hour of the doctor's time.
		Amount: doctor.HourlyRate / 2,
		Status: model.PaymentUnpaid,
	}

	evt, err := appointmentEvent(outbox.EventAppointmentCreated, appt)
	if err != nil {
		return model.Appointment{}, err
	}

	created, err := s.store.CreateAppointment(ctx, appt, pay, evt)
	if err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			// Lost the race between the availability read and the insert.
			return model.Appointment{}, Errorf(KindConflict, "this slot is no longer available")
		}
		return model.Appointment{}, err
	}
	s.logger.Info("appointment created",
		"appointment_id", created.ID,
		"doctor_id", created.DoctorID,
		"date", created.Date.Format(time.DateOnly),
		"slot", created.Slot.String(),
	)
	return created, nil
}

// Get returns an appointment visible to the actor. Callers who cannot see
// the appointment get the same answer whether or not it exists.
func (s *Service) Get(ctx context.Context, actor model.Actor, id string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Appointment{}, errAppointmentNotVisible
		}
		return model.Appointment{}, err
	}
	if !visibleTo(actor, appt) {
		return model.Appointment{}, errAppointmentNotVisible
	}
	return appt, nil
}

// List returns the actor's appointments: patients and doctors see their
// own, admins see everything.
func (s *Service) List(ctx context.Context, actor model.Actor) ([]model.Appointment, error) {
	var filter storage.AppointmentFilter
	switch actor.Role {
	case model.RolePatient:
		filter.PatientID = actor.PatientID
	case model.RoleDoctor:
		filter.DoctorID = actor.DoctorID
	case model.RoleAdmin:
	default:
		return nil, Errorf(KindUnauthorized, "unauthorized access")
	}
	return s.store.ListAppointments(ctx, filter)
}

// Reschedule changes an appointment's date and/or slot. Permitted only
// while pending and unpaid; afterwards the money has moved and the change
// must go through support.
func (s *Service) Reschedule(ctx context.Context, actor model.Actor, id string, newDate *time.Time, newSlot model.TimeOfDay) (model.Appointment, error) {
	appt, err := s.getOwnedByPatient(ctx, actor, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.Status == model.StatusCompleted {
		return model.Appointment{}, Errorf(KindPolicy, "cannot update an already completed appointment")
	}
	pay, err := s.store.GetPayment(ctx, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !lifecycle.Reschedulable(appt.Status, pay.Status) {
		return model.Appointment{}, Errorf(KindPolicy, "appointment is already paid, contact support to change it")
	}

	date := appt.Date
	if newDate != nil {
		date = lifecycle.DateOnly(*newDate)
	}
	// The effective date must satisfy the lead time even when unchanged:
	// a pending appointment whose day has arrived can no longer move to
	// another slot on that day.
	if err := s.checkLeadTime(date); err != nil {
		return model.Appointment{}, err
	}

	if err := s.checkSlotOpen(ctx, appt.DoctorID, date, newSlot); err != nil {
		return model.Appointment{}, err
	}

	if err := s.store.MoveAppointment(ctx, appt.ID, date, newSlot); err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			return model.Appointment{}, Errorf(KindConflict, "this slot is no longer available")
		}
		return model.Appointment{}, err
	}
	appt.Date = date
	appt.Slot = newSlot
	return appt, nil
}

// Cancel removes an appointment. Patients may withdraw while pending;
// admins may cancel any appointment that has not been completed.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id string) error {
	appt, err := s.getOwnedByPatient(ctx, actor, id)
	if err != nil {
		return err
	}

	if !lifecycle.CancellableBy(actor.Role, appt.Status) {
		if appt.Status == model.StatusCompleted {
			return Errorf(KindPolicy, "cannot delete an already completed appointment")
		}
		return Errorf(KindPolicy, "appointment is already paid, contact support to cancel it")
	}

	evt, err := appointmentEvent(outbox.EventAppointmentCancelled, appt)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAppointment(ctx, appt.ID, evt); err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "by_role", string(actor.Role))
	return nil
}

// MarkOutcome records completed/missed, doctor-only, once the appointment
// date has passed. A future date is a caller error, rejected outright.
func (s *Service) MarkOutcome(ctx context.Context, actor model.Actor, id string, outcome model.AppointmentStatus) (model.Appointment, error) {
	if actor.Role != model.RoleDoctor {
		return model.Appointment{}, Errorf(KindUnauthorized, "only the doctor can record an outcome")
	}
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Appointment{}, errAppointmentNotVisible
		}
		return model.Appointment{}, err
	}
	if appt.DoctorID != actor.DoctorID {
		return model.Appointment{}, errAppointmentNotVisible
	}

	if err := lifecycle.ValidateOutcome(appt, outcome, s.now().In(s.loc)); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotAnOutcome):
			return model.Appointment{}, Errorf(KindValidation, "the status must be updated to either completed or missed")
		case errors.Is(err, lifecycle.ErrFutureAppointment):
			return model.Appointment{}, Errorf(KindPolicy, "cannot update the appointment status for a future date")
		default:
			return model.Appointment{}, Errorf(KindPolicy, "appointment status %s cannot change to %s", appt.Status, outcome)
		}
	}

	appt.Status = outcome
	evt, err := appointmentEvent(outbox.EventAppointmentOutcome, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.store.SetAppointmentStatus(ctx, appt.ID, outcome, evt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// ConfirmPayment is the payment collaborator callback: it moves a pending
// appointment to booked once its payment is confirmed, and requests the
// reminder events. Replays are no-ops.
func (s *Service) ConfirmPayment(ctx context.Context, appointmentID, providerRef string) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Errorf(KindNotFound, "appointment not found")
		}
		return err
	}

	if appt.Status != model.StatusPending {
		if appt.Status == model.StatusBooked {
			return nil // already confirmed, idempotent
		}
		return Errorf(KindPolicy, "appointment status %s cannot change to %s", appt.Status, model.StatusBooked)
	}

	appt.Status = model.StatusBooked
	evts := make([]outbox.Event, 0, 1+len(s.reminderOffsets))
	evt, err := appointmentEvent(outbox.EventAppointmentConfirmed, appt)
	if err != nil {
		return err
	}
	evts = append(evts, evt)
	evts = append(evts, s.reminderEvents(appt)...)

	if err := s.store.ConfirmPayment(ctx, appt.ID, providerRef, evts); err != nil {
		return err
	}
	s.logger.Info("appointment confirmed", "appointment_id", appt.ID, "provider_ref", providerRef)
	return nil
}

func (s *Service) reminderEvents(appt model.Appointment) []outbox.Event {
	now := s.now().In(s.loc)
	start := appt.StartTime()
	var evts []outbox.Event
	for _, offset := range s.reminderOffsets {
		remindAt := start.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"appointment_id": appt.ID,
			"patient_id":     appt.PatientID,
			"doctor_id":      appt.DoctorID,
			"remind_at":      remindAt.UTC().Format(time.RFC3339),
			"start_time":     start.UTC().Format(time.RFC3339),
		})
		if err != nil {
			s.logger.Error("failed to build reminder payload", "err", err)
			continue
		}
		evts = append(evts, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   appt.ID,
			EventType:     outbox.EventReminderRequested,
			Payload:       payload,
		})
	}
	return evts
}

// errAppointmentNotVisible is returned for both a missing appointment and
// one the caller may not see, so responses never leak existence.
var errAppointmentNotVisible = &Error{Kind: KindNotFound, Message: "appointment not found"}

func visibleTo(actor model.Actor, appt model.Appointment) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		return appt.DoctorID == actor.DoctorID
	case model.RolePatient:
		return appt.PatientID == actor.PatientID
	default:
		return false
	}
}

// getOwnedByPatient loads an appointment for a patient-side mutation:
// the owning patient or an admin.
func (s *Service) getOwnedByPatient(ctx context.Context, actor model.Actor, id string) (model.Appointment, error) {
	if actor.Role != model.RolePatient && actor.Role != model.RoleAdmin {
		return model.Appointment{}, Errorf(KindUnauthorized, "unauthorized access")
	}
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Appointment{}, errAppointmentNotVisible
		}
		return model.Appointment{}, err
	}
	if actor.Role == model.RolePatient && appt.PatientID != actor.PatientID {
		return model.Appointment{}, errAppointmentNotVisible
	}
	return appt, nil
}

func (s *Service) resolvePatient(ctx context.Context, actor model.Actor, requested string) (string, error) {
	switch actor.Role {
	case model.RolePatient:
		return actor.PatientID, nil
	case model.RoleAdmin:
		if requested == "" {
			return "", Errorf(KindValidation, "patient_id is required")
		}
		if _, err := s.store.GetPatient(ctx, requested); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", Errorf(KindNotFound, "patient not found")
			}
			return "", err
		}
		return requested, nil
	default:
		return "", Errorf(KindUnauthorized, "only patients and admins can book appointments")
	}
}

// checkLeadTime enforces the minimum lead time: bookings start tomorrow.
// Request dates arrive as UTC midnight while "tomorrow" is clinic-local,
// so the date is re-anchored in the clinic's location before comparing;
// comparing the raw instants would reject tomorrow itself in any zone
// west of UTC.
func (s *Service) checkLeadTime(date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	tomorrow := s.today().AddDate(0, 0, 1)
	if day.Before(tomorrow) {
		return Errorf(KindValidation, "appointment date must be %s or later", tomorrow.Format(time.DateOnly))
	}
	return nil
}

// checkSlotOpen re-validates the requested slot against the current
// available set. This is advisory; the insert's uniqueness constraint is
// what finally settles races.
func (s *Service) checkSlotOpen(ctx context.Context, doctorID string, date time.Time, slot model.TimeOfDay) error {
	if !slot.Valid() {
		return Errorf(KindValidation, "invalid slot %q", slot.String())
	}
	sched, err := s.store.GetSchedule(ctx, doctorID, date.Weekday())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Errorf(KindConflict, "there are no slots available for this day, please choose another day")
		}
		return err
	}
	booked, err := s.store.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return err
	}
	open := availability.AvailableSlots(&sched, booked)
	if len(open) == 0 {
		return Errorf(KindConflict, "there are no slots available for this day, please choose another day")
	}
	if !availability.Contains(open, slot) {
		return Errorf(KindConflict, "this slot is not available")
	}
	return nil
}

func appointmentEvent(eventType string, appt model.Appointment) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
		"date":           appt.Date.Format(time.DateOnly),
		"slot":           appt.Slot.String(),
		"status":         string(appt.Status),
	})
	if err != nil {
		return outbox.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
