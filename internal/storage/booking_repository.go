package storage

import (
	"context"
	"time"

	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/outbox"
)

// BookedSlots returns the slots with an active appointment for a doctor
// on one date, any status. Cancelled appointments are deleted rows, so
// they never block.
func (r *Repository) BookedSlots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_minute
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY slot_minute ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.TimeOfDay
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		slots = append(slots, model.TimeOfDay(m))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}

// CreateAppointment inserts the appointment, its payment row, and the
// created event in one transaction. The unique index on
// (doctor_id, appointment_date, slot_minute) turns a concurrent insert
// for the same slot into ErrSlotTaken.
func (r *Repository) CreateAppointment(ctx context.Context, appt model.Appointment, pay model.Payment, evt outbox.Event) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, slot_minute, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.Date, int(appt.Slot), string(appt.Status)).Scan(&appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, translateUnique(err, "appointments_doctor_date_slot_key", ErrSlotTaken)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (appointment_id, amount, status)
		VALUES ($1, $2, $3)
	`, appt.ID, pay.Amount, string(model.PaymentUnpaid)); err != nil {
		return model.Appointment{}, err
	}

	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *Repository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	var slot int
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, patient_id::text, doctor_id::text, appointment_date, slot_minute, status, created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &slot, &status, &a.CreatedAt)
	if err != nil {
		return model.Appointment{}, translateNoRows(err)
	}
	a.Slot = model.TimeOfDay(slot)
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

// AppointmentFilter scopes ListAppointments; zero fields mean no filter.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Limit     int
}

func (r *Repository) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_id::text, doctor_id::text, appointment_date, slot_minute, status, created_at
		FROM appointments
		WHERE ($1 = '' OR doctor_id::text = $1)
			AND ($2 = '' OR patient_id::text = $2)
		ORDER BY appointment_date DESC, slot_minute ASC
		LIMIT $3
	`, filter.DoctorID, filter.PatientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var slot int
		var status string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &slot, &status, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Slot = model.TimeOfDay(slot)
		a.Status = model.AppointmentStatus(status)
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// MoveAppointment reschedules; the uniqueness constraint settles races on
// the target slot just like on create.
func (r *Repository) MoveAppointment(ctx context.Context, id string, date time.Time, slot model.TimeOfDay) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
			slot_minute = $3,
			updated_at = now()
		WHERE id = $1
	`, id, date, int(slot))
	if err != nil {
		return translateUnique(err, "appointments_doctor_date_slot_key", ErrSlotTaken)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAppointment removes the appointment (cancellation); the payment
// row goes with it via ON DELETE CASCADE, and the cancelled event commits
// in the same transaction.
func (r *Repository) DeleteAppointment(ctx context.Context, id string, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) SetAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetPayment(ctx context.Context, appointmentID string) (model.Payment, error) {
	var p model.Payment
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT appointment_id::text, amount, status, COALESCE(provider_ref, ''), updated_at
		FROM payments
		WHERE appointment_id = $1
	`, appointmentID).Scan(&p.AppointmentID, &p.Amount, &status, &p.ProviderRef, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, translateNoRows(err)
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

// ConfirmPayment marks the payment paid and the appointment booked in one
// transaction, locking the appointment row so a concurrent replay cannot
// double-apply, and commits the confirmation + reminder events with it.
func (r *Repository) ConfirmPayment(ctx context.Context, appointmentID, providerRef string, evts []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM appointments WHERE id = $1 FOR UPDATE
	`, appointmentID).Scan(&status)
	if err != nil {
		return translateNoRows(err)
	}
	if model.AppointmentStatus(status) != model.StatusPending {
		// Already confirmed by a concurrent webhook delivery.
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2,
			provider_ref = $3,
			updated_at = now()
		WHERE appointment_id = $1
	`, appointmentID, string(model.PaymentPaid), providerRef); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
	`, appointmentID, string(model.StatusBooked)); err != nil {
		return err
	}
	for _, evt := range evts {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertWebhookEvent records a payment-provider event id; a replayed
// delivery returns ErrDuplicate and must be ignored by the caller.
func (r *Repository) InsertWebhookEvent(ctx context.Context, provider, eventID, eventType string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider, provider_event_id, event_type)
		VALUES ($1, $2, $3)
	`, provider, eventID, eventType)
	return translateUnique(err, "webhook_events_provider_event_key", ErrDuplicate)
}
