// Package storage holds the pgx repositories. Writes that must be atomic
// with their outbox events compose the transaction here so the service
// layer stays free of pgx details.
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicbook/clinicbook/internal/db"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/outbox"
)

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, email, password_hash, name, role, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt)
	if err != nil {
		return model.User{}, translateNoRows(err)
	}
	u.Role = model.Role(role)
	return u, nil
}

// CreatePatient inserts the user and patient rows in one transaction.
func (r *Repository) CreatePatient(ctx context.Context, user model.User, patient model.Patient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO patients (id, user_id)
		VALUES ($1, $2)
	`, patient.ID, user.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateDoctor inserts the user and doctor rows plus the seven default
// weekday schedules, all in one transaction. New doctors start with
// 10:00-17:00 windows (14 slots) on every day, toggled available.
func (r *Repository) CreateDoctor(ctx context.Context, user model.User, doctor model.Doctor, defaults model.Schedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO doctors (id, user_id, specialization, hourly_rate)
		VALUES ($1, $2, $3, $4)
	`, doctor.ID, user.ID, doctor.Specialization, doctor.HourlyRate); err != nil {
		return err
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedules (doctor_id, weekday, start_minute, end_minute, slot_count, status)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, doctor.ID, int(wd), int(defaults.Start), int(defaults.End), defaults.SlotCount, string(defaults.Status)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// EnsureAdmin seeds the bootstrap admin account. Re-running with the
// same email is a no-op so restarts stay clean.
func (r *Repository) EnsureAdmin(ctx context.Context, user model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.PasswordHash, user.Name, string(user.Role))
	return err
}

func insertUser(ctx context.Context, tx pgx.Tx, user model.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.PasswordHash, user.Name, string(user.Role))
	return translateUnique(err, "users_email_key", ErrDuplicate)
}

func (r *Repository) GetDoctor(ctx context.Context, id string) (model.Doctor, error) {
	var d model.Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT d.id::text, d.user_id::text, u.name, d.specialization, d.hourly_rate
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.HourlyRate)
	if err != nil {
		return model.Doctor{}, translateNoRows(err)
	}
	return d, nil
}

func (r *Repository) GetDoctorByUser(ctx context.Context, userID string) (model.Doctor, error) {
	var d model.Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT d.id::text, d.user_id::text, u.name, d.specialization, d.hourly_rate
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1
	`, userID).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.HourlyRate)
	if err != nil {
		return model.Doctor{}, translateNoRows(err)
	}
	return d, nil
}

func (r *Repository) ListDoctors(ctx context.Context, limit int) ([]model.Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT d.id::text, d.user_id::text, u.name, d.specialization, d.hourly_rate
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		ORDER BY u.name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Doctor
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.HourlyRate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetPatient(ctx context.Context, id string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT p.id::text, p.user_id::text, u.name
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Name)
	if err != nil {
		return model.Patient{}, translateNoRows(err)
	}
	return p, nil
}

func (r *Repository) GetPatientByUser(ctx context.Context, userID string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT p.id::text, p.user_id::text, u.name
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.Name)
	if err != nil {
		return model.Patient{}, translateNoRows(err)
	}
	return p, nil
}

func (r *Repository) GetSchedule(ctx context.Context, doctorID string, weekday time.Weekday) (model.Schedule, error) {
	var s model.Schedule
	var wd, start, end int
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT doctor_id::text, weekday, start_minute, end_minute, slot_count, status
		FROM schedules
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, int(weekday)).Scan(&s.DoctorID, &wd, &start, &end, &s.SlotCount, &status)
	if err != nil {
		return model.Schedule{}, translateNoRows(err)
	}
	s.Weekday = time.Weekday(wd)
	s.Start = model.TimeOfDay(start)
	s.End = model.TimeOfDay(end)
	s.Status = model.ScheduleStatus(status)
	return s, nil
}

func (r *Repository) ListSchedules(ctx context.Context, doctorID string) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id::text, weekday, start_minute, end_minute, slot_count, status
		FROM schedules
		WHERE doctor_id = $1
		ORDER BY weekday ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Schedule
	for rows.Next() {
		var s model.Schedule
		var wd, start, end int
		var status string
		if err := rows.Scan(&s.DoctorID, &wd, &start, &end, &s.SlotCount, &status); err != nil {
			return nil, err
		}
		s.Weekday = time.Weekday(wd)
		s.Start = model.TimeOfDay(start)
		s.End = model.TimeOfDay(end)
		s.Status = model.ScheduleStatus(status)
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpdateSchedule rewrites one weekday row. The future-appointment guard
// runs inside the same transaction against the appointments table, so a
// booking committed after the caller's advisory check still blocks the
// update.
func (r *Repository) UpdateSchedule(ctx context.Context, sched model.Schedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var conflict bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
				AND appointment_date > CURRENT_DATE
				AND EXTRACT(DOW FROM appointment_date) = $2
		)
	`, sched.DoctorID, int(sched.Weekday)).Scan(&conflict); err != nil {
		return err
	}
	if conflict {
		return ErrScheduleConflict
	}

	tag, err := tx.Exec(ctx, `
		UPDATE schedules
		SET start_minute = $3,
			end_minute = $4,
			slot_count = $5,
			status = $6,
			updated_at = now()
		WHERE doctor_id = $1 AND weekday = $2
	`, sched.DoctorID, int(sched.Weekday), int(sched.Start), int(sched.End), sched.SlotCount, string(sched.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repository) HasFutureAppointmentsOn(ctx context.Context, doctorID string, weekday time.Weekday, after time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
				AND appointment_date > $2
				AND EXTRACT(DOW FROM appointment_date) = $3
		)
	`, doctorID, after, int(weekday)).Scan(&exists)
	return exists, err
}
