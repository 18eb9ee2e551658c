package model

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the acting user class. Handlers resolve it once from the
// JWT and pass it down explicitly; nothing below the HTTP layer reads
// ambient auth state.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RolePatient:
		return RolePatient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated caller. DoctorID/PatientID are set only for
// the matching role.
type Actor struct {
	UserID    string
	Role      Role
	DoctorID  string
	PatientID string
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusMissed    AppointmentStatus = "missed"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusBooked:
		return StatusBooked, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusMissed:
		return StatusMissed, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

type ScheduleStatus string

const (
	ScheduleAvailable   ScheduleStatus = "available"
	ScheduleUnavailable ScheduleStatus = "unavailable"
)

func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	switch ScheduleStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ScheduleAvailable:
		return ScheduleAvailable, nil
	case ScheduleUnavailable:
		return ScheduleUnavailable, nil
	}
	return "", fmt.Errorf("unknown schedule status %q", s)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	CreatedAt    time.Time
}

type Doctor struct {
	ID             string
	UserID         string
	Name           string
	Specialization string
	// HourlyRate is in minor currency units (e.g. cents).
	HourlyRate int64
}

type Patient struct {
	ID     string
	UserID string
	Name   string
}

// Schedule is a doctor's recurring availability window for one weekday.
// SlotCount is derived from the window at edit time and persisted; it is
// not recomputed on reads.
type Schedule struct {
	DoctorID  string
	Weekday   time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	SlotCount int
	Status    ScheduleStatus
}

type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	// Date is the appointment calendar date, normalized to midnight.
	Date      time.Time
	Slot      TimeOfDay
	Status    AppointmentStatus
	CreatedAt time.Time
}

// StartTime combines the appointment date and slot.
func (a Appointment) StartTime() time.Time {
	return a.Date.Add(time.Duration(a.Slot) * time.Minute)
}

type Payment struct {
	AppointmentID string
	// Amount is in minor currency units.
	Amount      int64
	Status      PaymentStatus
	ProviderRef string
	UpdatedAt   time.Time
}
