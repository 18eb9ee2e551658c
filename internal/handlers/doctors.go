package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/storage"
)

// defaultSchedule is seeded for each weekday when a doctor is created:
// a 10:00-17:00 window, fourteen half-hour slots, open for booking.
var defaultSchedule = model.Schedule{
	Start:     10 * 60,
	End:       17 * 60,
	SlotCount: 14,
	Status:    model.ScheduleAvailable,
}

type createDoctorRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Specialization string `json:"specialization"`
	HourlyRate     int64  `json:"hourly_rate"`
}

type doctorItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	HourlyRate     int64  `json:"hourly_rate"`
}

// Doctors serves GET (public listing) and POST (admin provisioning).
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listDoctors(w, r)
	case http.MethodPost:
		h.createDoctor(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.repo.ListDoctors(r.Context(), 0)
	if err != nil {
		h.logger.Error("doctor listing failed", "err", err)
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	items := make([]doctorItem, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, doctorItem{
			ID:             d.ID,
			Name:           d.Name,
			Specialization: d.Specialization,
			HourlyRate:     d.HourlyRate,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": items})
}

func (h *Handler) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req createDoctorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	req.Specialization = strings.TrimSpace(req.Specialization)
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Specialization == "" {
		http.Error(w, "name, email, password and specialization required", http.StatusBadRequest)
		return
	}
	if req.HourlyRate <= 0 {
		http.Error(w, "hourly_rate must be positive", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         model.RoleDoctor,
	}
	doctor := model.Doctor{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Specialization: req.Specialization,
		HourlyRate:     req.HourlyRate,
	}

	if err := h.repo.CreateDoctor(r.Context(), user, doctor, defaultSchedule); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		h.logger.Error("doctor creation failed", "err", err)
		http.Error(w, "failed to create doctor", http.StatusInternalServerError)
		return
	}

	h.logger.Info("doctor created", "doctor_id", doctor.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"doctor_id": doctor.ID,
		"user_id":   user.ID,
	})
}
