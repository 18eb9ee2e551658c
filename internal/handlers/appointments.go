package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/clinicbook/clinicbook/internal/auth"
	"github.com/clinicbook/clinicbook/internal/booking"
	"github.com/clinicbook/clinicbook/internal/model"
)

type createAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	PatientID string `json:"patient_id,omitempty"`
}

type rescheduleRequest struct {
	Date string `json:"date,omitempty"`
	Slot string `json:"slot"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type appointmentItem struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date.Format(time.DateOnly),
		Slot:      a.Slot.String(),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Appointments serves the collection: POST creates, GET lists the
// actor's own view.
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createAppointment(w, r, actor)
	case http.MethodGet:
		appts, err := h.svc.List(r.Context(), actor)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		items := make([]appointmentItem, 0, len(appts))
		for _, a := range appts {
			items = append(items, toAppointmentItem(a))
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
	default:
		methodNotAllowed(w)
	}
}

// AppointmentByID serves /api/v1/appointments/{id} and the nested
// {id}/status route.
func (h *Handler) AppointmentByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/appointments/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case sub == "status" && r.Method == http.MethodPut:
		h.markOutcome(w, r, actor, id)
	case sub != "":
		http.NotFound(w, r)
	default:
		switch r.Method {
		case http.MethodGet:
			appt, err := h.svc.Get(r.Context(), actor, id)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentItem(appt))
		case http.MethodPut:
			h.reschedule(w, r, actor, id)
		case http.MethodDelete:
			if err := h.svc.Cancel(r.Context(), actor, id); err != nil {
				h.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
		default:
			methodNotAllowed(w)
		}
	}
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	var req createAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.DoctorID == "" || req.Date == "" || req.Slot == "" {
		http.Error(w, "doctor_id, date and slot are required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	slot, err := model.ParseTimeOfDay(req.Slot)
	if err != nil {
		http.Error(w, "invalid slot, expected HH:MM", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Create(r.Context(), actor, booking.CreateParams{
		DoctorID:  req.DoctorID,
		Date:      date,
		Slot:      slot,
		PatientID: strings.TrimSpace(req.PatientID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request, actor model.Actor, id string) {
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Slot == "" {
		http.Error(w, "slot is required", http.StatusBadRequest)
		return
	}
	slot, err := model.ParseTimeOfDay(req.Slot)
	if err != nil {
		http.Error(w, "invalid slot, expected HH:MM", http.StatusBadRequest)
		return
	}
	var newDate *time.Time
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		newDate = &d
	}

	appt, err := h.svc.Reschedule(r.Context(), actor, id, newDate, slot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *Handler) markOutcome(w http.ResponseWriter, r *http.Request, actor model.Actor, id string) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := model.ParseAppointmentStatus(strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.MarkOutcome(r.Context(), actor, id, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}
