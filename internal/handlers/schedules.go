package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/clinicbook/clinicbook/internal/auth"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/storage"
)

type updateScheduleRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type scheduleStatusRequest struct {
	Status string `json:"status"`
}

type scheduleItem struct {
	Weekday   string `json:"weekday"`
	Start     string `json:"start"`
	End       string `json:"end"`
	SlotCount int    `json:"slot_count"`
	Status    string `json:"status"`
}

func toScheduleItem(s model.Schedule) scheduleItem {
	return scheduleItem{
		Weekday:   strings.ToLower(s.Weekday.String()),
		Start:     s.Start.String(),
		End:       s.End.String(),
		SlotCount: s.SlotCount,
		Status:    string(s.Status),
	}
}

// Schedules lists the authenticated doctor's weekly schedule.
func (h *Handler) Schedules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	scheds, err := h.svc.Schedules(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]scheduleItem, 0, len(scheds))
	for _, s := range scheds {
		items = append(items, toScheduleItem(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": items})
}

// ScheduleByWeekday serves /api/v1/schedules/{weekday} (GET row, PUT
// window) and the nested {weekday}/status toggle.
func (h *Handler) ScheduleByWeekday(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/schedules/")
	name, sub, _ := strings.Cut(rest, "/")
	weekday, err := model.ParseWeekday(name)
	if err != nil {
		http.Error(w, "invalid weekday", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "status" && r.Method == http.MethodPut:
		var req scheduleStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status, err := model.ParseScheduleStatus(strings.TrimSpace(req.Status))
		if err != nil {
			http.Error(w, "invalid status, expected available or unavailable", http.StatusBadRequest)
			return
		}
		sched, err := h.svc.SetScheduleStatus(r.Context(), actor, weekday, status)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleItem(sched))
	case sub != "":
		http.NotFound(w, r)
	case r.Method == http.MethodGet:
		sched, err := h.repo.GetSchedule(r.Context(), actor.DoctorID, weekday)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			h.logger.Error("schedule lookup failed", "err", err)
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleItem(sched))
	case r.Method == http.MethodPut:
		var req updateScheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		start, err := model.ParseTimeOfDay(req.Start)
		if err != nil {
			http.Error(w, "invalid start, expected HH:MM", http.StatusBadRequest)
			return
		}
		end, err := model.ParseTimeOfDay(req.End)
		if err != nil {
			http.Error(w, "invalid end, expected HH:MM", http.StatusBadRequest)
			return
		}
		sched, err := h.svc.UpdateScheduleWindow(r.Context(), actor, weekday, start, end)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleItem(sched))
	default:
		methodNotAllowed(w)
	}
}
