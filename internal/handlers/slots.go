package handlers

import (
	"net/http"
	"strings"
	"time"
)

type slotsResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// Slots returns the bookable start times for one doctor and date,
// ascending. An empty list is a normal answer, not an error.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if doctorID == "" || rawDate == "" {
		http.Error(w, "doctor_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		DoctorID: doctorID,
		Date:     rawDate,
		Slots:    out,
	})
}
