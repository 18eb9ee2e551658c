package availability

import (
	"github.com/clinicbook/clinicbook/internal/model"
)

// SlotMinutes is the fixed booking granularity. A schedule's slot count is
// derived from its window as floor(duration / SlotMinutes) when the
// schedule is edited, and persisted.
const SlotMinutes = 30

// SlotCount returns the number of whole slots that fit in [start, end).
func SlotCount(start, end model.TimeOfDay) int {
	if end <= start {
		return 0
	}
	return int(end-start) / SlotMinutes
}

// CandidateSlots expands a schedule window into its slot start times in
// ascending order: start, start+30m, ... for slotCount entries.
func CandidateSlots(start model.TimeOfDay, slotCount int) []model.TimeOfDay {
	if slotCount <= 0 {
		return nil
	}
	slots := make([]model.TimeOfDay, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slots = append(slots, start+model.TimeOfDay(i*SlotMinutes))
	}
	return slots
}

// AvailableSlots computes the bookable slots for one doctor-day: the
// schedule's candidate slots minus the already booked ones, order
// preserved. A nil schedule or one toggled unavailable yields no slots;
// that is a normal outcome, not an error.
func AvailableSlots(sched *model.Schedule, booked []model.TimeOfDay) []model.TimeOfDay {
	if sched == nil || sched.Status != model.ScheduleAvailable {
		return nil
	}
	taken := make(map[model.TimeOfDay]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	var free []model.TimeOfDay
	for _, s := range CandidateSlots(sched.Start, sched.SlotCount) {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}

// Contains reports whether slot is in slots.
func Contains(slots []model.TimeOfDay, slot model.TimeOfDay) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
