package availability

import (
	"testing"
	"time"

	"github.com/clinicbook/clinicbook/internal/model"
)

func sched(start, end model.TimeOfDay, status model.ScheduleStatus) *model.Schedule {
	return &model.Schedule{
		DoctorID:  "doc-1",
		Weekday:   time.Monday,
		Start:     start,
		End:       end,
		SlotCount: SlotCount(start, end),
		Status:    status,
	}
}

func TestSlotCount(t *testing.T) {
	cases := []struct {
		start, end model.TimeOfDay
		want       int
	}{
		{10 * 60, 17 * 60, 14},
		{9 * 60, 11 * 60, 4},
		{9 * 60, 9*60 + 45, 1}, // partial slot dropped
		{9 * 60, 9 * 60, 0},
		{11 * 60, 9 * 60, 0},
	}
	for _, tc := range cases {
		if got := SlotCount(tc.start, tc.end); got != tc.want {
			t.Errorf("SlotCount(%s, %s) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestCandidateSlotsAscending(t *testing.T) {
	slots := CandidateSlots(10*60, 14)
	if len(slots) != 14 {
		t.Fatalf("got %d slots, want 14", len(slots))
	}
	if slots[0] != 10*60 {
		t.Fatalf("first slot = %s, want 10:00", slots[0])
	}
	if slots[13] != 16*60+30 {
		t.Fatalf("last slot = %s, want 16:30", slots[13])
	}
	for i := 1; i < len(slots); i++ {
		if slots[i] != slots[i-1]+SlotMinutes {
			t.Fatalf("slot %d not 30m after its predecessor", i)
		}
	}
}

func TestAvailableSlotsSubtractsBooked(t *testing.T) {
	s := sched(10*60, 17*60, model.ScheduleAvailable)
	booked := []model.TimeOfDay{10 * 60, 14*60 + 30}

	free := AvailableSlots(s, booked)
	if len(free) != 12 {
		t.Fatalf("got %d free slots, want 12", len(free))
	}
	for _, b := range booked {
		if Contains(free, b) {
			t.Fatalf("booked slot %s still offered", b)
		}
	}
	// Order preserved.
	for i := 1; i < len(free); i++ {
		if free[i] <= free[i-1] {
			t.Fatal("slots not ascending")
		}
	}
}

func TestAvailableSlotsFullyBooked(t *testing.T) {
	s := sched(9*60, 11*60, model.ScheduleAvailable)
	booked := CandidateSlots(s.Start, s.SlotCount)
	if free := AvailableSlots(s, booked); len(free) != 0 {
		t.Fatalf("got %d free slots, want 0", len(free))
	}
}

func TestAvailableSlotsNoSchedule(t *testing.T) {
	if free := AvailableSlots(nil, nil); free != nil {
		t.Fatalf("nil schedule should yield no slots, got %v", free)
	}
}

func TestAvailableSlotsUnavailableDay(t *testing.T) {
	s := sched(10*60, 17*60, model.ScheduleUnavailable)
	if free := AvailableSlots(s, nil); free != nil {
		t.Fatalf("unavailable day should yield no slots, got %v", free)
	}
}

func TestAvailableSlotsIgnoresStrayBookings(t *testing.T) {
	// A booking outside the current window (left over from an earlier,
	// wider schedule) must not corrupt the result.
	s := sched(10*60, 12*60, model.ScheduleAvailable)
	free := AvailableSlots(s, []model.TimeOfDay{18 * 60})
	if len(free) != 4 {
		t.Fatalf("got %d free slots, want 4", len(free))
	}
}
