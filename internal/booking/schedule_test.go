package booking

import (
	"context"
	"testing"
	"time"

	"github.com/clinicbook/clinicbook/internal/model"
)

func TestUpdateScheduleWindowRecomputesSlotCount(t *testing.T) {
	svc, store := newTestService(t)

	sched, err := svc.UpdateScheduleWindow(context.Background(), doctor, time.Monday, 9*60, 12*60)
	if err != nil {
		t.Fatalf("UpdateScheduleWindow failed: %v", err)
	}
	if sched.SlotCount != 6 {
		t.Fatalf("slot count = %d, want 6 (3h window)", sched.SlotCount)
	}
	if got := store.schedules[schedKey("doc-1", time.Monday)]; got.Start != 9*60 || got.End != 12*60 {
		t.Fatalf("stored window = %s-%s", got.Start, got.End)
	}
}

func TestUpdateScheduleWindowMinimumTwoHours(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateScheduleWindow(context.Background(), doctor, time.Monday, 9*60, 10*60+30)
	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}

	// Exactly two hours is allowed.
	if _, err := svc.UpdateScheduleWindow(context.Background(), doctor, time.Monday, 9*60, 11*60); err != nil {
		t.Fatalf("two-hour window should pass: %v", err)
	}
}

func TestUpdateScheduleBlockedByFutureAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, patient, 10*60) // Monday 2026-01-05

	_, err := svc.UpdateScheduleWindow(context.Background(), doctor, time.Monday, 9*60, 12*60)
	if KindOf(err) != KindPolicy {
		t.Fatalf("kind = %v, want policy", KindOf(err))
	}

	// Other weekdays are unaffected.
	if _, err := svc.UpdateScheduleWindow(context.Background(), doctor, time.Tuesday, 9*60, 12*60); err != nil {
		t.Fatalf("tuesday update should pass: %v", err)
	}
}

func TestSetScheduleStatusGuardAndNoop(t *testing.T) {
	svc, store := newTestService(t)

	sched, err := svc.SetScheduleStatus(context.Background(), doctor, time.Tuesday, model.ScheduleUnavailable)
	if err != nil {
		t.Fatalf("SetScheduleStatus failed: %v", err)
	}
	if sched.Status != model.ScheduleUnavailable {
		t.Fatalf("status = %s, want unavailable", sched.Status)
	}

	// Same status again is a no-op, not an error.
	if _, err := svc.SetScheduleStatus(context.Background(), doctor, time.Tuesday, model.ScheduleUnavailable); err != nil {
		t.Fatalf("no-op toggle failed: %v", err)
	}

	mustCreate(t, svc, patient, 10*60) // Monday 2026-01-05
	_, err = svc.SetScheduleStatus(context.Background(), doctor, time.Monday, model.ScheduleUnavailable)
	if KindOf(err) != KindPolicy {
		t.Fatalf("kind = %v, want policy", KindOf(err))
	}
	if got := store.schedules[schedKey("doc-1", time.Monday)].Status; got != model.ScheduleAvailable {
		t.Fatalf("status changed despite guard: %s", got)
	}
}

func TestSchedulesDoctorOnly(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Schedules(context.Background(), patient); KindOf(err) != KindUnauthorized {
		t.Fatalf("patient should be refused")
	}
	scheds, err := svc.Schedules(context.Background(), doctor)
	if err != nil {
		t.Fatalf("Schedules failed: %v", err)
	}
	if len(scheds) != 7 {
		t.Fatalf("got %d rows, want 7", len(scheds))
	}
}
