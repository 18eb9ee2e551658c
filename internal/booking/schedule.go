package booking

import (
	"context"
	"errors"
	"time"

	"github.com/clinicbook/clinicbook/internal/availability"
	"github.com/clinicbook/clinicbook/internal/model"
	"github.com/clinicbook/clinicbook/internal/storage"
)

// minScheduleWindow is the shortest working window a doctor may set.
const minScheduleWindow = 2 * 60 // minutes

// Schedules returns the doctor's seven weekly rows, Sunday first.
func (s *Service) Schedules(ctx context.Context, actor model.Actor) ([]model.Schedule, error) {
	if actor.Role != model.RoleDoctor {
		return nil, Errorf(KindUnauthorized, "only doctors have schedules")
	}
	return s.store.ListSchedules(ctx, actor.DoctorID)
}

// UpdateScheduleWindow changes a weekday's working hours and recomputes
// the persisted slot count. The update is refused while any future
// appointment depends on that weekday; moving the window under an
// existing booking would break it.
func (s *Service) UpdateScheduleWindow(ctx context.Context, actor model.Actor, weekday time.Weekday, start, end model.TimeOfDay) (model.Schedule, error) {
	if actor.Role != model.RoleDoctor {
		return model.Schedule{}, Errorf(KindUnauthorized, "only doctors can update schedules")
	}
	if !start.Valid() || !end.Valid() {
		return model.Schedule{}, Errorf(KindValidation, "invalid schedule time")
	}
	if int(end-start) < minScheduleWindow {
		return model.Schedule{}, Errorf(KindValidation, "end time must be at least 2 hours after the start time")
	}

	sched, err := s.loadScheduleForUpdate(ctx, actor.DoctorID, weekday)
	if err != nil {
		return model.Schedule{}, err
	}

	sched.Start = start
	sched.End = end
	sched.SlotCount = availability.SlotCount(start, end)
	if err := s.updateSchedule(ctx, sched); err != nil {
		return model.Schedule{}, err
	}
	s.logger.Info("schedule updated",
		"doctor_id", sched.DoctorID,
		"weekday", weekday.String(),
		"start", start.String(),
		"end", end.String(),
		"slot_count", sched.SlotCount,
	)
	return sched, nil
}

// SetScheduleStatus toggles a weekday available/unavailable, with the
// same future-appointment guard as a window change.
func (s *Service) SetScheduleStatus(ctx context.Context, actor model.Actor, weekday time.Weekday, status model.ScheduleStatus) (model.Schedule, error) {
	if actor.Role != model.RoleDoctor {
		return model.Schedule{}, Errorf(KindUnauthorized, "only doctors can update schedules")
	}

	sched, err := s.loadScheduleForUpdate(ctx, actor.DoctorID, weekday)
	if err != nil {
		return model.Schedule{}, err
	}
	if sched.Status == status {
		return sched, nil
	}

	sched.Status = status
	if err := s.updateSchedule(ctx, sched); err != nil {
		return model.Schedule{}, err
	}
	s.logger.Info("schedule status changed", "doctor_id", sched.DoctorID, "weekday", weekday.String(), "status", string(status))
	return sched, nil
}

// updateSchedule persists the change. The storage layer re-checks the
// future-appointment guard inside the update transaction, so the earlier
// advisory check cannot be raced past.
func (s *Service) updateSchedule(ctx context.Context, sched model.Schedule) error {
	if err := s.store.UpdateSchedule(ctx, sched); err != nil {
		if errors.Is(err, storage.ErrScheduleConflict) {
			return errScheduleInUse
		}
		return err
	}
	return nil
}

var errScheduleInUse = &Error{Kind: KindPolicy, Message: "an appointment exists on this day, you can't update the schedule"}

func (s *Service) loadScheduleForUpdate(ctx context.Context, doctorID string, weekday time.Weekday) (model.Schedule, error) {
	conflict, err := s.store.HasFutureAppointmentsOn(ctx, doctorID, weekday, s.today())
	if err != nil {
		return model.Schedule{}, err
	}
	if conflict {
		return model.Schedule{}, errScheduleInUse
	}

	sched, err := s.store.GetSchedule(ctx, doctorID, weekday)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Schedule{}, Errorf(KindNotFound, "schedule not found")
		}
		return model.Schedule{}, err
	}
	return sched, nil
}
