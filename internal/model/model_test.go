package model

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"10:00", 600},
		{"16:30", 990},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Fatalf("round trip: %q -> %q", tc.in, got.String())
		}
	}
}

func TestParseTimeOfDayRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "24:00", "10:60", "10", "10:0", "1000", "ten"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Errorf("ParseTimeOfDay(%q) should fail", in)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := ParseWeekday("Monday")
	if err != nil || wd != time.Monday {
		t.Fatalf("ParseWeekday(Monday) = %v, %v", wd, err)
	}
	wd, err = ParseWeekday(" sunday ")
	if err != nil || wd != time.Sunday {
		t.Fatalf("ParseWeekday(sunday) = %v, %v", wd, err)
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatal("ParseWeekday(funday) should fail")
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"admin": RoleAdmin, "Doctor": RoleDoctor, " patient ": RolePatient,
	} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatal("ParseRole(root) should fail")
	}
}

func TestAppointmentStartTime(t *testing.T) {
	appt := Appointment{
		Date: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		Slot: 14*60 + 30,
	}
	want := time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC)
	if got := appt.StartTime(); !got.Equal(want) {
		t.Fatalf("StartTime = %v, want %v", got, want)
	}
}
