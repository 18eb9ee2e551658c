package config

import (
	"testing"
	"time"
)

func TestReminderOffsets(t *testing.T) {
	got := ReminderOffsets("1440, 60")
	want := []time.Duration{24 * time.Hour, time.Hour}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offset %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReminderOffsetsSkipsInvalid(t *testing.T) {
	got := ReminderOffsets("abc,-5,30,")
	if len(got) != 1 || got[0] != 30*time.Minute {
		t.Fatalf("got %v, want [30m]", got)
	}
}

func TestReminderOffsetsFallback(t *testing.T) {
	got := ReminderOffsets("")
	if len(got) != 1 || got[0] != 24*time.Hour {
		t.Fatalf("got %v, want [24h]", got)
	}
}

func TestCommaList(t *testing.T) {
	got := CommaList(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}
