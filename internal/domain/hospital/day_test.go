package hospital

import (
	"testing"
	"time"
)

func TestParseDay_Formats(t *testing.T) {
	want := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"2025-06-15",
		"2025-06-15T10:30:00",
		"2025-06-15T10:30",
		"2025-06-15 10:30:00",
		"2025-06-15T23:30:00+02:00",
		"  2025-06-15  ",
	}
	for _, in := range inputs {
		got, ok := ParseDay(in)
		if !ok {
			t.Errorf("ParseDay(%q) failed", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDay(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "15.06.2025"} {
		if _, ok := ParseDay(in); ok {
			t.Errorf("ParseDay(%q) expected failure", in)
		}
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	b := time.Date(2025, time.April, 1, 22, 0, 0, 0, time.UTC)
	c := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Error("expected same day")
	}
	if SameDay(a, c) {
		t.Error("expected different days")
	}
	if DayKey(b) != "2025-04-01" {
		t.Errorf("DayKey = %s", DayKey(b))
	}
}
