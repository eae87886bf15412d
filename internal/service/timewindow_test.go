package service

import (
	"testing"
	"time"
)

func TestInWindow_InsideWindow(t *testing.T) {
	eval := NewTimeWindowEvaluator(time.UTC)
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	in, err := eval.InWindow(at, "08:00:00", "17:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in {
		t.Error("10:30 should be inside [08:00, 17:00]")
	}
}

func TestInWindow_EdgesInclusive(t *testing.T) {
	eval := NewTimeWindowEvaluator(time.UTC)
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exactly at start", time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC), true},
		{"exactly at end", time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC), true},
		{"second before start", time.Date(2024, 3, 15, 7, 59, 59, 0, time.UTC), false},
		{"second after end", time.Date(2024, 3, 15, 17, 0, 1, 0, time.UTC), false},
	}
	for _, c := range cases {
		in, err := eval.InWindow(c.at, "08:00:00", "17:00:00")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if in != c.want {
			t.Errorf("%s: got %v, want %v", c.name, in, c.want)
		}
	}
}

func TestInWindow_FullDayDefaults(t *testing.T) {
	// the default assignment window covers every second of the day
	eval := NewTimeWindowEvaluator(time.UTC)
	for _, hour := range []int{0, 6, 12, 18, 23} {
		at := time.Date(2024, 3, 15, hour, 0, 0, 0, time.UTC)
		in, err := eval.InWindow(at, "00:00:00", "23:59:59")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !in {
			t.Errorf("%02d:00 should be inside the full-day window", hour)
		}
	}
}

func TestInWindow_MidnightCrossingNeverMatches(t *testing.T) {
	eval := NewTimeWindowEvaluator(time.UTC)
	for _, hour := range []int{1, 12, 23} {
		at := time.Date(2024, 3, 15, hour, 0, 0, 0, time.UTC)
		in, err := eval.InWindow(at, "22:00:00", "06:00:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if in {
			t.Errorf("%02d:00 matched an inverted window", hour)
		}
	}
}

func TestInWindow_ProjectsIntoZone(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*3600)
	eval := NewTimeWindowEvaluator(riyadh)

	// 06:30 UTC is 09:30 in Riyadh, inside the working window
	at := time.Date(2024, 3, 15, 6, 30, 0, 0, time.UTC)
	in, err := eval.InWindow(at, "08:00:00", "17:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in {
		t.Error("06:30 UTC should be inside the window in UTC+3")
	}

	// but it is outside the window when evaluated in UTC
	in, err = NewTimeWindowEvaluator(time.UTC).InWindow(at, "08:00:00", "17:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in {
		t.Error("06:30 UTC should be outside the window in UTC")
	}
}

func TestInWindow_NilLocationFallsBackToUTC(t *testing.T) {
	eval := NewTimeWindowEvaluator(nil)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	in, err := eval.InWindow(at, "08:00:00", "17:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in {
		t.Error("nil location should evaluate in UTC")
	}
}

func TestInWindow_MalformedBounds(t *testing.T) {
	eval := NewTimeWindowEvaluator(time.UTC)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct{ start, end string }{
		{"8am", "17:00:00"},
		{"08:00:00", "5pm"},
		{"", "17:00:00"},
		{"25:00:00", "17:00:00"},
	}
	for _, c := range cases {
		if _, err := eval.InWindow(at, c.start, c.end); err == nil {
			t.Errorf("bounds (%q, %q) should be rejected", c.start, c.end)
		}
	}
}
