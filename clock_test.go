package main

import (
	"testing"
	"time"
)

func TestCaptureWallClockOnlyOnScheduleTicks(t *testing.T) {
	s := newState(defaultConfig())
	now := time.Date(2026, time.March, 4, 15, 0, 0, 0, time.UTC)

	s.TickCount = 1
	captureWallClock(s, now)
	if s.CurrentHour != 0 || s.CurrentMonth != 0 {
		t.Fatalf("tick 1 should not refresh wall-clock capture, got hour=%d month=%v", s.CurrentHour, s.CurrentMonth)
	}

	s.TickCount = ticksPerHourCapture
	captureWallClock(s, now)
	if s.CurrentHour != 15 || s.CurrentMonth != time.March {
		t.Fatalf("got hour=%d month=%v, want hour=15 month=March", s.CurrentHour, s.CurrentMonth)
	}
}
