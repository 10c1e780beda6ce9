package main

import (
	"log"
	"time"
)

// tickInterval is the fixed scheduler cadence. All timing interlocks in
// unit.go/interlocks.go are expressed in ticks of this length, not in
// wall-clock durations, so they stay proportionally correct if this
// constant ever changes.
const tickInterval = 5 * time.Second

// ticksPerHourCapture refreshes the wall-clock hour/month roughly every
// five minutes.
const ticksPerHourCapture = 60

// ticksPerPersist flushes the run-cycle ledger roughly every ten minutes.
const ticksPerPersist = 120

// captureWallClock refreshes s.CurrentHour/s.CurrentMonth every
// ticksPerHourCapture ticks. Called once per tick from the main loop;
// cheap enough to not need its own scheduling.
func captureWallClock(s *State, now time.Time) {
	if s.TickCount%ticksPerHourCapture != 0 {
		return
	}
	s.CurrentHour = now.Hour()
	s.CurrentMonth = now.Month()
}

// runLoop drives tick at a fixed cadence, busy-compensating for work that
// overran the budget. body returns false to stop the loop (used by tests and
// by the terminate path).
func runLoop(body func(t0 time.Time) bool) {
	for {
		t0 := time.Now()
		if !body(t0) {
			return
		}
		elapsed := time.Since(t0)
		if elapsed > tickInterval {
			log.Printf("tick overran budget: %v elapsed, sleeping 1s", elapsed)
			time.Sleep(1 * time.Second)
			continue
		}
		time.Sleep(tickInterval - elapsed)
	}
}
