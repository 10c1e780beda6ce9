package main

import "testing"

// A unit parked OFF with its valve already positioned and the
// anti-short-cycle timer satisfied starts on the next tick once desired.
func TestStepOffStartsWhenReady(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setActuator(ActValve, true)
	u.cyclesInState[ActCompressor] = compOnMinOffTicks
	s.Desire[Unit1] = Desire{Compressor: true, Fan: true, Valve: true}

	stepUnit(s, Unit1)

	if u.Mode != ModeStarting {
		t.Fatalf("Mode = %v, want STARTING", u.Mode)
	}
	if !u.Actuator[ActCompressor] || !u.Actuator[ActFan] {
		t.Fatalf("expected compressor and fan ON after starting, got %+v", u.Actuator)
	}
}

func TestStepOffDoesNotStartWithValveOff(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.cyclesInState[ActCompressor] = compOnMinOffTicks
	s.Desire[Unit1] = Desire{Compressor: true, Fan: true, Valve: true}
	// Valve left off: the compressor must not start ahead of it.

	stepUnit(s, Unit1)

	if u.Mode != ModeOff {
		t.Fatalf("Mode = %v, want to remain OFF until the valve is positioned", u.Mode)
	}
}

func TestStepStartingGoesToCompCoolingOnHighTcomp(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeStarting)
	u.setActuator(ActCompressor, true)
	s.Sensors[SensAC1Comp].Current = 57

	stepUnit(s, Unit1)

	if u.Mode != ModeCompCooling {
		t.Fatalf("Mode = %v, want COMP-COOLING", u.Mode)
	}
}

func TestStepStartingGoesToFinStackHeatingAfterTimeout(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeStarting)
	u.setActuator(ActCompressor, true)
	u.cyclesInState[numActuators] = 25
	s.Sensors[SensAC1Comp].Current = 40

	stepUnit(s, Unit1)

	if u.Mode != ModeFinStackHeating {
		t.Fatalf("Mode = %v, want FIN-STACK-HEATING", u.Mode)
	}
}

func TestStepCompCoolingGoesToFinStackHeatingOnLowTcomp(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeCompCooling)
	u.setActuator(ActCompressor, true)
	u.setActuator(ActFan, true)
	u.cyclesInState[numActuators] = 11
	s.Sensors[SensAC1Comp].Current = 50

	stepUnit(s, Unit1)

	if u.Mode != ModeFinStackHeating {
		t.Fatalf("Mode = %v, want FIN-STACK-HEATING", u.Mode)
	}
	if u.Actuator[ActFan] {
		t.Fatal("fan should be forced OFF in COMP-COOLING before the transition is evaluated")
	}
}

func TestStepFinStackHeatingTripsDefrostOnColdCondenser(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeFinStackHeating)
	u.setActuator(ActCompressor, true)
	u.setActuator(ActFan, true)
	u.cyclesInState[numActuators] = 160
	s.Sensors[SensAC1Comp].Current = 40
	s.Sensors[SensAC1Cond].Current = -8

	stepUnit(s, Unit1)

	if u.Mode != ModeDefrost {
		t.Fatalf("Mode = %v, want DEFROST", u.Mode)
	}
	// The first band of the schedule governs the very tick the transition
	// fires; the heating-mode actuator state must not leak into it.
	if !u.Actuator[ActValve] || u.Actuator[ActCompressor] || u.Actuator[ActFan] {
		t.Fatalf("entry tick: got valve=%v comp=%v fan=%v, want valve ON only",
			u.Actuator[ActValve], u.Actuator[ActCompressor], u.Actuator[ActFan])
	}
}

// Overheat: a running unit whose Tcomp exceeds the ceiling is forced into
// OHP immediately, bypassing the normal minimum-on-time gate, and recovers to
// OFF 24 ticks after the compressor is off.
func TestOverheatForcesOHP(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeCompCooling)
	u.setActuator(ActCompressor, true)
	u.cyclesInState[ActCompressor] = 1 // far below the 84-tick minimum
	s.Sensors[SensAC1Comp].Current = 64

	stepUnit(s, Unit1)

	if u.Mode != ModeOHP {
		t.Fatalf("Mode = %v, want OHP", u.Mode)
	}
	if u.Actuator[ActCompressor] || u.Actuator[ActFan] {
		t.Fatal("expected compressor and fan OFF immediately on overheat")
	}
}

func TestOHPRecoversToOffAfter24Ticks(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeOHP)
	u.cyclesInState[numActuators] = 25
	s.Sensors[SensAC1Comp].Current = 30 // recovered

	stepUnit(s, Unit1)

	if u.Mode != ModeOff {
		t.Fatalf("Mode = %v, want OFF after OHP recovery window", u.Mode)
	}
}

// Dropping a unit's desire mid-cycle keeps it running until the
// minimum-on-time interlock is satisfied.
func TestStopIfNoLongerWantedRespectsMinOnTime(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeCompCooling)
	u.setActuator(ActCompressor, true)
	u.cyclesInState[ActCompressor] = compOffMinOnTicks - 1
	s.Desire[Unit1] = Desire{} // arbiter no longer wants this unit

	stepUnit(s, Unit1)

	if !u.Actuator[ActCompressor] || u.Mode != ModeCompCooling {
		t.Fatalf("expected unit to keep running before its minimum on-time elapses, got Mode=%v Actuator=%+v", u.Mode, u.Actuator)
	}
}

func TestStopIfNoLongerWantedStopsOnceMinOnTimeElapses(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeCompCooling)
	u.setActuator(ActCompressor, true)
	u.cyclesInState[ActCompressor] = compOffMinOnTicks
	s.Desire[Unit1] = Desire{}

	stepUnit(s, Unit1)

	if u.Actuator[ActCompressor] || u.Mode != ModeOff {
		t.Fatalf("expected unit to stop once its minimum on-time elapses, got Mode=%v Actuator=%+v", u.Mode, u.Actuator)
	}
}

// The defrost schedule drives the {valve, compressor, fan} bands directly
// and hands back to STARTING at tick 82.
func TestDefrostBandSchedule(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeDefrost)

	u.cyclesInState[numActuators] = 5
	stepUnit(s, Unit1)
	if !u.Actuator[ActValve] || u.Actuator[ActCompressor] || u.Actuator[ActFan] {
		t.Fatalf("tick 5: got valve=%v comp=%v fan=%v, want valve ON only",
			u.Actuator[ActValve], u.Actuator[ActCompressor], u.Actuator[ActFan])
	}
}

func TestDefrostBandTripsCompressorMidSchedule(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeDefrost)
	u.cyclesInState[numActuators] = 40

	stepUnit(s, Unit1)

	if !u.Actuator[ActCompressor] || u.Actuator[ActValve] || u.Actuator[ActFan] {
		t.Fatalf("tick 40: got valve=%v comp=%v fan=%v, want compressor ON only",
			u.Actuator[ActValve], u.Actuator[ActCompressor], u.Actuator[ActFan])
	}
}

func TestDefrostBandHandsOffToStartingAtTick82(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setMode(ModeDefrost)
	u.cyclesInState[numActuators] = 82

	stepUnit(s, Unit1)

	if u.Mode != ModeStarting {
		t.Fatalf("Mode = %v, want STARTING at tick 82", u.Mode)
	}
	if !u.Actuator[ActCompressor] || !u.Actuator[ActFan] {
		t.Fatal("expected compressor and fan commanded ON at the DEFROST->STARTING handoff")
	}
}
