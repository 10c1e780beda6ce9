package main

import "testing"

func newTestState() *State {
	s := newState(defaultConfig())
	s.Units[Unit1].Enabled = true
	s.Units[Unit2].Enabled = true
	return s
}

func TestCanCompOnRequiresMinOffTime(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.cyclesInState[ActCompressor] = compOnMinOffTicks - 1
	if canCompOn(s, Unit1) {
		t.Fatal("expected canCompOn to deny before min off time elapses")
	}
	u.cyclesInState[ActCompressor] = compOnMinOffTicks
	if !canCompOn(s, Unit1) {
		t.Fatal("expected canCompOn to allow once min off time elapses")
	}
}

func TestCanCompOnDeniedAboveTempCeiling(t *testing.T) {
	s := newTestState()
	s.Units[Unit1].cyclesInState[ActCompressor] = compOnMinOffTicks
	s.Sensors[SensAC1Comp].Current = 60
	if canCompOn(s, Unit1) {
		t.Fatal("expected canCompOn to deny when Tcomp exceeds ceiling")
	}
}

func TestCanCompOnDeniedDuringCrossUnitStagger(t *testing.T) {
	s := newTestState()
	s.Units[Unit1].cyclesInState[ActCompressor] = compOnMinOffTicks
	s.Units[Unit2].setActuator(ActCompressor, true)
	s.Units[Unit2].cyclesInState[ActCompressor] = crossUnitStagger - 1
	if canCompOn(s, Unit1) {
		t.Fatal("expected canCompOn to deny during the sibling's inrush stagger window")
	}
}

func TestCanCompOnBypassesStaggerOnceElapsed(t *testing.T) {
	s := newTestState()
	s.Units[Unit1].cyclesInState[ActCompressor] = compOnMinOffTicks
	s.Units[Unit2].setActuator(ActCompressor, true)
	s.Units[Unit2].cyclesInState[ActCompressor] = crossUnitStagger + 1
	if !canCompOn(s, Unit1) {
		t.Fatal("expected canCompOn to allow once the stagger window has elapsed")
	}
}

func TestCanCompOffRequiresMinOnTime(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setActuator(ActCompressor, true)
	u.cyclesInState[ActCompressor] = compOffMinOnTicks - 1
	if canCompOff(s, Unit1) {
		t.Fatal("expected canCompOff to deny before min on time elapses")
	}
	u.cyclesInState[ActCompressor] = compOffMinOnTicks
	if !canCompOff(s, Unit1) {
		t.Fatal("expected canCompOff to allow once min on time elapses")
	}
}

func TestCanCompOffUnconditionalDuringDefrostOHPOrBattery(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setActuator(ActCompressor, true)
	u.cyclesInState[ActCompressor] = 0

	u.Mode = ModeDefrost
	if !canCompOff(s, Unit1) {
		t.Error("expected canCompOff to allow unconditionally during DEFROST")
	}
	u.Mode = ModeOHP
	if !canCompOff(s, Unit1) {
		t.Error("expected canCompOff to allow unconditionally during OHP")
	}
	u.Mode = ModeCompCooling
	s.LastCommand = CmdBattery
	if !canCompOff(s, Unit1) {
		t.Error("expected canCompOff to allow unconditionally under a BATTERY command")
	}
}

func TestCanValveChangeRequiresCompressorOff(t *testing.T) {
	s := newTestState()
	u := &s.Units[Unit1]
	u.setActuator(ActCompressor, true)
	if canValveChange(s, Unit1) {
		t.Fatal("expected valve change to be denied while the compressor runs")
	}
	u.setActuator(ActCompressor, false)
	u.cyclesInState[ActCompressor] = valveChangeMinOff + 1
	if !canValveChange(s, Unit1) {
		t.Fatal("expected valve change to be allowed once compressor has been off long enough")
	}
}
