package main

// stepUnit advances one unit's mode state machine by one tick: overheat
// protection first (it can interrupt any running mode), then the per-mode
// transition table, then the generic "arbiter no longer wants this unit"
// stop rule, then the mode-specific actuator targets. The per-actuator and
// per-mode tick counters are advanced last via unit.tick().
func stepUnit(s *State, u UnitIndex) {
	unit := &s.Units[u]

	if unit.Mode != ModeOff && unit.Mode != ModeOHP && s.Tcomp(u) > 63 {
		unit.setActuator(ActCompressor, false)
		unit.setActuator(ActFan, false)
		unit.setMode(ModeOHP)
	}

	if unit.Mode == ModeDefrost {
		applyDefrostBand(s, u)
		unit.tick()
		return
	}

	switch unit.Mode {
	case ModeOff:
		stepOff(s, u)
	case ModeStarting:
		stepStarting(s, u)
	case ModeCompCooling:
		stepCompCooling(s, u)
	case ModeFinStackHeating:
		stepFinStackHeating(s, u)
	case ModeOHP:
		stepOHP(s, u)
	}

	unit.tick()
}

func stepOff(s *State, u UnitIndex) {
	unit := &s.Units[u]
	if s.Desire[u].Compressor && unit.Actuator[ActValve] && canCompOn(s, u) {
		unit.setActuator(ActCompressor, true)
		unit.setActuator(ActFan, true)
		unit.setMode(ModeStarting)
		return
	}
	// Position the valve ahead of a future start, or hold the battery
	// safe-state, while nothing is running.
	setGated(s, u, ActValve, s.Desire[u].Valve)
	setGated(s, u, ActFan, s.Desire[u].Fan)
}

func stepStarting(s *State, u UnitIndex) {
	unit := &s.Units[u]
	switch {
	case s.Tcomp(u) > 56:
		unit.setMode(ModeCompCooling)
		return
	case unit.modeTicks() > 24:
		unit.setMode(ModeFinStackHeating)
		return
	}
	stopIfNoLongerWanted(s, u, true)
}

func stepCompCooling(s *State, u UnitIndex) {
	unit := &s.Units[u]
	unit.setActuator(ActFan, false)
	if s.Tcomp(u) < 56 && unit.modeTicks() > 10 {
		unit.setMode(ModeFinStackHeating)
		return
	}
	stopIfNoLongerWanted(s, u, false)
}

func stepFinStackHeating(s *State, u UnitIndex) {
	unit := &s.Units[u]
	unit.setActuator(ActFan, true)
	switch {
	case s.Tcomp(u) > 56 && unit.modeTicks() > 10:
		unit.setMode(ModeCompCooling)
		return
	case unit.modeTicks() > 159 && s.Tcond(u) < -6:
		enterDefrost(s, u)
		return
	case unit.modeTicks() > 359 && s.Tcond(u) < -3:
		enterDefrost(s, u)
		return
	}
	stopIfNoLongerWanted(s, u, true)
}

func stepOHP(s *State, u UnitIndex) {
	unit := &s.Units[u]
	if !unit.Actuator[ActCompressor] && unit.modeTicks() > 24 {
		unit.setMode(ModeOff)
	}
}

// enterDefrost starts the defrost program and applies its first band on
// the same tick, so the actuators never spend the entry tick in whatever
// state the previous mode left them.
func enterDefrost(s *State, u UnitIndex) {
	s.Units[u].setMode(ModeDefrost)
	applyDefrostBand(s, u)
}

// stopIfNoLongerWanted takes a running unit the arbiter has dropped back
// to OFF, gated by canCompOff so a hot compressor still gets its minimum
// run time even if the command flips away mid-cycle.
func stopIfNoLongerWanted(s *State, u UnitIndex, fanOff bool) {
	unit := &s.Units[u]
	if s.Desire[u].Compressor || !canCompOff(s, u) {
		return
	}
	unit.setActuator(ActCompressor, false)
	if fanOff {
		unit.setActuator(ActFan, false)
	}
	unit.setMode(ModeOff)
}

// setGated applies a target actuator state only if the corresponding Can*
// predicate currently permits the change; a denied change is silently
// deferred to a later tick.
func setGated(s *State, u UnitIndex, a Actuator, target bool) {
	unit := &s.Units[u]
	if unit.Actuator[a] == target {
		return
	}
	switch a {
	case ActValve:
		if target {
			if !canValveOn(s, u) {
				return
			}
		} else if !canValveOff(s, u) {
			return
		}
	case ActFan:
		if target {
			if !canFanOn(s, u) {
				return
			}
		} else if !canFanOff(s, u) {
			return
		}
	case ActCompressor:
		if target {
			if !canCompOn(s, u) {
				return
			}
		} else if !canCompOff(s, u) {
			return
		}
	}
	unit.setActuator(a, target)
}
