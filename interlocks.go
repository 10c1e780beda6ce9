package main

// Timing constants for the safety-interlock predicates. The compressor
// minimum on/off times are manufacturer-mandated.
const (
	compOnMinOffTicks = 96 // ~8 min, anti-short-cycle before starting
	compOffMinOnTicks = 84 // ~7 min, minimum run time before stopping
	crossUnitStagger  = 6  // 30s stagger before the other unit may also start
	valveChangeMinOff = 1  // compressor must have been off > this many ticks
)

// canCompOn gates compressor starts: unit enabled, Tcomp within bounds,
// anti-short-cycle satisfied (bypassed during DEFROST), and the cross-unit
// inrush stagger satisfied.
func canCompOn(s *State, u UnitIndex) bool {
	unit := &s.Units[u]
	if !unit.Enabled {
		return false
	}
	if unit.Actuator[ActCompressor] {
		return false
	}
	if s.Tcomp(u) > 59 {
		return false
	}
	if unit.Mode != ModeDefrost {
		if unit.ticksSince(ActCompressor) < compOnMinOffTicks {
			return false
		}
	}

	other := &s.Units[s.other(u)]
	if other.Actuator[ActCompressor] && other.ticksSince(ActCompressor) <= crossUnitStagger {
		return false
	}
	return true
}

// canCompOff implements the CompOff predicate: unconditional during
// DEFROST/OHP/battery-command, otherwise the minimum-on-time must have
// elapsed.
func canCompOff(s *State, u UnitIndex) bool {
	unit := &s.Units[u]
	if !unit.Actuator[ActCompressor] {
		return false
	}
	if unit.Mode == ModeDefrost || unit.Mode == ModeOHP || s.LastCommand == CmdBattery {
		return true
	}
	return unit.ticksSince(ActCompressor) >= compOffMinOnTicks
}

// canValveChange covers both valve directions: the valve may only move
// while the compressor is off, and has been off for more than one tick.
// Changing the reversing valve under load welds it.
func canValveChange(s *State, u UnitIndex) bool {
	unit := &s.Units[u]
	if unit.Actuator[ActCompressor] {
		return false
	}
	return unit.ticksSince(ActCompressor) > valveChangeMinOff
}

func canValveOn(s *State, u UnitIndex) bool  { return canValveChange(s, u) }
func canValveOff(s *State, u UnitIndex) bool { return canValveChange(s, u) }

// Fan changes are always allowed.
func canFanOn(s *State, u UnitIndex) bool  { return true }
func canFanOff(s *State, u UnitIndex) bool { return true }
