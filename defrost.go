package main

// applyDefrostBand runs the fixed defrost program: a sequence of
// {valve, compressor, fan} triplets banded by ticks-in-mode, followed by a
// transition back to STARTING at tick 82. The program deliberately
// overrides the ordinary anti-short-cycle and valve timings, so it drives
// the actuators directly rather than going through the Can* gates in
// interlocks.go.
func applyDefrostBand(s *State, u UnitIndex) {
	unit := &s.Units[u]
	t := unit.modeTicks()

	var valve, comp, fan bool
	switch {
	case t <= 8:
		valve, comp, fan = true, false, false
	case t <= 17:
		valve, comp, fan = false, false, false
	case t <= 57:
		valve, comp, fan = false, true, false
	case t <= 69:
		valve, comp, fan = false, false, false
	case t <= 81:
		valve, comp, fan = true, false, false
	default:
		// t >= 82: hand off to STARTING with compressor and fan commanded
		// on directly; the same bypass that lets DEFROST toggle the
		// compressor freely also covers this restart.
		unit.setActuator(ActCompressor, true)
		unit.setActuator(ActFan, true)
		unit.setMode(ModeStarting)
		return
	}

	unit.setActuator(ActValve, valve)
	unit.setActuator(ActCompressor, comp)
	unit.setActuator(ActFan, fan)
}
