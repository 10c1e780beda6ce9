package main

// arbitrate decides which units should be running given the external
// command, the run-cycle ledger and the current compressor states. It
// updates s.Desire in place; on CmdNoChange the previous desire is left
// untouched.
func arbitrate(s *State, cmd Command) {
	s.LastCommand = cmd

	switch cmd {
	case CmdNoChange:
		// keep current desires
	case CmdLow:
		arbitrateLow(s)
	case CmdHigh:
		for u := UnitIndex(0); u < numUnits; u++ {
			want := s.Units[u].Enabled
			s.Desire[u] = Desire{Compressor: want, Fan: want, Valve: want}
		}
	case CmdBattery:
		for u := UnitIndex(0); u < numUnits; u++ {
			// Safe-state: valves default ON (keeps refrigerant path correct
			// for heating resume) even though nothing may compress.
			s.Desire[u] = Desire{Compressor: false, Fan: false, Valve: true}
		}
	}

	// A unit mid-defrost must complete its schedule regardless of what the
	// command just decided.
	for u := UnitIndex(0); u < numUnits; u++ {
		if s.Units[u].Mode == ModeDefrost {
			s.Desire[u].Compressor = true
		}
		if !s.Units[u].Enabled {
			s.Desire[u] = Desire{}
		}
	}
}

// arbitrateLow implements the command=1 (LOW) case: exactly one unit should
// compress, chosen by fair-share tie-breaking on the run-cycle ledger.
func arbitrateLow(s *State) {
	running1 := s.Units[Unit1].Actuator[ActCompressor]
	running2 := s.Units[Unit2].Actuator[ActCompressor]

	switch {
	case !running1 && !running2:
		primary, secondary := Unit1, Unit2
		if s.Units[Unit2].RunCs < s.Units[Unit1].RunCs {
			primary, secondary = Unit2, Unit1
		}
		if !canCompOn(s, primary) && canCompOn(s, secondary) {
			primary, secondary = secondary, primary
		}
		setSoleDesire(s, primary, secondary)

	case running1 && !running2:
		setSoleDesire(s, Unit1, Unit2)

	case !running1 && running2:
		setSoleDesire(s, Unit2, Unit1)

	default: // both running: keep the less-used one, remove the other
		keep, drop := Unit1, Unit2
		if s.Units[Unit2].RunCs < s.Units[Unit1].RunCs {
			keep, drop = Unit2, Unit1
		}
		setSoleDesire(s, keep, drop)
	}
}

func setSoleDesire(s *State, on, off UnitIndex) {
	if s.Units[on].Enabled {
		s.Desire[on] = Desire{Compressor: true, Fan: true, Valve: true}
	} else {
		s.Desire[on] = Desire{}
	}
	s.Desire[off] = Desire{}
}
