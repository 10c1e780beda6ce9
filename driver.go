package main

// unitActuatorPin maps a (unit, actuator) pair to its configured GPIO line.
var unitActuatorPin = [numUnits][numActuators]PinIndex{
	Unit1: {ActCompressor: PinAC1Comp, ActFan: PinAC1Fan, ActValve: PinAC1Valve},
	Unit2: {ActCompressor: PinAC2Comp, ActFan: PinAC2Fan, ActValve: PinAC2Valve},
}

// driveOutputs writes every actuator's current logical state to GPIO. The
// gpioBinding itself only issues the underlying write when the value
// differs from the last write, so this can be called unconditionally every
// tick without relay chatter or sysfs write amplification.
func driveOutputs(s *State, g *gpioBinding) error {
	for u := UnitIndex(0); u < numUnits; u++ {
		for a := Actuator(0); a < numActuators; a++ {
			pin := unitActuatorPin[u][a]
			if err := g.write(pin, s.Units[u].Actuator[a]); err != nil {
				return err
			}
		}
	}
	return nil
}
