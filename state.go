package main

import "time"

// Actuator identifies one of the three controllable devices on a unit.
type Actuator int

const (
	ActCompressor Actuator = iota
	ActFan
	ActValve
	numActuators
)

func (a Actuator) String() string {
	switch a {
	case ActCompressor:
		return "COMP"
	case ActFan:
		return "FAN"
	case ActValve:
		return "VALVE"
	default:
		return "?"
	}
}

// Mode is the per-unit state machine state.
type Mode int

const (
	ModeOff Mode = iota
	ModeStarting
	ModeCompCooling
	ModeFinStackHeating
	ModeDefrost
	ModeOHP
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "OFF"
	case ModeStarting:
		return "STARTING"
	case ModeCompCooling:
		return "COMP-COOLING"
	case ModeFinStackHeating:
		return "FIN-STACK-HEATING"
	case ModeDefrost:
		return "DEFROST"
	case ModeOHP:
		return "OHP"
	default:
		return "?"
	}
}

// Command is the inbound 2-bit register from the sibling controller.
type Command int

const (
	CmdNoChange Command = iota
	CmdLow
	CmdHigh
	CmdBattery
)

// Response is the outbound 2-bit register to the sibling controller.
type Response int

const (
	RespNone    Response = 0
	RespCanAdd  Response = 1
	RespCanRem  Response = 2
	RespCanBoth Response = 3
)

// SensorIndex names the eleven 1-Wire channels.
type SensorIndex int

const (
	SensAC1Comp SensorIndex = iota
	SensAC1Cond
	SensHE1In
	SensHE1Out
	SensAC2Comp
	SensAC2Cond
	SensHE2In
	SensHE2Out
	SensWaterIn
	SensWaterOut
	SensEnv
	numSensors
)

func (s SensorIndex) String() string {
	switch s {
	case SensAC1Comp:
		return "AC1comp"
	case SensAC1Cond:
		return "AC1cond"
	case SensHE1In:
		return "HE1in"
	case SensHE1Out:
		return "HE1out"
	case SensAC2Comp:
		return "AC2comp"
	case SensAC2Cond:
		return "AC2cond"
	case SensHE2In:
		return "HE2in"
	case SensHE2Out:
		return "HE2out"
	case SensWaterIn:
		return "WaterIn"
	case SensWaterOut:
		return "WaterOut"
	case SensEnv:
		return "Env"
	default:
		return "?"
	}
}

// UnitIndex names the two outdoor units.
type UnitIndex int

const (
	Unit1 UnitIndex = iota
	Unit2
	numUnits
)

// sensorNeverRead is the sentinel meaning "this channel has not produced a
// reading yet".
const sensorNeverRead = -200.0

// maxTempDiff bounds the per-tick delta the sanity filter will accept.
const maxTempDiff = 5.0

// Sensor holds the filtered state of one 1-Wire channel.
type Sensor struct {
	Path     string
	Current  float64
	Previous float64
	Errors   int // saturates at sensorFatalErrors
}

const sensorFatalErrors = 5

// Unit holds the control state of one outdoor AC unit.
type Unit struct {
	Enabled bool

	Actuator [numActuators]bool
	Mode     Mode

	// cyclesInState counts ticks since the corresponding actuator (indexed
	// by Actuator) or the mode (index numActuators) last changed.
	cyclesInState [numActuators + 1]int

	RunCs uint64
}

func (u *Unit) on(a Actuator) bool { return u.Actuator[a] }

func (u *Unit) ticksSince(a Actuator) int { return u.cyclesInState[a] }

func (u *Unit) modeTicks() int { return u.cyclesInState[numActuators] }

// setActuator updates an actuator's state, resetting its tick counter if it
// changed.
func (u *Unit) setActuator(a Actuator, on bool) {
	if u.Actuator[a] != on {
		u.Actuator[a] = on
		u.cyclesInState[a] = 0
	}
}

// setMode transitions to a new mode, resetting SCmode.
func (u *Unit) setMode(m Mode) {
	if u.Mode != m {
		u.Mode = m
		u.cyclesInState[numActuators] = 0
	}
}

// tick advances all per-actuator and per-mode counters by one. Call once per
// unit per scheduler tick, after any state transitions for that tick have
// been applied.
func (u *Unit) tick() {
	for i := range u.cyclesInState {
		u.cyclesInState[i]++
	}
}

// Desire is what the arbiter wants for one unit this tick.
type Desire struct {
	Compressor bool
	Fan        bool
	Valve      bool
}

// State is the single owning record threaded through every phase of the
// tick. There is no other mutable process-wide state besides the two
// signal flags.
type State struct {
	Cfg Config

	Sensors [numSensors]Sensor
	Units   [numUnits]Unit

	JustStarted int // counts down from 3 on startup; see sensors.go

	// CurrentHour/CurrentMonth are captured from wall-clock every
	// ticksPerHourCapture ticks; the log-rotation cron that consumes them
	// runs outside this daemon, but deriving the values is the scheduler's
	// job.
	CurrentHour  int
	CurrentMonth time.Month

	LastCommand  Command
	LastResponse Response

	Desire [numUnits]Desire

	TickCount uint64

	gpio *gpioBinding
	comm *commLink
}

func newState(cfg Config) *State {
	s := &State{Cfg: cfg, JustStarted: 3}
	for i := range s.Sensors {
		s.Sensors[i].Current = sensorNeverRead
		s.Sensors[i].Previous = sensorNeverRead
		s.Sensors[i].Path = cfg.SensorPath[SensorIndex(i)]
	}
	s.Units[Unit1].Enabled = cfg.UseAC1
	s.Units[Unit2].Enabled = cfg.UseAC2
	return s
}

func (s *State) sensor(i SensorIndex) float64 { return s.Sensors[i].Current }

// Tcomp/Tcond return the compressor and condenser temperatures for a unit.
func (s *State) Tcomp(u UnitIndex) float64 {
	if u == Unit1 {
		return s.sensor(SensAC1Comp)
	}
	return s.sensor(SensAC2Comp)
}

func (s *State) Tcond(u UnitIndex) float64 {
	if u == Unit1 {
		return s.sensor(SensAC1Cond)
	}
	return s.sensor(SensAC2Cond)
}

func (s *State) other(u UnitIndex) UnitIndex {
	if u == Unit1 {
		return Unit2
	}
	return Unit1
}
