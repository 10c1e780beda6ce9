package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// reportWarmupTicks suppresses reporter output for the first few ticks
// after startup, to avoid writing garbage readings before the sensor
// filter has seeded.
const reportWarmupTicks = 8

// Reporter owns the three per-tick sinks: an appended CSV log, an
// overwritten parse-friendly text table, and an overwritten JSON snapshot.
type Reporter struct {
	csvPath   string
	tablePath string
	jsonPath  string
}

func newReporter(csvPath, tablePath, jsonPath string) *Reporter {
	return &Reporter{csvPath: csvPath, tablePath: tablePath, jsonPath: jsonPath}
}

// probeSinks verifies each report path is writable before the polling loop
// starts; a bad path is fatal at startup, not a per-tick warning. Returns
// the exit code for the first sink that fails, or 0.
func (r *Reporter) probeSinks() (int, error) {
	probes := []struct {
		path string
		code int
	}{
		{r.csvPath, exitCSVOpenFailure},
		{r.tablePath, exitTableOpenFailure},
		{r.jsonPath, exitJSONOpenFailure},
	}
	for _, p := range probes {
		f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return p.code, fmt.Errorf("open report sink %s: %w", p.path, err)
		}
		f.Close()
	}
	return 0, nil
}

// snapshot is the shape written to the JSON sink; also the unit used to
// serve the Modbus diagnostics server (modbusserver.go) and the handler
// test fixtures.
type snapshot struct {
	Time string `json:"time"`

	Sensors map[string]float64 `json:"sensors"`

	Unit1Mode string `json:"unit1_mode"`
	Unit2Mode string `json:"unit2_mode"`

	Unit1Comp  bool `json:"unit1_comp"`
	Unit1Fan   bool `json:"unit1_fan"`
	Unit1Valve bool `json:"unit1_valve"`
	Unit2Comp  bool `json:"unit2_comp"`
	Unit2Fan   bool `json:"unit2_fan"`
	Unit2Valve bool `json:"unit2_valve"`

	C1RunCs uint64 `json:"c1_run_cs"`
	C2RunCs uint64 `json:"c2_run_cs"`

	Command  int `json:"command"`
	Response int `json:"response"`
}

func buildSnapshot(s *State, now time.Time) snapshot {
	sn := snapshot{
		Time:      now.Format(time.RFC3339),
		Sensors:   map[string]float64{},
		Unit1Mode: s.Units[Unit1].Mode.String(),
		Unit2Mode: s.Units[Unit2].Mode.String(),

		Unit1Comp:  s.Units[Unit1].Actuator[ActCompressor],
		Unit1Fan:   s.Units[Unit1].Actuator[ActFan],
		Unit1Valve: s.Units[Unit1].Actuator[ActValve],
		Unit2Comp:  s.Units[Unit2].Actuator[ActCompressor],
		Unit2Fan:   s.Units[Unit2].Actuator[ActFan],
		Unit2Valve: s.Units[Unit2].Actuator[ActValve],

		C1RunCs: s.Units[Unit1].RunCs,
		C2RunCs: s.Units[Unit2].RunCs,

		Command:  int(s.LastCommand),
		Response: int(s.LastResponse),
	}
	for i := SensorIndex(0); i < numSensors; i++ {
		sn.Sensors[i.String()] = s.Sensors[i].Current
	}
	return sn
}

// report runs the three sinks for one tick. Errors are logged, not fatal:
// a reporting failure must never take down the control loop.
func (r *Reporter) report(s *State, now time.Time) {
	if s.TickCount < reportWarmupTicks {
		return
	}

	sn := buildSnapshot(s, now)

	if err := r.appendCSV(s, sn, now); err != nil {
		log.Printf("reporter: CSV append failed: %v", err)
	}
	if err := r.writeTable(s, sn); err != nil {
		log.Printf("reporter: table write failed: %v", err)
	}
	if err := r.writeJSON(sn); err != nil {
		log.Printf("reporter: JSON write failed: %v", err)
	}

	updatePrometheus(s)
}

func (r *Reporter) appendCSV(s *State, sn snapshot, now time.Time) error {
	f, err := os.OpenFile(r.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.csvPath, err)
	}
	defer f.Close()

	wantGot := func(u UnitIndex) string {
		unit := &s.Units[u]
		return fmt.Sprintf("%v/%v,%v/%v,%v/%v",
			s.Desire[u].Compressor, unit.Actuator[ActCompressor],
			s.Desire[u].Fan, unit.Actuator[ActFan],
			s.Desire[u].Valve, unit.Actuator[ActValve])
	}

	// diffs counts actuators whose state lags behind the arbiter's desire,
	// i.e. changes currently held back by an interlock.
	diffs := 0
	for u := UnitIndex(0); u < numUnits; u++ {
		unit := &s.Units[u]
		if s.Desire[u].Compressor != unit.Actuator[ActCompressor] {
			diffs++
		}
		if s.Desire[u].Fan != unit.Actuator[ActFan] {
			diffs++
		}
		if s.Desire[u].Valve != unit.Actuator[ActValve] {
			diffs++
		}
	}

	line := fmt.Sprintf("%s,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%s,%s,%s,%s,diff=%d,%d,%d\n",
		now.Format(time.RFC3339),
		s.Sensors[SensAC1Comp].Current, s.Sensors[SensAC1Cond].Current,
		s.Sensors[SensHE1In].Current, s.Sensors[SensHE1Out].Current,
		s.Sensors[SensAC2Comp].Current, s.Sensors[SensAC2Cond].Current,
		s.Sensors[SensHE2In].Current, s.Sensors[SensHE2Out].Current,
		s.Sensors[SensWaterIn].Current, s.Sensors[SensWaterOut].Current,
		s.Sensors[SensEnv].Current,
		sn.Unit1Mode, wantGot(Unit1),
		sn.Unit2Mode, wantGot(Unit2),
		diffs,
		sn.Command, sn.Response,
	)
	_, err = f.WriteString(line)
	return err
}

func (r *Reporter) writeTable(s *State, sn snapshot) error {
	tmp := r.tablePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	row := func(k string, v interface{}) {
		fmt.Fprintf(f, "_,%s,%v\n", k, v)
	}
	row("TIME", sn.Time)
	for i := SensorIndex(0); i < numSensors; i++ {
		row(i.String(), s.Sensors[i].Current)
	}
	row("AC1MODE", sn.Unit1Mode)
	row("AC2MODE", sn.Unit2Mode)
	row("AC1COMP", sn.Unit1Comp)
	row("AC1FAN", sn.Unit1Fan)
	row("AC1VALVE", sn.Unit1Valve)
	row("AC2COMP", sn.Unit2Comp)
	row("AC2FAN", sn.Unit2Fan)
	row("AC2VALVE", sn.Unit2Valve)
	row("C1RUNCS", sn.C1RunCs)
	row("C2RUNCS", sn.C2RunCs)
	row("COMMAND", sn.Command)
	row("RESPONSE", sn.Response)

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, r.tablePath)
}

func (r *Reporter) writeJSON(sn snapshot) error {
	tmp := r.jsonPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(sn); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, r.jsonPath)
}

// ------------------ Prometheus metrics ------------------
//
// Gauges are registered once at startup and updated every tick.

var (
	sensorGauge *prometheus.GaugeVec
	modeGauge   *prometheus.GaugeVec
	actGauge    *prometheus.GaugeVec
	runCsGauge  *prometheus.GaugeVec
	cmdGauge    prometheus.Gauge
	respGauge   prometheus.Gauge
)

// registerMetrics registers every gauge exactly once; call before the
// polling loop starts.
func registerMetrics() {
	sensorGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hpmctl_sensor_temperature_celsius",
		Help: "Filtered 1-Wire sensor reading, in Celsius.",
	}, []string{"channel"})

	modeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hpmctl_unit_mode",
		Help: "Current mode of a unit (0=OFF..5=OHP).",
	}, []string{"unit"})

	actGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hpmctl_unit_actuator",
		Help: "Current actuator state (1=ON, 0=OFF).",
	}, []string{"unit", "actuator"})

	runCsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hpmctl_unit_run_cycles_total",
		Help: "Cumulative compressor run-cycle count.",
	}, []string{"unit"})

	cmdGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hpmctl_command_register",
		Help: "Last command register value from the sibling controller.",
	})
	respGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hpmctl_response_register",
		Help: "Last response register value sent to the sibling controller.",
	})

	prometheus.MustRegister(sensorGauge, modeGauge, actGauge, runCsGauge, cmdGauge, respGauge)
}

func updatePrometheus(s *State) {
	for i := SensorIndex(0); i < numSensors; i++ {
		sensorGauge.WithLabelValues(i.String()).Set(s.Sensors[i].Current)
	}
	for u := UnitIndex(0); u < numUnits; u++ {
		label := unitLabel(u)
		modeGauge.WithLabelValues(label).Set(float64(s.Units[u].Mode))
		runCsGauge.WithLabelValues(label).Set(float64(s.Units[u].RunCs))
		for a := Actuator(0); a < numActuators; a++ {
			actGauge.WithLabelValues(label, a.String()).Set(boolMetric(s.Units[u].Actuator[a]))
		}
	}
	cmdGauge.Set(float64(s.LastCommand))
	respGauge.Set(float64(s.LastResponse))
}

func unitLabel(u UnitIndex) string {
	if u == Unit1 {
		return "ac1"
	}
	return "ac2"
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
