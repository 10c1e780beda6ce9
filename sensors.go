package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
)

// readRawTemperature reads one w1_slave-style device file: open the path
// read-only, read the first record (discarded, 39 bytes), read the second
// record (35 bytes), locate '=' and parse the signed milli-degree suffix
// up to the first non-digit or EOF.
func readRawTemperature(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	first := make([]byte, 39)
	if _, err := f.Read(first); err != nil {
		return 0, fmt.Errorf("read first record: %w", err)
	}

	second := make([]byte, 35)
	n, err := f.Read(second)
	if err != nil {
		return 0, fmt.Errorf("read second record: %w", err)
	}
	second = second[:n]

	idx := bytes.IndexByte(second, '=')
	if idx < 0 || idx+1 >= len(second) {
		return 0, fmt.Errorf("no '=' in second record")
	}

	rest := second[idx+1:]
	end := len(rest)
	for i, b := range rest {
		if (b < '0' || b > '9') && !(i == 0 && (b == '-' || b == '+')) {
			end = i
			break
		}
	}
	if end == 0 {
		return 0, fmt.Errorf("no digits after '='")
	}

	var milli int
	if _, err := fmt.Sscanf(string(rest[:end]), "%d", &milli); err != nil {
		return 0, fmt.Errorf("parse milli-degrees: %w", err)
	}

	return float64(milli) / 1000.0, nil
}

// readSensors performs one tick's worth of sensor reads and applies the
// sanity filter. It returns true if any channel's error counter has
// reached sensorFatalErrors; running blind on compressor temperature
// risks thermal destruction, so the caller shuts down.
func readSensors(s *State) (fatal bool) {
	for i := SensorIndex(0); i < numSensors; i++ {
		sn := &s.Sensors[i]
		raw, err := readRawTemperature(sn.Path)
		if err != nil {
			sn.Errors++
			log.Printf("WARN: sensor %s (%s) read failed (%d consecutive): %v", i, sn.Path, sn.Errors, err)
			if sn.Errors >= sensorFatalErrors {
				fatal = true
			}
			continue
		}
		if sn.Errors > 0 {
			sn.Errors--
		}

		filterSensor(s, i, raw)
		applyCorrection(s, i)
	}

	if s.JustStarted > 0 {
		s.JustStarted--
	}
	return fatal
}

// filterSensor clamps the inter-tick delta to ±maxTempDiff. During the
// first three ticks after startup (JustStarted > 0) raw values are
// accepted unfiltered and previous is seeded to current.
func filterSensor(s *State, i SensorIndex, raw float64) {
	sn := &s.Sensors[i]

	if s.JustStarted > 0 || sn.Previous == sensorNeverRead {
		sn.Current = raw
		sn.Previous = raw
		return
	}

	delta := raw - sn.Previous
	if delta > maxTempDiff {
		log.Printf("sensor %s: delta %.3f exceeds %.1f, clamping", i, delta, maxTempDiff)
		sn.Current = sn.Previous + maxTempDiff
	} else if delta < -maxTempDiff {
		log.Printf("sensor %s: delta %.3f exceeds %.1f, clamping", i, delta, maxTempDiff)
		sn.Current = sn.Previous - maxTempDiff
	} else {
		sn.Current = raw
	}
	sn.Previous = sn.Current
}

// applyCorrection adds the configured offset for the water-in, water-out and
// env channels after filtering. Only called for channels that produced a
// fresh reading this tick: a failed read leaves Current holding last tick's
// already-corrected value, which must not be corrected again.
func applyCorrection(s *State, i SensorIndex) {
	switch i {
	case SensWaterIn:
		s.Sensors[i].Current += s.Cfg.WiCorr
	case SensWaterOut:
		s.Sensors[i].Current += s.Cfg.WoCorr
	case SensEnv:
		s.Sensors[i].Current += s.Cfg.TEnvCorr
	}
}
