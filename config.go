package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// gpioLineMin/Max bound the configurable line numbers to the usable range
// of the 40-pin header.
const (
	gpioLineMin = 4
	gpioLineMax = 27
)

// PinIndex names the ten configured GPIO lines in a fixed order, used both
// for the duplicate-check and for iterating defaults.
type PinIndex int

const (
	PinAC1Comp PinIndex = iota
	PinAC1Fan
	PinAC1Valve
	PinAC2Comp
	PinAC2Fan
	PinAC2Valve
	PinCommIn1
	PinCommIn2
	PinCommOut1
	PinCommOut2
	numPins
)

var pinConfigKey = [numPins]string{
	PinAC1Comp:  "ac1cmp_pin",
	PinAC1Fan:   "ac1fan_pin",
	PinAC1Valve: "ac1v_pin",
	PinAC2Comp:  "ac2cmp_pin",
	PinAC2Fan:   "ac2fan_pin",
	PinAC2Valve: "ac2v_pin",
	PinCommIn1:  "commspin1_pin",
	PinCommIn2:  "commspin2_pin",
	PinCommOut1: "commspin3_pin",
	PinCommOut2: "commspin4_pin",
}

// defaultPins is the fallback pin table. Every entry is distinct; earlier
// revisions of this controller shipped a default table that aliased the
// AC1 outputs onto the AC2 lines.
var defaultPins = [numPins]int{
	PinAC1Comp:  5,
	PinAC1Fan:   6,
	PinAC1Valve: 13,
	PinAC2Comp:  16,
	PinAC2Fan:   19,
	PinAC2Valve: 20,
	PinCommIn1:  21,
	PinCommIn2:  22,
	PinCommOut1: 23,
	PinCommOut2: 24,
}

var sensorConfigKey = [numSensors]string{
	SensAC1Comp:  "ac1cmp_sensor",
	SensAC1Cond:  "ac1cnd_sensor",
	SensHE1In:    "he1i_sensor",
	SensHE1Out:   "he1o_sensor",
	SensAC2Comp:  "ac2cmp_sensor",
	SensAC2Cond:  "ac2cnd_sensor",
	SensHE2In:    "he2i_sensor",
	SensHE2Out:   "he2o_sensor",
	SensWaterIn:  "wi_sensor",
	SensWaterOut: "wo_sensor",
	SensEnv:      "tenv_sensor",
}

// Config holds the recognized configuration keys.
type Config struct {
	Mode int // 0=off, 1=auto

	UseAC1 bool
	UseAC2 bool

	SensorPath [numSensors]string
	Pin        [numPins]int

	InvertOutput bool

	WiCorr   float64
	WoCorr   float64
	TEnvCorr float64

	// ModbusListen, if non-empty, enables the read-only Modbus TCP
	// diagnostics server on that "host:port" address.
	ModbusListen string
}

// defaultConfig returns the configuration used when a key is absent or
// invalid: log and fall back rather than abort.
func defaultConfig() Config {
	c := Config{
		Mode:   0,
		UseAC1: true,
		UseAC2: true,
	}
	c.Pin = defaultPins
	return c
}

// LoadConfig parses a line-oriented key=value file. Unknown keys are
// ignored. A missing file yields defaultConfig without error: a fresh
// install with no config file at all still runs in a safe default mode
// rather than fail to start.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	kv := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		kv[key] = val
	}
	if err := sc.Err(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	applyConfig(&cfg, kv)
	validateConfig(&cfg)
	return cfg, nil
}

func applyConfig(cfg *Config, kv map[string]string) {
	if v, ok := kv["mode"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mode = n
		}
	}
	if v, ok := kv["use_ac1"]; ok {
		cfg.UseAC1 = parseBool(v, cfg.UseAC1)
	}
	if v, ok := kv["use_ac2"]; ok {
		cfg.UseAC2 = parseBool(v, cfg.UseAC2)
	}
	if v, ok := kv["invert_output"]; ok {
		cfg.InvertOutput = parseBool(v, cfg.InvertOutput)
	}
	if v, ok := kv["wicorr"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.WiCorr = f
		}
	}
	if v, ok := kv["wocorr"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.WoCorr = f
		}
	}
	if v, ok := kv["tenvcorr"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.TEnvCorr = f
		}
	}
	if v, ok := kv["modbus_listen"]; ok {
		cfg.ModbusListen = v
	}

	for i := SensorIndex(0); i < numSensors; i++ {
		if v, ok := kv[sensorConfigKey[i]]; ok && v != "" {
			cfg.SensorPath[i] = v
		}
	}
	for i := PinIndex(0); i < numPins; i++ {
		if v, ok := kv[pinConfigKey[i]]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Pin[i] = n
			}
		}
	}
}

func parseBool(v string, cur bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return cur
	}
}

// validateConfig clamps the mode and checks that every configured GPIO
// line is in range and distinct. Any pin violation reverts the whole table
// to defaults: a partially-substituted table could still leave two
// actuators sharing a line.
func validateConfig(cfg *Config) {
	if cfg.Mode < 0 || cfg.Mode > 8 {
		log.Printf("config: mode %d out of range, resetting to 0", cfg.Mode)
		cfg.Mode = 0
	}

	bad := false
	seen := map[int]bool{}
	for i := PinIndex(0); i < numPins; i++ {
		p := cfg.Pin[i]
		if p < gpioLineMin || p > gpioLineMax {
			log.Printf("config: pin %s=%d out of range [%d,%d]", pinConfigKey[i], p, gpioLineMin, gpioLineMax)
			bad = true
			break
		}
		if seen[p] {
			log.Printf("config: pin %s=%d duplicates another configured line", pinConfigKey[i], p)
			bad = true
			break
		}
		seen[p] = true
	}
	if bad {
		log.Printf("config: invalid GPIO line assignment, reverting all pins to defaults")
		cfg.Pin = defaultPins
	}
}

// reloadFlag is set by the reload signal handler and consumed once per tick
// at a fixed point in the main loop.
var reloadFlag atomic.Bool

// terminateFlag is set by the terminate signal handler.
var terminateFlag atomic.Bool
