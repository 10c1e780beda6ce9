package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes, part of the external contract with the restart wrappers.
const (
	exitOK                  = 0
	exitForkFailure         = 1
	exitLockFailure         = 2
	exitLogOpenFailure      = 3
	exitCSVOpenFailure      = 4
	exitTableOpenFailure    = 5
	exitJSONOpenFailure     = 6
	exitGPIOEnableFailure   = 11
	exitGPIODirFailure      = 12
	exitShutdownGPIOErr     = 14
	exitExcessiveSensorErrs = 55
	exitSensorLossGPIOErr   = 66
)

var (
	flagConfigPath = flag.String("config", "/etc/hpmctl.conf", "configuration file path")
	flagStatePath  = flag.String("state", "/var/lib/hpmctl/state", "run-cycle persistence file path")
	flagLogPath    = flag.String("log", "", "log file path (empty = stderr)")
	flagPIDPath    = flag.String("pid", "/var/run/hpmctl.pid", "PID lock file path")
	flagCSVPath    = flag.String("csv", "/var/log/hpmctl.csv", "CSV report path")
	flagTablePath  = flag.String("table", "/var/lib/hpmctl/table.txt", "text table report path")
	flagJSONPath   = flag.String("json", "/var/lib/hpmctl/snapshot.json", "JSON snapshot report path")
	flagHTTPAddr   = flag.String("http", ":9090", "address to serve /metrics on")
)

func main() {
	flag.Parse()

	if *flagLogPath != "" {
		lf, err := os.OpenFile(*flagLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("ALARM: open log file %s: %v", *flagLogPath, err)
			os.Exit(exitLogOpenFailure)
		}
		log.SetOutput(lf)
	}

	pidFile, err := acquirePIDLock(*flagPIDPath)
	if err != nil {
		log.Printf("ALARM: %v", err)
		os.Exit(exitLockFailure)
	}
	defer pidFile.Close()

	cfg, err := LoadConfig(*flagConfigPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	for i := SensorIndex(0); i < numSensors; i++ {
		cfg.SensorPath[i] = defaultSensorPathIfEmpty(cfg.SensorPath[i], i)
	}

	gb, err := initGPIO(cfg)
	if err != nil {
		log.Printf("ALARM: gpio init failed: %v", err)
		if errors.Is(err, errGPIODirection) {
			os.Exit(exitGPIODirFailure)
		}
		os.Exit(exitGPIOEnableFailure)
	}

	c1, c2, err := LoadLedger(*flagStatePath)
	if err != nil {
		log.Fatalf("load persistence: %v", err)
	}

	s := newState(cfg)
	s.gpio = gb
	s.comm = newCommLink(gb)
	s.Units[Unit1].RunCs = c1
	s.Units[Unit2].RunCs = c2

	installSignalHandlers()

	registerMetrics()
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("serving /metrics on %s", *flagHTTPAddr)
		if err := http.ListenAndServe(*flagHTTPAddr, nil); err != nil {
			log.Printf("metrics http server failed: %v", err)
		}
	}()

	reporter := newReporter(*flagCSVPath, *flagTablePath, *flagJSONPath)
	if code, err := reporter.probeSinks(); err != nil {
		log.Printf("ALARM: %v", err)
		os.Exit(code)
	}

	var diag *diagServer
	if cfg.ModbusListen != "" {
		diag, err = newDiagServer(cfg.ModbusListen)
		if err != nil {
			log.Printf("modbus diagnostics server disabled: %v", err)
		} else if err := diag.start(); err != nil {
			log.Printf("modbus diagnostics server failed to start: %v", err)
			diag = nil
		} else {
			logDiagServerStart(cfg.ModbusListen)
		}
	}

	runLoop(func(t0 time.Time) bool {
		return tick(s, reporter, diag, t0)
	})
}

// tick runs exactly one cycle of the control loop: sensors, filter,
// command read, arbiter, per-unit state machine, interlocked output drive,
// response encode, link write, reporting. It returns false to stop the
// scheduler (used only by the terminate path).
func tick(s *State, reporter *Reporter, diag *diagServer, t0 time.Time) bool {
	captureWallClock(s, t0)

	if fatal := readSensors(s); fatal {
		log.Printf("ALARM: sensor error threshold reached, shutting down")
		shutdown(s, exitExcessiveSensorErrs, exitSensorLossGPIOErr)
		return false
	}

	cmd := s.comm.readCommand()

	if reloadFlag.Load() {
		reloadFlag.Store(false)
		applyReload(s)
	}

	arbitrate(s, cmd)

	for u := UnitIndex(0); u < numUnits; u++ {
		stepUnit(s, u)
		if s.Units[u].Actuator[ActCompressor] {
			s.Units[u].RunCs++
		}
	}

	s.LastResponse = encodeResponse(s)
	if err := s.comm.writeResponse(s.LastResponse); err != nil {
		log.Printf("command link write failed: %v", err)
	}

	if err := driveOutputs(s, s.gpio); err != nil {
		log.Printf("gpio write failed: %v", err)
	}

	reporter.report(s, t0)
	if diag != nil {
		diag.update(s)
	}

	if s.TickCount%ticksPerPersist == 0 {
		if err := SaveLedger(*flagStatePath, s.Units[Unit1].RunCs, s.Units[Unit2].RunCs); err != nil {
			log.Printf("persistence save failed: %v", err)
		}
	}

	s.TickCount++

	if terminateFlag.Load() {
		log.Printf("terminate signal received, shutting down")
		shutdown(s, exitOK, exitShutdownGPIOErr)
		return false
	}

	return true
}

// applyReload re-reads the configuration file and applies the subset of
// keys that are safe to change without restarting: mode, enable flags,
// correction offsets, and the diagnostics listen address. GPIO line
// assignments and output polarity are read once at startup only; changing
// which relay a live compressor is wired to while it may be running is not
// something this daemon will do from a signal handler.
func applyReload(s *State) {
	cfg, err := LoadConfig(*flagConfigPath)
	if err != nil {
		log.Printf("reload: %v", err)
		return
	}
	s.Cfg.Mode = cfg.Mode
	s.Cfg.UseAC1 = cfg.UseAC1
	s.Cfg.UseAC2 = cfg.UseAC2
	s.Cfg.WiCorr = cfg.WiCorr
	s.Cfg.WoCorr = cfg.WoCorr
	s.Cfg.TEnvCorr = cfg.TEnvCorr
	s.Cfg.ModbusListen = cfg.ModbusListen
	for i := SensorIndex(0); i < numSensors; i++ {
		if cfg.SensorPath[i] != "" {
			s.Sensors[i].Path = cfg.SensorPath[i]
		}
	}
	s.Units[Unit1].Enabled = cfg.UseAC1
	s.Units[Unit2].Enabled = cfg.UseAC2
	log.Printf("config reloaded")
}

// shutdown disables GPIO outputs and persists the ledger before exiting.
// Every fatal path funnels through here, one call site per exit code.
func shutdown(s *State, code, gpioErrCode int) {
	if err := SaveLedger(*flagStatePath, s.Units[Unit1].RunCs, s.Units[Unit2].RunCs); err != nil {
		log.Printf("shutdown: persistence save failed: %v", err)
	}
	if s.gpio != nil {
		if err := s.gpio.Halt(); err != nil {
			log.Printf("ALARM: shutdown: gpio disable failed: %v", err)
			os.Exit(gpioErrCode)
		}
	}
	os.Exit(code)
}

func defaultSensorPathIfEmpty(p string, i SensorIndex) string {
	if p != "" {
		return p
	}
	return "/sys/bus/w1/devices/" + i.String() + "/w1_slave"
}
