package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// Input register layout for the read-only diagnostics server. Addresses
// are deliberately sparse so each group can grow without renumbering.
const (
	mbAddrSensorsBase = 0 // 11 registers, 0.1 °C signed fixed point
	mbAddrUnit1Mode   = 20
	mbAddrUnit1Act    = 21 // bit0=comp, bit1=fan, bit2=valve
	mbAddrUnit1RunCs  = 22 // 2 registers, hi/lo
	mbAddrUnit2Mode   = 24
	mbAddrUnit2Act    = 25
	mbAddrUnit2RunCs  = 26
	mbAddrCommand     = 30
	mbAddrResponse    = 31
)

// diagServer exposes the current tick's snapshot over Modbus TCP as
// read-only input registers for SCADA/BMS polling. It never accepts coil
// or holding-register writes; this is telemetry only, the controller
// cannot be configured over the network.
type diagServer struct {
	mu   sync.RWMutex
	regs map[uint16]uint16

	srv *modbus.ModbusServer
}

func newDiagServer(listen string) (*diagServer, error) {
	d := &diagServer{regs: map[uint16]uint16{}}

	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + listen,
		Timeout:    5 * time.Second,
		MaxClients: 4,
	}, d)
	if err != nil {
		return nil, fmt.Errorf("create modbus server: %w", err)
	}
	d.srv = srv
	return d, nil
}

func (d *diagServer) start() error {
	return d.srv.Start()
}

func (d *diagServer) stop() error {
	return d.srv.Stop()
}

// update republishes the current State into the register map; called once
// per tick alongside the other reporter sinks.
func (d *diagServer) update(s *State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := SensorIndex(0); i < numSensors; i++ {
		d.regs[mbAddrSensorsBase+uint16(i)] = uint16(int16(s.Sensors[i].Current * 10))
	}

	d.regs[mbAddrUnit1Mode] = uint16(s.Units[Unit1].Mode)
	d.regs[mbAddrUnit1Act] = actuatorBits(&s.Units[Unit1])
	hi, lo := splitU32(uint32(s.Units[Unit1].RunCs))
	d.regs[mbAddrUnit1RunCs] = hi
	d.regs[mbAddrUnit1RunCs+1] = lo

	d.regs[mbAddrUnit2Mode] = uint16(s.Units[Unit2].Mode)
	d.regs[mbAddrUnit2Act] = actuatorBits(&s.Units[Unit2])
	hi, lo = splitU32(uint32(s.Units[Unit2].RunCs))
	d.regs[mbAddrUnit2RunCs] = hi
	d.regs[mbAddrUnit2RunCs+1] = lo

	d.regs[mbAddrCommand] = uint16(s.LastCommand)
	d.regs[mbAddrResponse] = uint16(s.LastResponse)
}

func actuatorBits(u *Unit) uint16 {
	var b uint16
	if u.Actuator[ActCompressor] {
		b |= 1
	}
	if u.Actuator[ActFan] {
		b |= 2
	}
	if u.Actuator[ActValve] {
		b |= 4
	}
	return b
}

func splitU32(v uint32) (hi, lo uint16) {
	return uint16(v >> 16), uint16(v & 0xffff)
}

// HandleInputRegisters implements modbus.RequestHandler.
func (d *diagServer) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]uint16, req.Quantity)
	for i := range out {
		out[i] = d.regs[req.Addr+uint16(i)]
	}
	return out, nil
}

// HandleHoldingRegisters implements modbus.RequestHandler; this server is
// read-only, so writes are rejected and reads return zero.
func (d *diagServer) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		return nil, modbus.ErrIllegalFunction
	}
	return make([]uint16, req.Quantity), nil
}

// HandleCoils implements modbus.RequestHandler; no coils are exposed.
func (d *diagServer) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if req.IsWrite {
		return nil, modbus.ErrIllegalFunction
	}
	return make([]bool, req.Quantity), nil
}

// HandleDiscreteInputs implements modbus.RequestHandler; no discrete
// inputs are exposed.
func (d *diagServer) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return make([]bool, req.Quantity), nil
}

func logDiagServerStart(listen string) {
	log.Printf("modbus diagnostics server listening on %s", listen)
}
