// Package platform wires the fixed memory map -- ROM, RAM, UART, and
// the clock peripheral -- into an interconnect and attaches a CPU to
// it, mirroring original_source's main/src/platform.cpp.
package platform

import (
	"fmt"

	"github.com/lunixbochs/rv32im-emu/internal/cpu"
	"github.com/lunixbochs/rv32im-emu/internal/device"
	"github.com/lunixbochs/rv32im-emu/internal/mem"
)

const (
	romBase   = 0x0010_0000
	ramBase   = 0x8000_0000
	uartBase  = 0x0001_0000
	clockBase = 0x0001_1000

	romSize = 128 * 1024
	ramSize = 2 * 1024 * 1024 * 1024
)

// Platform bundles a hart with the memory map it executes against.
type Platform struct {
	CPU   *cpu.CPU
	Bus   *mem.Interconnect
	Rom   *mem.BlockMemory
	Ram   *mem.BlockMemory
	Uart  *device.Uart
	Clock *device.Clock
}

// New builds a platform, loading romInit into ROM (which is then
// write-locked) and giving RAM the given fill policy.
func New(romInit []byte, ramFill mem.FillPolicy) (*Platform, error) {
	rom := mem.NewBlockMemory(romSize, mem.FillZero)
	if !rom.FillData(romInit) {
		return nil, fmt.Errorf("ROM init data size (%d bytes) exceeds ROM size (%d bytes)", len(romInit), rom.Size())
	}
	rom.Lock()

	ram := mem.NewBlockMemory(ramSize, ramFill)
	uart := device.NewUart()
	clk := &device.Clock{}

	bus := mem.NewInterconnect()
	bus.Map(ramBase, ram)
	bus.Map(romBase, rom)
	bus.Map(uartBase, uart)
	bus.Map(clockBase, clk)

	return &Platform{
		CPU:   cpu.NewCPU(bus, romBase),
		Bus:   bus,
		Rom:   rom,
		Ram:   ram,
		Uart:  uart,
		Clock: clk,
	}, nil
}

// Step runs one CPU cycle followed by one clock tick, matching the
// original's fixed one-clock-tick-per-instruction cadence.
func (p *Platform) Step() cpu.StepRecord {
	result := p.CPU.Step()
	p.Clock.Tick(p.CPU.CSRs)
	return result
}
