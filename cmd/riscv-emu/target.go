package main

import (
	"github.com/lunixbochs/rv32im-emu/internal/cpu"
	"github.com/lunixbochs/rv32im-emu/internal/gdbstub"
	"github.com/lunixbochs/rv32im-emu/internal/platform"
)

// hartTarget adapts a *platform.Platform to gdbstub.Target, translating
// the GDB register-number space (§6 "GDB register numbering": 0..31
// GPRs, 32 PC, >=128 CSR at regno-128) into the concrete CPU/CSR/bus
// calls that back it. Kept in cmd/riscv-emu rather than
// internal/platform so the platform package stays free of a gdbstub
// import; nothing about the adapter is platform-specific enough to be
// worth pulling the boundary the other way.
type hartTarget struct {
	plat *platform.Platform
}

func newHartTarget(plat *platform.Platform) *hartTarget {
	return &hartTarget{plat: plat}
}

const csrRegnoBase = 128

func (t *hartTarget) PC() uint32        { return t.plat.CPU.PC }
func (t *hartTarget) SetPC(addr uint32) { t.plat.CPU.PC = addr }

func (t *hartTarget) ReadRegister(regno uint32) (uint32, bool) {
	switch {
	case regno < 32:
		return t.plat.CPU.Regs.Read(uint(regno)), true
	case regno == 32:
		return t.plat.CPU.PC, true
	case regno >= csrRegnoBase:
		v, _, ok := t.plat.CPU.CSRs.Access(cpu.AccessInfo{
			Address: uint16(regno - csrRegnoBase),
			Read:    true,
		})
		return v, ok
	default:
		return 0, false
	}
}

func (t *hartTarget) WriteRegister(regno uint32, value uint32) {
	switch {
	case regno < 32:
		t.plat.CPU.Regs.Write(uint(regno), value)
	case regno == 32:
		t.plat.CPU.PC = value
	case regno >= csrRegnoBase:
		t.plat.CPU.CSRs.Access(cpu.AccessInfo{
			WriteMode:  cpu.WriteOverwrite,
			Address:    uint16(regno - csrRegnoBase),
			WriteValue: value,
		})
	}
}

func (t *hartTarget) ReadMemoryWord(addr uint32) (uint32, bool) {
	v, err := t.plat.Bus.Read(addr)
	return v, err == cpu.MemErrNone
}

func (t *hartTarget) WriteMemoryWord(addr uint32, value uint32, mask4 uint8) bool {
	return t.plat.Bus.Write(addr, value, mask4) == cpu.MemErrNone
}

func (t *hartTarget) ReadMemoryByte(addr uint32) (byte, bool) {
	word, err := t.plat.Bus.Read(addr &^ 3)
	if err != cpu.MemErrNone {
		return 0, false
	}
	shift := (addr & 3) * 8
	return byte(word >> shift), true
}

// memAccessSize maps a load/store funct to its width in bytes, for the
// StepInfo watchpoint-overlap check.
func memAccessSize(funct cpu.MemFunct) uint32 {
	switch funct {
	case cpu.MemFunctByte, cpu.MemFunctByteUnsigned:
		return 1
	case cpu.MemFunctHalfword, cpu.MemFunctHalfwordUnsigned:
		return 2
	case cpu.MemFunctWord:
		return 4
	default:
		return 0
	}
}

func (t *hartTarget) Step() gdbstub.StepInfo {
	record := t.plat.Step()
	info := gdbstub.StepInfo{Address: record.AluResult}
	switch record.MemoryOpcode {
	case cpu.MemOpLoad:
		info.IsLoad = true
		info.AccessSize = memAccessSize(record.MemoryFunct)
	case cpu.MemOpStore:
		info.IsStore = true
		info.AccessSize = memAccessSize(record.MemoryFunct)
	}
	return info
}

func (t *hartTarget) ResetRAM() {
	t.plat.Ram.ResetContent()
}
