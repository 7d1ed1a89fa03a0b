package device

import (
	"github.com/lunixbochs/rv32im-emu/internal/cpu"
	"github.com/lunixbochs/rv32im-emu/internal/word"
)

// clockReg is a 64-bit counter split into two 32-bit halves for access
// over a 32-bit bus.
type clockReg struct {
	low, high uint32
}

func (r clockReg) get64() uint64 { return uint64(r.high)<<32 | uint64(r.low) }

func (r *clockReg) set64(v uint64) {
	r.low = uint32(v)
	r.high = uint32(v >> 32)
}

// Clock is a 64-bit free-running counter compared against a 64-bit
// compare register, raising the machine timer interrupt bit in mip when
// the counter passes it (§6 "Clock"). Register offsets, word-indexed:
// 0 counter-low, 1 counter-high, 2 compare-low, 3 compare-high.
//
// Reading counter-high latches the low half into a staging register so
// a following counter-low read returns the value observed at the same
// instant as the high read, rather than a value the counter may have
// advanced past in between the two 32-bit reads.
type Clock struct {
	timer, comp clockReg

	counterTempLow    *uint32
	counterTempLowSet bool
	compTempLow       *uint32
	compTempLowSet    bool
}

func (c *Clock) Size() uint64 { return periphSize }

func (c *Clock) Read(addr uint32) (uint32, cpu.MemErr) {
	if addr&0x3 != 0 {
		return 0, cpu.MemErrUnaligned
	}
	switch addr / 4 {
	case 0:
		if c.counterTempLowSet {
			v := *c.counterTempLow
			c.counterTempLowSet = false
			return v, cpu.MemErrNone
		}
		return c.timer.low, cpu.MemErrNone
	case 1:
		low := c.timer.low
		c.counterTempLow = &low
		c.counterTempLowSet = true
		return c.timer.high, cpu.MemErrNone
	case 2:
		if c.compTempLowSet {
			v := *c.compTempLow
			c.compTempLowSet = false
			return v, cpu.MemErrNone
		}
		return c.comp.low, cpu.MemErrNone
	case 3:
		low := c.comp.low
		c.compTempLow = &low
		c.compTempLowSet = true
		return c.comp.high, cpu.MemErrNone
	default:
		return 0, cpu.MemErrAccessFault
	}
}

func (c *Clock) Write(addr uint32, data uint32, mask4 uint8) cpu.MemErr {
	if addr&0x3 != 0 {
		return cpu.MemErrUnaligned
	}
	expanded := word.ExpandByteMask(uint32(mask4))
	switch addr / 4 {
	case 0:
		c.timer.low = word.ChooseBits(expanded, data, c.timer.low)
		c.counterTempLowSet = false
	case 1:
		c.timer.high = word.ChooseBits(expanded, data, c.timer.high)
		c.counterTempLowSet = false
	case 2:
		c.comp.low = word.ChooseBits(expanded, data, c.comp.low)
		c.compTempLowSet = false
	case 3:
		c.comp.high = word.ChooseBits(expanded, data, c.comp.high)
		c.compTempLowSet = false
	default:
		return cpu.MemErrAccessFault
	}
	return cpu.MemErrNone
}

func (c *Clock) ReadPage(uint32, []uint32) cpu.MemErr { return cpu.MemErrNotSupported }

// CounterCompare reports the counter and compare registers as plain
// 64-bit values, for save-state snapshotting. The read-staging
// registers are deliberately not part of the snapshot: they hold at
// most one pending 32-bit half between two bus reads, not durable
// architectural state.
func (c *Clock) CounterCompare() (counter, compare uint64) {
	return c.timer.get64(), c.comp.get64()
}

// SetCounterCompare restores the counter and compare registers from a
// save-state, clearing any pending staged read.
func (c *Clock) SetCounterCompare(counter, compare uint64) {
	c.timer.set64(counter)
	c.comp.set64(compare)
	c.counterTempLowSet = false
	c.compTempLowSet = false
}

// Tick advances the counter by one and, once it passes the compare
// register, latches the machine timer interrupt bit into mip.
func (c *Clock) Tick(csrs *cpu.CSRs) {
	c.timer.set64(c.timer.get64() + 1)
	if c.timer.get64() > c.comp.get64() {
		csrs.Mip |= 1 << 7
	}
}
