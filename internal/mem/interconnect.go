package mem

import "github.com/lunixbochs/rv32im-emu/internal/cpu"

// region is one fixed-base entry in the interconnect's address map.
type region struct {
	base   uint32
	device cpu.MemoryInterface
}

// Interconnect dispatches a bus access across a fixed set of memory-
// mapped devices by base address (§6 "Interconnect"), mirroring
// original_source's Interconnect::get_memory and the four-region map
// platform.cpp wires up (ROM, RAM, UART, Clock).
type Interconnect struct {
	regions []region
}

// NewInterconnect builds an empty bus; Map adds devices to it.
func NewInterconnect() *Interconnect {
	return &Interconnect{}
}

// Map installs device at a fixed base address. Later maps do not
// override earlier ones for overlapping ranges; the first matching
// region wins, matching the original's linear if-chain.
func (ic *Interconnect) Map(base uint32, device cpu.MemoryInterface) {
	ic.regions = append(ic.regions, region{base: base, device: device})
}

func (ic *Interconnect) find(address uint64) (cpu.MemoryInterface, uint32, bool) {
	for _, r := range ic.regions {
		base := uint64(r.base)
		if address >= base && address < base+r.device.Size() {
			return r.device, uint32(address - base), true
		}
	}
	return nil, 0, false
}

// Size implements cpu.MemoryInterface; the interconnect itself has no
// bound, matching the original's std::numeric_limits<u64>::max().
func (ic *Interconnect) Size() uint64 { return 0xFFFFFFFFFFFFFFFF }

func (ic *Interconnect) Read(addr uint32) (uint32, cpu.MemErr) {
	dev, offset, ok := ic.find(uint64(addr))
	if !ok {
		return 0, cpu.MemErrOutOfRange
	}
	return dev.Read(offset)
}

func (ic *Interconnect) ReadPage(addr uint32, out []uint32) cpu.MemErr {
	dev, offset, ok := ic.find(uint64(addr))
	if !ok {
		return cpu.MemErrOutOfRange
	}
	return dev.ReadPage(offset, out)
}

func (ic *Interconnect) Write(addr uint32, data uint32, mask4 uint8) cpu.MemErr {
	dev, offset, ok := ic.find(uint64(addr))
	if !ok {
		return cpu.MemErrOutOfRange
	}
	return dev.Write(offset, data, mask4)
}
