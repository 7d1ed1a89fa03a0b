package cpu

// FetchCacheSize is the number of direct-mapped cache lines (§4.5).
const FetchCacheSize = 1024

type fetchCacheEntry struct {
	valid   bool
	address uint32
	data    [1024]uint32
}

// FetchCache is a direct-mapped instruction fetch cache sitting in front
// of a MemoryInterface (§4.5 "Instruction fetch cache"). The index is
// `(pc>>12) % 1024`, and the tag is the full page base `pc & 0xFFFFF000`;
// since the index folds only 10 bits of the page number while the tag
// carries all of them, two pages whose page numbers share the low 10
// bits alias to the same line and evict each other on every fetch. This
// is preserved exactly rather than "fixed" -- see DESIGN.md.
type FetchCache struct {
	lines [FetchCacheSize]fetchCacheEntry
}

// Fetch returns the 32-bit instruction word at pc, filling the owning
// cache line on a miss (§4.5).
func (c *FetchCache) Fetch(mem MemoryInterface, pc uint32) (uint32, *Trap) {
	if pc&0x3 != 0 {
		return 0, trapPtr(TrapInstAddressMisaligned)
	}

	idx := (pc >> 12) % FetchCacheSize
	line := &c.lines[idx]
	pageBase := pc & 0xFFFFF000

	if !line.valid || line.address != pageBase {
		err := mem.ReadPage(pageBase, line.data[:])
		if err != MemErrNone {
			line.valid = false
			switch err {
			case MemErrOutOfRange, MemErrAccessFault:
				return 0, trapPtr(TrapInstAccessFault)
			case MemErrDeviceError:
				return 0, trapPtr(TrapIllegalInstruction)
			case MemErrUnaligned:
				return 0, trapPtr(TrapInstAddressMisaligned)
			default:
				return 0, trapPtr(TrapInstAccessFault)
			}
		}
		line.valid = true
		line.address = pageBase
	}

	return line.data[(pc&0xFFF)>>2], nil
}

// Fencei invalidates every cache line (§4.5, the `fence.i` instruction).
func (c *FetchCache) Fencei() {
	for i := range c.lines {
		c.lines[i].valid = false
	}
}
