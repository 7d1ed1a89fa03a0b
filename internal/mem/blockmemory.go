// Package mem provides concrete devices satisfying cpu.MemoryInterface:
// a paged block memory (RAM/ROM) and a bus interconnect that dispatches
// across a fixed set of them.
package mem

import (
	"math/rand"

	"github.com/lunixbochs/rv32im-emu/internal/cpu"
)

// FillPolicy selects how a page is initialized the first time it's
// touched (§6 "Block memory").
type FillPolicy int

const (
	FillNone FillPolicy = iota
	FillZero
	FillOne
	FillRandom
	FillCdcdcdcd
)

// pageWords is the page granularity in 32-bit words: 64 KiB pages.
const pageWords = 64 * 1024 / 4

type page [pageWords]uint32

// BlockMemory is a flat, lazily-paged RAM/ROM device. Pages are
// allocated (and filled per policy) the first time they're touched,
// mirroring original_source's Block_memory::touch_page rather than
// eagerly allocating the whole backing store -- the teacher's own
// models/cpu/page.go uses the same allocate-on-first-touch discipline
// for its page table.
type BlockMemory struct {
	sizeBytes  uint64
	fillPolicy FillPolicy
	writeLock  bool
	pages      []*page
}

// NewBlockMemory constructs a device of sizeBytes total, rounded up
// internally to a whole number of 64 KiB pages.
func NewBlockMemory(sizeBytes uint64, policy FillPolicy) *BlockMemory {
	pageCount := (sizeBytes + pageWords*4 - 1) / (pageWords * 4)
	return &BlockMemory{
		sizeBytes:  sizeBytes,
		fillPolicy: policy,
		pages:      make([]*page, pageCount),
	}
}

func (m *BlockMemory) fillNewPage(p *page) {
	switch m.fillPolicy {
	case FillNone:
	case FillZero:
		// zero value already
	case FillOne:
		for i := range p {
			p[i] = 0xFFFFFFFF
		}
	case FillRandom:
		for i := range p {
			p[i] = rand.Uint32()
		}
	case FillCdcdcdcd:
		for i := range p {
			p[i] = 0xCDCDCDCD
		}
	}
}

func (m *BlockMemory) touchPage(idx uint64) *page {
	if idx >= uint64(len(m.pages)) {
		return nil
	}
	if m.pages[idx] == nil {
		p := &page{}
		m.fillNewPage(p)
		m.pages[idx] = p
	}
	return m.pages[idx]
}

// FillData copies data into the device starting at address 0, touching
// pages as needed. Reports false if data is larger than the device.
func (m *BlockMemory) FillData(data []byte) bool {
	if uint64(len(data)) > m.sizeBytes {
		return false
	}
	for off := 0; off < len(data); off += pageWords * 4 {
		end := off + pageWords*4
		if end > len(data) {
			end = len(data)
		}
		p := m.touchPage(uint64(off) / (pageWords * 4))
		buf := make([]byte, pageWords*4)
		copy(buf, data[off:end])
		for w := 0; w < pageWords; w++ {
			p[w] = uint32(buf[w*4]) | uint32(buf[w*4+1])<<8 | uint32(buf[w*4+2])<<16 | uint32(buf[w*4+3])<<24
		}
	}
	return true
}

// Lock makes the device read-only; Unlock reverses it.
func (m *BlockMemory) Lock()   { m.writeLock = true }
func (m *BlockMemory) Unlock() { m.writeLock = false }

// Size implements cpu.MemoryInterface.
func (m *BlockMemory) Size() uint64 { return m.sizeBytes }

// Read implements cpu.MemoryInterface.
func (m *BlockMemory) Read(addr uint32) (uint32, cpu.MemErr) {
	address := uint64(addr)
	if address >= m.sizeBytes {
		return 0, cpu.MemErrOutOfRange
	}
	if address&0x3 != 0 {
		return 0, cpu.MemErrUnaligned
	}
	pageIdx := address / (pageWords * 4)
	wordIdx := (address % (pageWords * 4)) / 4
	p := m.touchPage(pageIdx)
	return p[wordIdx], cpu.MemErrNone
}

// ReadPage implements cpu.MemoryInterface: reads a full 4 KiB, 1024-word
// aligned window starting at address, for the instruction fetch cache.
func (m *BlockMemory) ReadPage(address uint32, out []uint32) cpu.MemErr {
	addr64 := uint64(address)
	if addr64&0xFFF != 0 {
		return cpu.MemErrUnaligned
	}
	if addr64+uint64(len(out))*4 > m.sizeBytes {
		return cpu.MemErrOutOfRange
	}

	pageIdx := addr64 / (pageWords * 4)
	wordOff := (addr64 % (pageWords * 4)) / 4
	p := m.touchPage(pageIdx)
	copy(out, p[wordOff:])
	return cpu.MemErrNone
}

// Write implements cpu.MemoryInterface: mask4 selects which of the four
// byte lanes of value are written.
func (m *BlockMemory) Write(addr uint32, value uint32, mask4 uint8) cpu.MemErr {
	address := uint64(addr)
	if address >= m.sizeBytes {
		return cpu.MemErrOutOfRange
	}
	if m.writeLock {
		return cpu.MemErrAccessFault
	}
	if mask4 == 0 {
		return cpu.MemErrNone
	}
	if address&0x3 != 0 {
		return cpu.MemErrUnaligned
	}

	if m.sizeBytes < 4 {
		if m.sizeBytes < 4 && mask4&0b1000 != 0 {
			return cpu.MemErrOutOfRange
		}
		if m.sizeBytes < 3 && mask4&0b0100 != 0 {
			return cpu.MemErrOutOfRange
		}
		if m.sizeBytes < 2 && mask4&0b0010 != 0 {
			return cpu.MemErrOutOfRange
		}
		if m.sizeBytes < 1 && mask4&0b0001 != 0 {
			return cpu.MemErrOutOfRange
		}
	}

	pageIdx := address / (pageWords * 4)
	wordIdx := (address % (pageWords * 4)) / 4
	p := m.touchPage(pageIdx)

	word := p[wordIdx]
	var bytes [4]byte
	bytes[0] = byte(word)
	bytes[1] = byte(word >> 8)
	bytes[2] = byte(word >> 16)
	bytes[3] = byte(word >> 24)

	if mask4&0b0001 != 0 {
		bytes[0] = byte(value)
	}
	if mask4&0b0010 != 0 {
		bytes[1] = byte(value >> 8)
	}
	if mask4&0b0100 != 0 {
		bytes[2] = byte(value >> 16)
	}
	if mask4&0b1000 != 0 {
		bytes[3] = byte(value >> 24)
	}

	p[wordIdx] = uint32(bytes[0]) | uint32(bytes[1])<<8 | uint32(bytes[2])<<16 | uint32(bytes[3])<<24
	return cpu.MemErrNone
}

// UsedSpace reports the upper-bound of live pages, in bytes.
func (m *BlockMemory) UsedSpace() uint64 {
	var n uint64
	for _, p := range m.pages {
		if p != nil {
			n += pageWords * 4
		}
	}
	return n
}

// ResetContent discards every allocated page, keeping the fill policy.
func (m *BlockMemory) ResetContent() {
	for i := range m.pages {
		m.pages[i] = nil
	}
}

// PageBytes is the raw byte size of one page, exposed for callers that
// snapshot page contents (internal/savestate).
const PageBytes = pageWords * 4

// EachAllocatedPage calls fn with the index and little-endian byte
// contents of every page that has been touched, skipping pages that are
// still nil. Used to snapshot only the live subset of a large sparse
// address space.
func (m *BlockMemory) EachAllocatedPage(fn func(index uint64, data []byte)) {
	buf := make([]byte, PageBytes)
	for i, p := range m.pages {
		if p == nil {
			continue
		}
		for w, v := range p {
			buf[w*4] = byte(v)
			buf[w*4+1] = byte(v >> 8)
			buf[w*4+2] = byte(v >> 16)
			buf[w*4+3] = byte(v >> 24)
		}
		fn(uint64(i), buf)
	}
}

// LoadPage installs raw little-endian byte contents at page index,
// allocating the page if it isn't already resident. Reports false if
// index is out of range or data is the wrong length.
func (m *BlockMemory) LoadPage(index uint64, data []byte) bool {
	if index >= uint64(len(m.pages)) || len(data) != PageBytes {
		return false
	}
	p := &page{}
	for w := range p {
		p[w] = uint32(data[w*4]) | uint32(data[w*4+1])<<8 | uint32(data[w*4+2])<<16 | uint32(data[w*4+3])<<24
	}
	m.pages[index] = p
	return true
}

// PageCount reports the total number of pages this memory is divided
// into, including unallocated ones.
func (m *BlockMemory) PageCount() uint64 { return uint64(len(m.pages)) }
