// Package savestate snapshots and restores a running platform's
// architectural state to a binary file: register file, CSR block,
// clock counters, and the sparse set of touched RAM pages. Grounded on
// the teacher's models.Save (go/models/savestate.go) and its
// struc-tagged trace file header (go/models/trace/tracefile.go) --
// restyled as a fixed struc header followed by a page dump instead of
// a gzip-compressed body, since this format has no reason to be
// compressed (RAM pages here are already sparse, and there is no
// unicorn memory-mapping list to serialize).
package savestate

import (
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/rv32im-emu/internal/mem"
	"github.com/lunixbochs/rv32im-emu/internal/platform"
)

const (
	magic         = "RV32SAVE"
	formatVersion = 1
	numGPRs       = 32
)

// header is the fixed-size prefix of a save-state file: everything
// except the variable-length page dump that follows it.
type header struct {
	Magic   string `struc:"[8]byte"`
	Version uint32

	PC   uint32
	GPRs [numGPRs]uint32

	Misa, Mscratch                       uint32
	MstatusLow, MstatusHigh              uint32
	Mepc, Mcause, Mtval, Mip, Mie, Mtvec uint32
	Mcycle, Minstret                     uint64

	ClockCounter, ClockCompare uint64

	PageCount uint64
}

var order = binary.LittleEndian

// Save writes plat's full architectural state to w.
func Save(w io.Writer, plat *platform.Platform) error {
	h := header{
		Magic:      magic,
		Version:    formatVersion,
		PC:         plat.CPU.PC,
		Misa:       plat.CPU.CSRs.Misa,
		Mscratch:   plat.CPU.CSRs.Mscratch,
		MstatusLow: plat.CPU.CSRs.MstatusLow, MstatusHigh: plat.CPU.CSRs.MstatusHigh,
		Mepc: plat.CPU.CSRs.Mepc, Mcause: plat.CPU.CSRs.Mcause,
		Mtval: plat.CPU.CSRs.Mtval, Mip: plat.CPU.CSRs.Mip,
		Mie: plat.CPU.CSRs.Mie, Mtvec: plat.CPU.CSRs.Mtvec,
		Mcycle: plat.CPU.CSRs.Mcycle, Minstret: plat.CPU.CSRs.Minstret,
	}
	for i := 0; i < numGPRs; i++ {
		h.GPRs[i] = plat.CPU.Regs.Read(uint(i))
	}
	h.ClockCounter, h.ClockCompare = plat.Clock.CounterCompare()

	var pageIndexes []uint64
	var pageData [][]byte
	plat.Ram.EachAllocatedPage(func(index uint64, data []byte) {
		pageIndexes = append(pageIndexes, index)
		snapshot := make([]byte, len(data))
		copy(snapshot, data)
		pageData = append(pageData, snapshot)
	})
	h.PageCount = uint64(len(pageIndexes))

	if err := struc.PackWithOrder(w, &h, order); err != nil {
		return errors.Wrap(err, "failed to pack savestate header")
	}
	for i, idx := range pageIndexes {
		if err := binary.Write(w, order, idx); err != nil {
			return errors.Wrap(err, "failed to write page index")
		}
		if _, err := w.Write(pageData[i]); err != nil {
			return errors.Wrap(err, "failed to write page data")
		}
	}
	return nil
}

// Restore reads a save-state produced by Save and applies it to plat.
// RAM is reset to its fill policy before any saved pages are loaded, so
// pages absent from the file read back as freshly-filled rather than
// carrying over whatever plat held before the restore.
func Restore(r io.Reader, plat *platform.Platform) error {
	var h header
	if err := struc.UnpackWithOrder(r, &h, order); err != nil {
		return errors.Wrap(err, "failed to unpack savestate header")
	}
	if h.Magic != magic {
		return errors.Errorf("bad savestate magic %q", h.Magic)
	}
	if h.Version != formatVersion {
		return errors.Errorf("unsupported savestate version %d", h.Version)
	}

	plat.CPU.PC = h.PC
	for i := 0; i < numGPRs; i++ {
		plat.CPU.Regs.Write(uint(i), h.GPRs[i])
	}
	csrs := plat.CPU.CSRs
	csrs.Misa, csrs.Mscratch = h.Misa, h.Mscratch
	csrs.MstatusLow, csrs.MstatusHigh = h.MstatusLow, h.MstatusHigh
	csrs.Mepc, csrs.Mcause, csrs.Mtval = h.Mepc, h.Mcause, h.Mtval
	csrs.Mip, csrs.Mie, csrs.Mtvec = h.Mip, h.Mie, h.Mtvec
	csrs.Mcycle, csrs.Minstret = h.Mcycle, h.Minstret
	plat.Clock.SetCounterCompare(h.ClockCounter, h.ClockCompare)

	plat.Ram.ResetContent()
	for i := uint64(0); i < h.PageCount; i++ {
		var index uint64
		if err := binary.Read(r, order, &index); err != nil {
			return errors.Wrap(err, "failed to read page index")
		}
		buf := make([]byte, mem.PageBytes)
		if _, err := io.ReadFull(r, buf); err != nil {
			return errors.Wrap(err, "failed to read page data")
		}
		if !plat.Ram.LoadPage(index, buf) {
			return errors.Errorf("savestate page index %d out of range", index)
		}
	}
	return nil
}
