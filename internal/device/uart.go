// Package device implements the memory-mapped peripherals reachable
// through the interconnect: a UART transmit/receive port and a 64-bit
// wall-clock timer feeding the machine timer interrupt.
package device

import (
	"bufio"
	"io"
	"math/rand"
	"os"

	"github.com/lunixbochs/rv32im-emu/internal/cpu"
	"github.com/lunixbochs/rv32im-emu/internal/word"
)

// periphSize is the fixed 256-byte register window every peripheral
// occupies on the bus (§6 "Peripheral base class").
const periphSize = 256

// Uart is a minimal transmit/receive/config/status serial port
// (§6 "UART"). Register offsets, word-indexed: 0 TX, 1 RX, 2 CFG, 3 STA.
type Uart struct {
	configReg uint32
	input     *bufio.Reader
	out       io.Writer
}

// NewUart constructs a UART reading from stdin and writing to stderr,
// matching the default std::cin/std::cerr wiring.
func NewUart() *Uart {
	return &Uart{input: bufio.NewReader(os.Stdin), out: os.Stderr}
}

// SetInputStream redirects RX reads to r, for tests and scripted input.
func (u *Uart) SetInputStream(r io.Reader) { u.input = bufio.NewReader(r) }

// atEOF reports whether the input stream has no more bytes to give,
// via a non-consuming one-byte peek so it doesn't disturb a
// subsequent RX read.
func (u *Uart) atEOF() bool {
	_, err := u.input.Peek(1)
	return err != nil
}

func (u *Uart) Size() uint64 { return periphSize }

func (u *Uart) Read(addr uint32) (uint32, cpu.MemErr) {
	if addr&0x3 != 0 {
		return 0, cpu.MemErrUnaligned
	}
	switch addr / 4 {
	case 1: // RX
		b, err := u.input.ReadByte()
		if err != nil {
			return 0xFFFFFFFF, cpu.MemErrNone // EOF reads back as -1, matching istream::get()
		}
		return uint32(b), cpu.MemErrNone
	case 2: // CFG
		return u.configReg, cpu.MemErrNone
	case 3: // STA
		ready := !u.atEOF() && rand.Intn(2) == 1
		status := uint32(0b10)
		if ready {
			status |= 0b01
		}
		return status, cpu.MemErrNone
	default:
		return 0, cpu.MemErrAccessFault
	}
}

func (u *Uart) Write(addr uint32, data uint32, mask4 uint8) cpu.MemErr {
	if addr&0x3 != 0 {
		return cpu.MemErrUnaligned
	}
	switch addr / 4 {
	case 0: // TX
		if mask4&0x1 != 0 {
			u.out.Write([]byte{byte(data)})
		}
	case 2: // CFG
		u.configReg = word.ChooseBits(word.ExpandByteMask(uint32(mask4)), data, u.configReg)
	default:
		return cpu.MemErrAccessFault
	}
	return cpu.MemErrNone
}

func (u *Uart) ReadPage(uint32, []uint32) cpu.MemErr { return cpu.MemErrNotSupported }
