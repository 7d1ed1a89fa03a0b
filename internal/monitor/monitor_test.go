package monitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunixbochs/rv32im-emu/internal/mem"
	"github.com/lunixbochs/rv32im-emu/internal/platform"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	plat, err := platform.New(make([]byte, 16), mem.FillZero)
	if err != nil {
		t.Fatalf("platform.New failed: %v", err)
	}
	var out, errOut bytes.Buffer
	return &Console{plat: plat, out: &out, errOut: &errOut}, &out, &errOut
}

func TestDispatchRegsPrintsPC(t *testing.T) {
	c, out, _ := newTestConsole(t)
	c.dispatch("regs")
	if !strings.Contains(out.String(), "pc       = 0x00100000") {
		t.Fatalf("regs output missing pc line: %q", out.String())
	}
}

func TestDispatchMemReadsWord(t *testing.T) {
	c, out, _ := newTestConsole(t)
	c.plat.Bus.Write(0x80000000, 0xdeadbeef, 0xf)
	c.dispatch("mem 0x80000000")
	if !strings.Contains(out.String(), "0xdeadbeef") {
		t.Fatalf("mem output missing value: %q", out.String())
	}
}

func TestDispatchMemMissingAddressErrors(t *testing.T) {
	c, _, errOut := newTestConsole(t)
	c.dispatch("mem")
	if !strings.Contains(errOut.String(), "usage") {
		t.Fatalf("expected a usage error, got %q", errOut.String())
	}
}

func TestDispatchStepAdvancesPC(t *testing.T) {
	// addi x0, x0, 0 (a no-op) so the step commits instead of trapping.
	nop := []byte{0x13, 0x00, 0x00, 0x00}
	plat, err := platform.New(nop, mem.FillZero)
	if err != nil {
		t.Fatalf("platform.New failed: %v", err)
	}
	var out, errOut bytes.Buffer
	c := &Console{plat: plat, out: &out, errOut: &errOut}

	startPC := c.plat.CPU.PC
	c.dispatch("step")
	if c.plat.CPU.PC != startPC+4 {
		t.Fatalf("PC = %#x, want %#x", c.plat.CPU.PC, startPC+4)
	}
	if !strings.Contains(out.String(), "pc = ") {
		t.Fatalf("step output missing pc: %q", out.String())
	}
}

func TestDispatchResetClearsRAM(t *testing.T) {
	c, out, _ := newTestConsole(t)
	c.plat.Bus.Write(0x80000000, 0xffffffff, 0xf)
	c.dispatch("reset")
	if !strings.Contains(out.String(), "RAM reset") {
		t.Fatalf("expected reset confirmation, got %q", out.String())
	}
	v, memErr := c.plat.Bus.Read(0x80000000)
	if memErr != 0 || v != 0 {
		t.Fatalf("expected RAM cleared, got %#x, err=%v", v, memErr)
	}
}

func TestDispatchUnknownCommandErrors(t *testing.T) {
	c, _, errOut := newTestConsole(t)
	c.dispatch("bogus")
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("expected unknown-command error, got %q", errOut.String())
	}
}
