package mem

import (
	"testing"

	"github.com/lunixbochs/rv32im-emu/internal/cpu"
)

func TestInterconnectDispatch(t *testing.T) {
	rom := NewBlockMemory(4096, FillZero)
	ram := NewBlockMemory(4096, FillZero)

	bus := NewInterconnect()
	bus.Map(0x1000, rom)
	bus.Map(0x2000, ram)

	if err := bus.Write(0x2000, 0xCAFEBABE, 0b1111); err != cpu.MemErrNone {
		t.Fatalf("write through bus failed: %v", err)
	}
	v, err := ram.Read(0)
	if err != cpu.MemErrNone || v != 0xCAFEBABE {
		t.Fatalf("write did not land in ram at offset 0: %#x, %v", v, err)
	}

	v, err = bus.Read(0x2000)
	if err != cpu.MemErrNone || v != 0xCAFEBABE {
		t.Fatalf("bus read mismatch: %#x, %v", v, err)
	}
}

func TestInterconnectOutOfRange(t *testing.T) {
	bus := NewInterconnect()
	bus.Map(0x1000, NewBlockMemory(4096, FillZero))

	if _, err := bus.Read(0x5000); err != cpu.MemErrOutOfRange {
		t.Fatalf("expected out-of-range, got %v", err)
	}
}
