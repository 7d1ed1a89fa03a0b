package device

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunixbochs/rv32im-emu/internal/cpu"
)

func TestUartTransmit(t *testing.T) {
	u := NewUart()
	var out bytes.Buffer
	u.out = &out

	if err := u.Write(0x0, uint32('A'), 0b0001); err != cpu.MemErrNone {
		t.Fatalf("write failed: %v", err)
	}
	if out.String() != "A" {
		t.Fatalf("got %q, want %q", out.String(), "A")
	}
}

func TestUartReceive(t *testing.T) {
	u := NewUart()
	u.SetInputStream(strings.NewReader("Z"))

	v, err := u.Read(0x4) // RX is word index 1
	if err != cpu.MemErrNone {
		t.Fatalf("read failed: %v", err)
	}
	if v != uint32('Z') {
		t.Fatalf("got %#x, want 'Z'", v)
	}
}

func TestUartConfigRegRoundTrip(t *testing.T) {
	u := NewUart()
	u.Write(0x8, 0x000000FF, 0b0001) // CFG is word index 2

	v, _ := u.Read(0x8)
	if v != 0xFF {
		t.Fatalf("got %#x, want 0xff", v)
	}
}

func TestUartOutOfRangeIsAccessFault(t *testing.T) {
	u := NewUart()
	if _, err := u.Read(0xFC); err != cpu.MemErrAccessFault {
		t.Fatalf("expected access fault, got %v", err)
	}
}

func TestUartUnaligned(t *testing.T) {
	u := NewUart()
	if _, err := u.Read(1); err != cpu.MemErrUnaligned {
		t.Fatalf("expected unaligned, got %v", err)
	}
}

func TestUartStatusHighBitAlwaysSet(t *testing.T) {
	u := NewUart()
	u.SetInputStream(strings.NewReader(""))
	v, err := u.Read(0xC) // STA is word index 3
	if err != cpu.MemErrNone {
		t.Fatalf("read failed: %v", err)
	}
	if v&0b10 == 0 {
		t.Fatalf("got %#x, want bit 1 always set", v)
	}
}

func TestUartStatusRXReadyBitClearOnceInputExhausted(t *testing.T) {
	u := NewUart()
	u.SetInputStream(strings.NewReader(""))
	for i := 0; i < 200; i++ {
		v, err := u.Read(0xC) // STA is word index 3
		if err != cpu.MemErrNone {
			t.Fatalf("read failed: %v", err)
		}
		if v&0b01 != 0 {
			t.Fatalf("bit 0 set on read %d with input at EOF, got %#x", i, v)
		}
	}
}
