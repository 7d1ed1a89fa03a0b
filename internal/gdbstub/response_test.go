package gdbstub

import "testing"

func TestResponseOK(t *testing.T) {
	if (OK{}).ToString() != "OK" {
		t.Fatal("expected OK")
	}
}

func TestSingleRegisterContentNotByteSwapped(t *testing.T) {
	got := SingleRegisterContent{Value: 0x12345678, HasValue: true}.ToString()
	if got != "12345678" {
		t.Fatalf("got %q, want unswapped 12345678", got)
	}
}

func TestSingleRegisterContentUnknown(t *testing.T) {
	if got := (SingleRegisterContent{}.ToString()); got != "xxxxxxxx" {
		t.Fatalf("got %q", got)
	}
}

func TestRegisterContentByteSwapped(t *testing.T) {
	r := RegisterContent{Values: []uint32{0x12345678}, HasValue: []bool{true}}
	got := r.ToString()
	if got != "78563412" {
		t.Fatalf("got %q, want byte-swapped 78563412 (little-endian byte order)", got)
	}
}

func TestRegisterContentUnknownSlot(t *testing.T) {
	r := RegisterContent{Values: []uint32{0, 1}, HasValue: []bool{false, true}}
	got := r.ToString()
	want := "xxxxxxxx" + "01000000"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRawByteStreamEmptyIsE00(t *testing.T) {
	if got := (RawByteStream{}.ToString()); got != "E00" {
		t.Fatalf("got %q", got)
	}
}

func TestRawByteStreamHexEncodes(t *testing.T) {
	got := RawByteStream{Data: []byte{0xDE, 0xAD}}.ToString()
	if got != "dead" {
		t.Fatalf("got %q", got)
	}
}

func TestErrorCodeFormat(t *testing.T) {
	if got := (ErrorCode{Code: 5}.ToString()); got != "E05" {
		t.Fatalf("got %q", got)
	}
}

func TestErrorMessageFormat(t *testing.T) {
	if got := (ErrorMessage{Message: "bad"}.ToString()); got != "E.bad" {
		t.Fatalf("got %q", got)
	}
}

func TestStopReasonSignalOnly(t *testing.T) {
	got := StopReasonSignal(SIGINT).ToString()
	if got != "T02" {
		t.Fatalf("got %q", got)
	}
}

func TestStopReasonBreakpointHardware(t *testing.T) {
	got := StopReasonBreakpoint(BreakpointHit{IsHardware: true}).ToString()
	if got != "T05hwbreak:;" {
		t.Fatalf("got %q", got)
	}
}

func TestStopReasonWatchpointReadWrite(t *testing.T) {
	got := StopReasonWatchpoint(WatchpointHit{Address: 0x1000, IsRead: true, IsWrite: true}).ToString()
	if got != "T05awatch:1000;" {
		t.Fatalf("got %q", got)
	}
}

func TestQxferResponseCompletedVsMore(t *testing.T) {
	if got := (QxferResponse{Completed: true, Data: []byte("ab")}.ToString()); got != "lab" {
		t.Fatalf("got %q", got)
	}
	if got := (QxferResponse{Completed: false, Data: []byte("ab")}.ToString()); got != "mab" {
		t.Fatalf("got %q", got)
	}
}

func TestQsupportedResponseNonEmpty(t *testing.T) {
	if (QsupportedResponse{}).ToString() == "" {
		t.Fatal("expected a non-empty feature list")
	}
}
