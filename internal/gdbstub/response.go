package gdbstub

import (
	"fmt"
	"math/bits"
	"strings"
)

// Response renders a GDB response body (not yet escaped or
// run-length-encoded -- see Encode). Grounded on
// original_source/lib/include/gdb-stub/response.hpp's Response
// hierarchy, restyled as Go values with a single ToString method in
// place of virtual dispatch.
type Response interface {
	ToString() string
}

// OK is the bare `OK` response.
type OK struct{}

func (OK) ToString() string { return "OK" }

// SingleRegisterContent answers a `p` request. Deliberately NOT
// byte-swapped, unlike RegisterContent below -- the reference
// implementation formats this one directly with std::format, so a
// single-register read and a bulk register read report a given
// value's bytes in opposite orders. Preserved rather than fixed.
type SingleRegisterContent struct {
	Value    uint32
	HasValue bool
}

func (r SingleRegisterContent) ToString() string {
	if !r.HasValue {
		return "xxxxxxxx"
	}
	return fmt.Sprintf("%08x", r.Value)
}

// RegisterContent answers a `g` request: one 8-hex-digit group per
// register, byte-swapped so the digit pairs read out in target
// (little-endian) byte order.
type RegisterContent struct {
	Values   []uint32
	HasValue []bool
}

func (r RegisterContent) ToString() string {
	var b strings.Builder
	for i, v := range r.Values {
		if i < len(r.HasValue) && !r.HasValue[i] {
			b.WriteString("xxxxxxxx")
			continue
		}
		fmt.Fprintf(&b, "%08x", bits.ReverseBytes32(v))
	}
	return b.String()
}

// RawByteStream answers an `m` request with the raw bytes read, hex
// encoded. An empty read reports `E00`.
type RawByteStream struct {
	Data []byte
}

func (r RawByteStream) ToString() string {
	if len(r.Data) == 0 {
		return "E00"
	}
	var b strings.Builder
	for _, c := range r.Data {
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// UnsupportedCommand is the empty response GDB reads as "not implemented".
type UnsupportedCommand struct{}

func (UnsupportedCommand) ToString() string { return "" }

// ErrorCode is a numbered `Exx` error response.
type ErrorCode struct {
	Code uint8
}

func (r ErrorCode) ToString() string { return fmt.Sprintf("E%02x", r.Code) }

// ErrorMessage is a textual `E.msg` error response.
type ErrorMessage struct {
	Message string
}

func (r ErrorMessage) ToString() string { return "E." + r.Message }

// WatchpointHit describes which watch triggered a Stop_reason.
type WatchpointHit struct {
	Address         uint32
	IsWrite, IsRead bool
}

// BreakpointHit describes the breakpoint that triggered a Stop_reason.
type BreakpointHit struct {
	IsHardware bool
}

// StopReason reports why execution stopped (§4.12 "Tnn" responses).
// Signal follows POSIX numbering (SIGTRAP=5, SIGINT=2).
type StopReason struct {
	Signal     uint8
	Watchpoint *WatchpointHit
	Breakpoint *BreakpointHit
}

const (
	SIGINT  = 2
	SIGTRAP = 5
)

func StopReasonSignal(signal uint8) StopReason { return StopReason{Signal: signal} }

func StopReasonWatchpoint(hit WatchpointHit) StopReason {
	return StopReason{Signal: SIGTRAP, Watchpoint: &hit}
}

func StopReasonBreakpoint(hit BreakpointHit) StopReason {
	return StopReason{Signal: SIGTRAP, Breakpoint: &hit}
}

func (r StopReason) ToString() string {
	var hit string
	switch {
	case r.Watchpoint != nil:
		w := r.Watchpoint
		var kind string
		switch {
		case w.IsRead && w.IsWrite:
			kind = "awatch"
		case w.IsRead:
			kind = "rwatch"
		case w.IsWrite:
			kind = "watch"
		default:
			kind = ""
		}
		if kind != "" {
			hit = fmt.Sprintf("%s:%x;", kind, w.Address)
		}
	case r.Breakpoint != nil:
		kind := "swbreak"
		if r.Breakpoint.IsHardware {
			kind = "hwbreak"
		}
		hit = fmt.Sprintf("%s:;", kind)
	}
	return fmt.Sprintf("T%02x%s", r.Signal, hit)
}

// QxferResponse answers a qXfer read: `l` marks the final slice, `m`
// says more data follows.
type QxferResponse struct {
	Completed bool
	Data      []byte
}

func (r QxferResponse) ToString() string {
	prefix := "m"
	if r.Completed {
		prefix = "l"
	}
	return prefix + string(r.Data)
}

// QsupportedResponse answers `qSupported` with this stub's fixed
// feature set.
type QsupportedResponse struct{}

func (QsupportedResponse) ToString() string {
	return "PacketSize=4000;qXfer:features:read+;qXfer:memory-map:read+;swbreak+;hwbreak+"
}
