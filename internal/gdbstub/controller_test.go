package gdbstub

import (
	"sync/atomic"
	"testing"
)

// fakeTarget is a minimal Target for exercising Controller logic
// without a real hart. pc advances by 4 every Step, driving a fixed
// memory-access script indexed by step count.
type fakeTarget struct {
	pc       uint32
	regs     map[uint32]uint32
	mem      map[uint32]byte
	accesses []StepInfo
	stepNum  int
	reset    bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		regs: make(map[uint32]uint32),
		mem:  make(map[uint32]byte),
	}
}

func (f *fakeTarget) PC() uint32     { return f.pc }
func (f *fakeTarget) SetPC(a uint32) { f.pc = a }

func (f *fakeTarget) ReadRegister(regno uint32) (uint32, bool) {
	v, ok := f.regs[regno]
	return v, ok
}

func (f *fakeTarget) WriteRegister(regno uint32, value uint32) {
	f.regs[regno] = value
}

func (f *fakeTarget) ReadMemoryWord(addr uint32) (uint32, bool) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		b, ok := f.mem[addr+i]
		if !ok {
			return 0, false
		}
		v |= uint32(b) << (i * 8)
	}
	return v, true
}

func (f *fakeTarget) WriteMemoryWord(addr uint32, value uint32, mask4 uint8) bool {
	for i := uint32(0); i < 4; i++ {
		if mask4&(1<<i) != 0 {
			f.mem[addr+i] = byte(value >> (i * 8))
		}
	}
	return true
}

func (f *fakeTarget) ReadMemoryByte(addr uint32) (byte, bool) {
	b, ok := f.mem[addr]
	return b, ok
}

func (f *fakeTarget) Step() StepInfo {
	var info StepInfo
	if f.stepNum < len(f.accesses) {
		info = f.accesses[f.stepNum]
	}
	f.stepNum++
	f.pc += 4
	return info
}

func (f *fakeTarget) ResetRAM() { f.reset = true }

func TestCheckBreakpointExactAddressNoCondition(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)
	c.breakpoints[0x1000] = Breakpoint{IsHardware: true}

	target.pc = 0x1000
	if !c.checkBreakpoint() {
		t.Fatal("expected breakpoint at exact pc to trigger")
	}
	target.pc = 0x1004
	if c.checkBreakpoint() {
		t.Fatal("expected no breakpoint at a different pc")
	}
}

func TestCheckBreakpointConditionGatesTrigger(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)

	// bytecode: const8 0 ; end -- always evaluates falsy.
	falsy := []byte{byte(OpConst8), 0x00, byte(OpEnd)}
	c.breakpoints[0x2000] = Breakpoint{IsHardware: true, Cond: falsy, HasCond: true}
	target.pc = 0x2000
	if c.checkBreakpoint() {
		t.Fatal("expected falsy condition to suppress the breakpoint")
	}

	truthy := []byte{byte(OpConst8), 0x01, byte(OpEnd)}
	c.breakpoints[0x2000] = Breakpoint{IsHardware: true, Cond: truthy, HasCond: true}
	if !c.checkBreakpoint() {
		t.Fatal("expected truthy condition to trigger the breakpoint")
	}
}

func TestCheckWatchpointMatchesWriteOnly(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)
	c.watchpoints.Insert(AddrRange{Start: 0x3000, Size: 4}, Watchpoint{WatchWrite: true})

	read, write, hit := c.checkWatchpoint(StepInfo{Address: 0x3000, IsStore: true, AccessSize: 4})
	if !hit || !write || read {
		t.Fatalf("got read=%v write=%v hit=%v", read, write, hit)
	}

	read, write, hit = c.checkWatchpoint(StepInfo{Address: 0x3000, IsLoad: true, AccessSize: 4})
	if hit {
		t.Fatalf("a read-only access should not hit a write-only watchpoint, got read=%v write=%v", read, write)
	}
}

func TestCheckWatchpointNoAccessNeverHits(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)
	c.watchpoints.Insert(AddrRange{Start: 0x3000, Size: 4}, Watchpoint{WatchWrite: true, WatchRead: true})

	if _, _, hit := c.checkWatchpoint(StepInfo{Address: 0x3000, AccessSize: 4}); hit {
		t.Fatal("a step with no load/store should never hit a watchpoint")
	}
}

func TestRunUntilTrapStopsAtBreakpoint(t *testing.T) {
	target := newFakeTarget()
	target.pc = 0
	c := NewController(nil, target)
	c.breakpoints[0x10] = Breakpoint{IsHardware: true}

	interrupt := &atomic.Bool{}
	reason := c.runUntilTrap(interrupt)
	if reason.Breakpoint == nil || !reason.Breakpoint.IsHardware {
		t.Fatalf("expected a breakpoint stop reason, got %+v", reason)
	}
	if target.pc != 0x10 {
		t.Fatalf("expected pc to land on the breakpoint address after stepping onto it, got %#x", target.pc)
	}
}

func TestRunStepsExhaustsCountWithoutHit(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)

	interrupt := &atomic.Bool{}
	reason := c.runSteps(3, interrupt)
	if reason.Signal != SIGTRAP || reason.Breakpoint != nil || reason.Watchpoint != nil {
		t.Fatalf("expected a plain SIGTRAP stop, got %+v", reason)
	}
	if target.stepNum != 3 {
		t.Fatalf("expected exactly 3 steps, got %d", target.stepNum)
	}
}

func TestRunStepsStopsEarlyOnInterrupt(t *testing.T) {
	target := newFakeTarget()
	c := NewController(nil, target)

	interrupt := &atomic.Bool{}
	interrupt.Store(true)
	reason := c.runSteps(10, interrupt)
	if reason.Signal != SIGINT {
		t.Fatalf("expected SIGINT, got %+v", reason)
	}
	if target.stepNum != 1 {
		t.Fatalf("expected the interrupt to stop after the first step, got %d steps", target.stepNum)
	}
}
