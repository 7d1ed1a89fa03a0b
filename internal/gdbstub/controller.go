package gdbstub

import (
	"sync/atomic"
)

// StepInfo is what a Target reports back after executing one cycle --
// just enough for the controller to evaluate breakpoints and
// watchpoints without depending on any concrete CPU/memory package
// (§4.15). Grounded on original_source's core::CPU_module::Result, cut
// down to the fields Emulator_debug::check_watchpoint actually reads.
type StepInfo struct {
	Address    uint32
	IsLoad     bool
	IsStore    bool
	AccessSize uint32
}

// Target is the minimal surface a Controller needs from a running
// machine. Grounded on the teacher's models.Usercorn interface
// (go/debug/gdbstub.go depends on that interface, not a concrete
// emulator type) -- the same inversion keeps this package free of any
// import on internal/cpu or internal/platform.
type Target interface {
	PC() uint32
	SetPC(addr uint32)
	ReadRegister(regno uint32) (uint32, bool)
	WriteRegister(regno uint32, value uint32)
	ReadMemoryWord(addr uint32) (uint32, bool)
	WriteMemoryWord(addr uint32, value uint32, mask4 uint8) bool
	ReadMemoryByte(addr uint32) (byte, bool)
	Step() StepInfo
	ResetRAM()
}

type Breakpoint struct {
	IsHardware bool
	Cond       []byte
	HasCond    bool
}

func (b Breakpoint) isTriggeredBy(target Target) bool {
	if !b.HasCond {
		return true
	}
	mem := func(addr uint32) (byte, bool) { return target.ReadMemoryByte(addr) }
	reg := func(regno uint32) (uint32, bool) { return target.ReadRegister(regno) }
	result, _, ok := Execute(mem, reg, b.Cond)
	return ok && result.Top != 0
}

type Watchpoint struct {
	WatchWrite bool
	WatchRead  bool
}

// Controller runs the debug command loop for one connection: receive,
// dispatch, respond, with `c`/`s`/`i` handled by asyncRun so incoming
// Ctrl-C packets can interrupt a running target (§4.15
// "Emulator_debug"). Grounded on
// original_source/main/src/emulator-debug.cpp.
type Controller struct {
	handler *Handler
	target  Target

	breakpoints map[uint32]Breakpoint
	watchpoints AddrRangeMap[Watchpoint]
}

func NewController(handler *Handler, target Target) *Controller {
	return &Controller{
		handler:     handler,
		target:      target,
		breakpoints: make(map[uint32]Breakpoint),
	}
}

func (c *Controller) send(r Response) {
	if c.handler.Send(r) != 0 {
		c.handler.Close()
	}
}

func (c *Controller) checkBreakpoint() bool {
	bp, ok := c.breakpoints[c.target.PC()]
	return ok && bp.isTriggeredBy(c.target)
}

// checkWatchpoint reports the read/write flags of a watchpoint that
// this step's memory access hit, if any.
func (c *Controller) checkWatchpoint(info StepInfo) (read, write bool, hit bool) {
	if !info.IsLoad && !info.IsStore {
		return false, false, false
	}
	wp, ok := c.watchpoints.Find(AddrRange{Start: info.Address, Size: info.AccessSize})
	if !ok {
		return false, false, false
	}
	write = info.IsStore && wp.WatchWrite
	read = info.IsLoad && wp.WatchRead
	if !read && !write {
		return false, false, false
	}
	return read, write, true
}

// runCycle executes one target cycle and reports a stop reason if a
// breakpoint, watchpoint, or the interrupt flag fired.
func (c *Controller) runCycle(interrupt *atomic.Bool) (StopReason, bool) {
	info := c.target.Step()

	if c.checkBreakpoint() {
		return StopReasonBreakpoint(BreakpointHit{IsHardware: true}), true
	}
	if read, write, hit := c.checkWatchpoint(info); hit {
		return StopReasonWatchpoint(WatchpointHit{Address: info.Address, IsRead: read, IsWrite: write}), true
	}
	if interrupt.Load() {
		return StopReasonSignal(SIGINT), true
	}
	return StopReason{}, false
}

func (c *Controller) runUntilTrap(interrupt *atomic.Bool) StopReason {
	for {
		if reason, stopped := c.runCycle(interrupt); stopped {
			return reason
		}
	}
}

func (c *Controller) runSteps(cycleCount uint32, interrupt *atomic.Bool) StopReason {
	for i := uint32(0); i < cycleCount; i++ {
		if reason, stopped := c.runCycle(interrupt); stopped {
			return reason
		}
	}
	return StopReasonSignal(SIGTRAP)
}

// asyncRun runs fn on a goroutine, polling for an incoming Ctrl-C or
// halt-reason query to set its interrupt flag; any other incoming
// command during the run closes the connection, matching
// Emulator_debug::async_run's "abandon on unexpected packet" behavior.
func (c *Controller) asyncRun(fn func(*atomic.Bool) StopReason) {
	interrupt := &atomic.Bool{}
	done := make(chan StopReason, 1)
	go func() { done <- fn(interrupt) }()

	for {
		select {
		case reason := <-done:
			c.send(reason)
			return
		default:
		}

		cmd, _, ok := c.handler.PollReceive(asyncPollInterval)
		if !ok {
			continue
		}
		if cmd.Kind == CmdInterrupt || cmd.Kind == CmdAskHaltReason {
			interrupt.Store(true)
			continue
		}
		c.handler.Close()
		<-done
		return
	}
}

func (c *Controller) handleContinue(cmd Command) {
	if cmd.HasAddress {
		c.target.SetPC(cmd.Address)
	}
	c.asyncRun(c.runUntilTrap)
}

func (c *Controller) handleStep(cmd Command) {
	if cmd.HasAddress {
		c.target.SetPC(cmd.Address)
	}
	c.asyncRun(func(interrupt *atomic.Bool) StopReason { return c.runSteps(1, interrupt) })
}

func (c *Controller) handleStepCycles(cmd Command) {
	if cmd.HasAddress {
		c.target.SetPC(cmd.Address)
	}
	count := cmd.CycleCount
	if !cmd.HasCycleCount {
		count = 1
	}
	c.asyncRun(func(interrupt *atomic.Bool) StopReason { return c.runSteps(count, interrupt) })
}

func (c *Controller) handleReadMemory(cmd Command) {
	data := make([]byte, 0, cmd.Length)
	for i := uint32(0); i < cmd.Length; i++ {
		addr := cmd.Address + i
		word, ok := c.target.ReadMemoryWord(addr &^ 0x3)
		if !ok {
			break
		}
		data = append(data, byte(word>>((addr&0x3)*8)))
	}
	c.send(RawByteStream{Data: data})
}

func (c *Controller) handleWriteMemory(cmd Command) {
	for i, b := range cmd.Data {
		addr := cmd.Address + uint32(i)
		mask := uint8(1) << (addr & 0x3)
		word := uint32(b) << ((addr & 0x3) * 8)
		if !c.target.WriteMemoryWord(addr&^0x3, word, mask) {
			c.send(ErrorCode{Code: 0})
			return
		}
	}
	c.send(OK{})
}

func (c *Controller) handleReadRegister() {
	values := make([]uint32, 33)
	has := make([]bool, 33)
	for i := uint32(0); i < 33; i++ {
		v, ok := c.target.ReadRegister(i)
		values[i], has[i] = v, ok
	}
	c.send(RegisterContent{Values: values, HasValue: has})
}

func (c *Controller) handleWriteRegister(cmd Command) {
	for regno, value := range cmd.RegValues {
		c.target.WriteRegister(uint32(regno), value)
	}
	c.send(OK{})
}

func (c *Controller) handleReadSingleRegister(cmd Command) {
	v, ok := c.target.ReadRegister(cmd.Regno)
	c.send(SingleRegisterContent{Value: v, HasValue: ok})
}

func (c *Controller) handleWriteSingleRegister(cmd Command) {
	c.target.WriteRegister(cmd.Regno, cmd.Value)
	c.send(OK{})
}

func (c *Controller) handleAddBreakpoint(cmd Command) {
	if !cmd.IsHardware {
		c.send(UnsupportedCommand{})
		return
	}
	if cmd.Length != 4 {
		c.send(ErrorMessage{Message: "Only 4-byte breakpoints are supported"})
		return
	}
	c.breakpoints[cmd.Address] = Breakpoint{IsHardware: true, Cond: cmd.Cond, HasCond: cmd.HasCond}
	c.send(OK{})
}

func (c *Controller) handleRemoveBreakpoint(cmd Command) {
	if !cmd.IsHardware {
		c.send(UnsupportedCommand{})
		return
	}
	if _, ok := c.breakpoints[cmd.Address]; !ok {
		c.send(ErrorMessage{Message: "No such breakpoint"})
		return
	}
	delete(c.breakpoints, cmd.Address)
	c.send(OK{})
}

func (c *Controller) handleAddWatchpoint(cmd Command) {
	if cmd.Length == 0 {
		c.send(ErrorMessage{Message: "Watchpoint length must be greater than 0"})
		return
	}
	if !cmd.WatchRead && !cmd.WatchWrite {
		c.send(ErrorMessage{Message: "Watchpoint must watch read or write"})
		return
	}
	c.watchpoints.Insert(
		AddrRange{Start: cmd.Address, Size: cmd.Length},
		Watchpoint{WatchWrite: cmd.WatchWrite, WatchRead: cmd.WatchRead},
	)
	c.send(OK{})
}

func (c *Controller) handleRemoveWatchpoint(cmd Command) {
	if !c.watchpoints.Erase(AddrRange{Start: cmd.Address, Size: cmd.Length}) {
		c.send(ErrorMessage{Message: "No such watchpoint"})
		return
	}
	c.send(OK{})
}

func (c *Controller) handleQSupported() {
	c.send(QsupportedResponse{})
}

func (c *Controller) handleQxferFeature(cmd Command) {
	data, isEnd, ok := GetXMLFile(cmd.Annex, cmd.Offset, cmd.Length)
	if !ok {
		c.send(ErrorMessage{Message: "Unknown annex: " + cmd.Annex})
		return
	}
	c.send(QxferResponse{Completed: isEnd, Data: data})
}

func (c *Controller) handleQxferMemoryMap(cmd Command) {
	doc := MemoryMapXML()
	end := cmd.Offset + cmd.Length
	isEnd := end >= uint32(len(doc))
	if end > uint32(len(doc)) {
		end = uint32(len(doc))
	}
	start := cmd.Offset
	if start > uint32(len(doc)) {
		start = uint32(len(doc))
	}
	c.send(QxferResponse{Completed: isEnd, Data: doc[start:end]})
}

// dispatch handles one decoded command, replying as needed. It
// returns false when the connection should stop being served (the `k`
// packet).
func (c *Controller) dispatch(cmd Command) bool {
	switch cmd.Kind {
	case CmdQuerySupported:
		c.handleQSupported()
	case CmdReadFeatureXML:
		c.handleQxferFeature(cmd)
	case CmdReadMemoryMapXML:
		c.handleQxferMemoryMap(cmd)
	case CmdAskHaltReason:
		c.send(StopReasonSignal(SIGINT))
	case CmdReadMemory:
		c.handleReadMemory(cmd)
	case CmdWriteMemory:
		c.handleWriteMemory(cmd)
	case CmdReadRegister:
		c.handleReadRegister()
	case CmdWriteRegister:
		c.handleWriteRegister(cmd)
	case CmdReadSingleRegister:
		c.handleReadSingleRegister(cmd)
	case CmdWriteSingleRegister:
		c.handleWriteSingleRegister(cmd)
	case CmdContinue:
		c.handleContinue(cmd)
	case CmdStepSingleInst:
		c.handleStep(cmd)
	case CmdStepCycles:
		c.handleStepCycles(cmd)
	case CmdAddBreakpoint:
		c.handleAddBreakpoint(cmd)
	case CmdRemoveBreakpoint:
		c.handleRemoveBreakpoint(cmd)
	case CmdAddWatchpoint:
		c.handleAddWatchpoint(cmd)
	case CmdRemoveWatchpoint:
		c.handleRemoveWatchpoint(cmd)
	case CmdAcknowledge:
		// stray ack outside a send/receive retry loop: ignore.
	case CmdRestart:
		c.target.ResetRAM()
	case CmdStop:
		return false
	default:
		c.handler.Close()
		return false
	}
	return true
}

// Run serves commands until the peer sends `k` or the handler reports
// an internal failure (§4.15 "Emulator_debug::run"). A connection or
// protocol fault closes the connection and the loop goes on; the next
// Receive accepts a new one.
func (c *Controller) Run() {
	for {
		cmd, netErr, ok := c.handler.Receive()
		if !ok {
			switch netErr {
			case NetErrInternalFail:
				c.handler.Close()
				return
			case NetErrConnectionFault, NetErrProtocolFail:
				c.handler.Close()
				continue
			case NetErrDecodeFail:
				c.send(UnsupportedCommand{})
				continue
			default:
				continue
			}
		}
		if !c.dispatch(cmd) {
			return
		}
	}
}
