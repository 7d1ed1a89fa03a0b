package cpu

// CPU is the single-hart RV32IM_Zicond machine-mode core (§4.1 "Step
// cycle"). Grounded on original_source's CPU_module: execute() produces
// a step record without touching architectural state beyond the
// register file and PC, handle_trap() commits trap side effects, and
// step() ties the two together with the per-cycle CSR tick.
type CPU struct {
	PC    uint32
	Regs  Regs
	CSRs  *CSRs
	Cache FetchCache
	Mem   MemoryInterface
}

// NewCPU constructs a hart with its CSR file reset and PC set to
// resetPC, reading/writing through mem.
func NewCPU(mem MemoryInterface, resetPC uint32) *CPU {
	return &CPU{
		PC:   resetPC,
		CSRs: NewCSRs(),
		Mem:  mem,
	}
}

// execute runs fetch, decode, and execute/writeback for one instruction,
// stopping short of committing a trap. On any failure result.Trap is set
// and no further architectural state (registers, PC) has changed.
func (c *CPU) execute() StepRecord {
	result := StepRecord{Pc: c.PC}

	inst, trap := c.Cache.Fetch(c.Mem, c.PC)
	if trap != nil {
		result.Trap = trap
		return result
	}
	result.Inst = inst

	decoded, trap := Decode(&c.Regs, inst, c.PC)
	if trap != nil {
		result.Trap = trap
		return result
	}
	decoded.Pc = c.PC
	decoded.Inst = inst
	result = decoded

	if result.Ecall {
		result.Trap = trapPtr(TrapEnvCallFromMMode)
		return result
	}

	if c.CSRs.MIE() {
		if pending := c.CSRs.Mip & c.CSRs.Mie; pending != 0 {
			if pending&(1<<7) != 0 {
				result.Trap = trapPtr(TrapMachineTimerInterrupt)
				return result
			}
		}
	}

	result.AluResult = Alu(result.AluOpcode, result.AluNum1, result.AluNum2)
	result.BranchTaken = Branch(result.BranchOpcode, result.BranchNum1, result.BranchNum2)

	csrValue, _, ok := c.CSRs.Access(result.CsrAccessInfo)
	if !ok {
		result.Trap = trapPtr(TrapIllegalInstruction)
		return result
	}
	result.CsrResult = csrValue

	switch result.MemoryOpcode {
	case MemOpLoad:
		value, trap := doLoad(c.Mem, result.AluResult, result.MemoryFunct)
		if trap != nil {
			result.Trap = trap
			return result
		}
		result.MemoryLoadValue = value
	case MemOpStore:
		if trap := doStore(c.Mem, result.AluResult, result.MemoryStoreValue, result.MemoryFunct); trap != nil {
			result.Trap = trap
			return result
		}
	}

	switch result.WritebackSource {
	case WBNone:
	case WBPcPlus4:
		result.WritebackValue = c.PC + 4
	case WBAlu:
		result.WritebackValue = result.AluResult
	case WBMemory:
		result.WritebackValue = result.MemoryLoadValue
	case WBCsr:
		result.WritebackValue = result.CsrResult
	}

	if result.DestRegister != 0 {
		c.Regs.Write(result.DestRegister, result.WritebackValue)
	}

	if result.Fencei {
		c.Cache.Fencei()
	}

	switch {
	case result.Mret:
		c.PC = c.CSRs.Mepc
		c.CSRs.SetMIE(c.CSRs.MPIE())
		c.CSRs.SetMPIE(false)
	case result.BranchTaken:
		c.PC = result.AluResult
	default:
		c.PC += 4
	}

	return result
}

// handleTrap commits a pending trap's architectural side effects: saved
// privilege/interrupt state, mepc/mcause/mtval, and the redirected PC
// (§4.1 step 6, "Trap delivery").
func (c *CPU) handleTrap(result *StepRecord) {
	if result.Trap == nil {
		return
	}
	trap := *result.Trap

	c.CSRs.SetMPIE(c.CSRs.MIE())
	c.CSRs.SetMIE(false)
	c.CSRs.SetMPPMachine()

	c.CSRs.Mepc = c.PC
	c.CSRs.Mcause = uint32(trap)

	switch trap {
	case TrapInstAddressMisaligned, TrapInstAccessFault,
		TrapLoadAddressMisaligned, TrapLoadAccessFault,
		TrapStoreAddressMisaligned, TrapStoreAccessFault:
		c.CSRs.Mtval = result.AluResult
	case TrapIllegalInstruction:
		c.CSRs.Mtval = result.Inst
	default:
		c.CSRs.Mtval = 0
	}

	mode, base := c.CSRs.MtvecModeBase()
	if IsInterrupt(trap) && mode == MtvecVectored {
		vec := uint32(trap) & 0x7fffffff
		c.PC = (base << 2) + 4*vec
	} else {
		c.PC = base << 2
	}
}

// Step runs one full cycle: execute, trap delivery, then the CSR tick
// (§4.1 step 7).
func (c *CPU) Step() StepRecord {
	result := c.execute()
	c.handleTrap(&result)
	c.CSRs.Tick()
	return result
}
