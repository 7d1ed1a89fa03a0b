package cpu

// Trap is the exception/interrupt cause code written to mcause on trap
// delivery (§4.1 step 6). Values match the RISC-V privileged spec's
// mcause encoding: interrupt-class traps have the top bit set.
type Trap uint32

const (
	TrapInstAddressMisaligned Trap = 0x0000
	TrapInstAccessFault       Trap = 0x0001
	TrapIllegalInstruction    Trap = 0x0002
	TrapBreakpoint            Trap = 0x0003
	TrapLoadAddressMisaligned Trap = 0x0004
	TrapLoadAccessFault       Trap = 0x0005
	TrapStoreAddressMisaligned Trap = 0x0006
	TrapStoreAccessFault      Trap = 0x0007
	TrapEnvCallFromMMode      Trap = 0x000B

	TrapMachineTimerInterrupt Trap = 0x80000007
)

// IsInterrupt reports whether trap belongs to the interrupt class
// (mcause's top bit set) rather than the exception class.
func IsInterrupt(trap Trap) bool {
	return uint32(trap) >= 0x80000000
}

// There is no Trap value meaning "no trap occurred this cycle": Trap 0 is
// a legitimate exception (Inst_address_misaligned), so traps are carried
// as *Trap in the step record and nil means "no trap".
