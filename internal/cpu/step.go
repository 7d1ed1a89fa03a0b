package cpu

// WritebackSource selects what value gets written to the destination
// register at the end of a cycle (§3 "Step record").
type WritebackSource int

const (
	WBNone WritebackSource = iota
	WBPcPlus4
	WBAlu
	WBMemory
	WBCsr
)

// MemOp is the load/store unit's operation direction.
type MemOp int

const (
	MemOpNone MemOp = iota
	MemOpLoad
	MemOpStore
)

// MemFunct selects the load/store width and signedness (§4.4).
type MemFunct int

const (
	MemFunctNone MemFunct = iota
	MemFunctByte
	MemFunctHalfword
	MemFunctWord
	MemFunctByteUnsigned
	MemFunctHalfwordUnsigned
)

// MemErr is the memory interface's error taxonomy (§6).
type MemErr int

const (
	MemErrNone MemErr = iota
	MemErrOutOfRange
	MemErrUnaligned
	MemErrAccessFault
	MemErrDeviceError
	MemErrNotSupported
)

// MemoryInterface is the boundary the CPU issues fetches, loads, and
// stores through (§6 "Memory interface"). Implemented by internal/mem's
// Interconnect and by internal/mem's paged block memory directly.
type MemoryInterface interface {
	Read(addr uint32) (uint32, MemErr)
	ReadPage(alignedAddr uint32, out []uint32) MemErr
	Write(addr uint32, value uint32, mask4 uint8) MemErr
	Size() uint64
}

// StepRecord is the uniform product of decode+execute for one cycle
// (§3 "Step record").
type StepRecord struct {
	Pc   uint32
	Inst uint32

	WritebackSource WritebackSource
	DestRegister    uint

	AluOpcode      AluOp
	AluNum1        uint32
	AluNum2        uint32
	AluResult      uint32

	BranchOpcode BranchOp
	BranchNum1   uint32
	BranchNum2   uint32
	BranchTaken  bool

	MemoryOpcode    MemOp
	MemoryFunct     MemFunct
	MemoryStoreValue uint32
	MemoryLoadValue  uint32

	CsrAccessInfo AccessInfo
	CsrResult     uint32

	Fencei bool
	Ecall  bool
	Mret   bool

	WritebackValue uint32
	Trap           *Trap
}

func trapPtr(t Trap) *Trap { return &t }
