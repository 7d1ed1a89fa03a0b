package cpu

// opcodeGroup is the 5-bit opcode field [6:2] classifying an instruction
// into one of eleven format groups (§4.2).
type opcodeGroup uint32

const (
	opLui              opcodeGroup = 0b01101
	opAuipc            opcodeGroup = 0b00101
	opJal              opcodeGroup = 0b11011
	opJalr             opcodeGroup = 0b11001
	opBranch           opcodeGroup = 0b11000
	opLoad             opcodeGroup = 0b00000
	opStore            opcodeGroup = 0b01000
	opRegImmArith      opcodeGroup = 0b00100
	opRegRegArith      opcodeGroup = 0b01100
	opMiscMem          opcodeGroup = 0b00011
	opSystem           opcodeGroup = 0b11100
)

func decodeLui(instr uint32) StepRecord {
	u := decodeU(instr)
	return StepRecord{
		WritebackSource: WBAlu,
		DestRegister:    u.rd,
		AluOpcode:       AluAdd,
		AluNum1:         u.imm,
		AluNum2:         0,
	}
}

func decodeAuipc(instr uint32, pc uint32) StepRecord {
	u := decodeU(instr)
	return StepRecord{
		WritebackSource: WBAlu,
		DestRegister:    u.rd,
		AluOpcode:       AluAdd,
		AluNum1:         pc,
		AluNum2:         u.imm,
	}
}

func decodeJal(instr uint32, pc uint32) StepRecord {
	j := decodeJ(instr)
	return StepRecord{
		WritebackSource: WBPcPlus4,
		DestRegister:    j.rd,
		AluOpcode:       AluAdd,
		AluNum1:         pc,
		AluNum2:         j.imm,
		BranchOpcode:    BranchEq,
		BranchNum1:      0,
		BranchNum2:      0,
	}
}

func decodeJalr(regs *Regs, instr uint32) StepRecord {
	i := decodeI(instr)
	return StepRecord{
		WritebackSource: WBPcPlus4,
		DestRegister:    i.rd,
		AluOpcode:       AluAdd,
		AluNum1:         regs.Read(i.rs1),
		AluNum2:         i.imm,
		BranchOpcode:    BranchEq,
		BranchNum1:      0,
		BranchNum2:      0,
	}
}

var loadFunctTable = [8]MemFunct{
	MemFunctByte, MemFunctHalfword, MemFunctWord, MemFunctNone,
	MemFunctByteUnsigned, MemFunctHalfwordUnsigned, MemFunctNone, MemFunctNone,
}

func decodeLoad(regs *Regs, instr uint32) (StepRecord, *Trap) {
	i := decodeI(instr)
	// spec.md is explicit that funct3 011, 110, 111 are illegal, stricter
	// than the original source's permissive Funct::None no-op.
	switch i.funct3 {
	case 0b011, 0b110, 0b111:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}
	return StepRecord{
		WritebackSource: WBMemory,
		DestRegister:    i.rd,
		AluOpcode:       AluAdd,
		AluNum1:         regs.Read(i.rs1),
		AluNum2:         i.imm,
		MemoryOpcode:    MemOpLoad,
		MemoryFunct:     loadFunctTable[i.funct3],
	}, nil
}

func decodeStore(regs *Regs, instr uint32) (StepRecord, *Trap) {
	s := decodeS(instr)
	var funct MemFunct
	switch s.funct3 {
	case 0b000:
		funct = MemFunctByte
	case 0b001:
		funct = MemFunctHalfword
	case 0b010:
		funct = MemFunctWord
	default:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}
	return StepRecord{
		WritebackSource:  WBNone,
		AluOpcode:        AluAdd,
		AluNum1:          regs.Read(s.rs1),
		AluNum2:          s.imm,
		MemoryOpcode:     MemOpStore,
		MemoryFunct:      funct,
		MemoryStoreValue: regs.Read(s.rs2),
	}, nil
}

var regImmOpTable = [8]AluOp{
	AluAdd, AluSll, AluSlt, AluSltu, AluXor, AluSrl /* or Sra */, AluOr, AluAnd,
}

func decodeRegImm(regs *Regs, instr uint32) StepRecord {
	i := decodeI(instr)
	op := regImmOpTable[i.funct3]
	if i.funct3 == 0b101 && (instr>>30)&1 != 0 {
		op = AluSra
	}
	return StepRecord{
		WritebackSource: WBAlu,
		DestRegister:    i.rd,
		AluOpcode:       op,
		AluNum1:         regs.Read(i.rs1),
		AluNum2:         i.imm,
	}
}

var rv32iOpTable = [8]AluOp{
	AluAdd /* or Sub */, AluSll, AluSlt, AluSltu, AluXor, AluSrl /* or Sra */, AluOr, AluAnd,
}
var rv32mOpTable = [8]AluOp{
	AluMul, AluMulh, AluMulhsu, AluMulhu, AluDiv, AluDivu, AluRem, AluRemu,
}

func decodeRegReg(regs *Regs, instr uint32) (StepRecord, *Trap) {
	r := decodeR(instr)
	_ = r.funct7
	// The major family selector is funct7's own low three bits, i.e.
	// instr[27:25].
	funct7Select := (instr >> 25) & 0b111

	var op AluOp
	switch funct7Select {
	case 0b000: // RV32I
		op = rv32iOpTable[r.funct3]
		if r.funct3 == 0b000 && (instr>>30)&1 != 0 {
			op = AluSub
		}
		if r.funct3 == 0b101 && (instr>>30)&1 != 0 {
			op = AluSra
		}
	case 0b001: // RV32M
		op = rv32mOpTable[r.funct3]
	case 0b111: // Zicond
		switch r.funct3 {
		case 0b101:
			op = AluCzeroEqz
		case 0b111:
			op = AluCzeroNez
		default:
			return StepRecord{}, trapPtr(TrapIllegalInstruction)
		}
	default:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}

	return StepRecord{
		WritebackSource: WBAlu,
		DestRegister:    r.rd,
		AluOpcode:       op,
		AluNum1:         regs.Read(r.rs1),
		AluNum2:         regs.Read(r.rs2),
	}, nil
}

var branchOpTable = [8]BranchOp{
	BranchEq, BranchNe, BranchNone, BranchNone, BranchLt, BranchGe, BranchLtu, BranchGeu,
}

func decodeBranch(regs *Regs, instr uint32, pc uint32) (StepRecord, *Trap) {
	b := decodeB(instr)
	switch b.funct3 {
	case 0b010, 0b011:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}
	return StepRecord{
		WritebackSource: WBNone,
		AluOpcode:       AluAdd,
		AluNum1:         pc,
		AluNum2:         b.imm,
		BranchOpcode:    branchOpTable[b.funct3],
		BranchNum1:      regs.Read(b.rs1),
		BranchNum2:      regs.Read(b.rs2),
	}, nil
}

func decodeMiscMem(instr uint32) (StepRecord, *Trap) {
	i := decodeI(instr)
	if i.funct3 == 0b001 {
		return StepRecord{Fencei: true}, nil
	}
	return StepRecord{}, trapPtr(TrapIllegalInstruction)
}

func decodeSystem(regs *Regs, instr uint32) (StepRecord, *Trap) {
	i := decodeI(instr)
	result := StepRecord{}

	if i.funct3 == 0b000 {
		switch i.imm & 0xFFF {
		case 0b000000000000:
			result.Ecall = true
		case 0b001100000010:
			result.Mret = true
		default:
			return StepRecord{}, trapPtr(TrapIllegalInstruction)
		}
		return result, nil
	}

	switch i.funct3 {
	case 0b001, 0b010, 0b011, 0b101, 0b110, 0b111:
		result.WritebackSource = WBCsr
	default:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}

	csrDoWrite := i.rs1 != 0

	result.CsrAccessInfo.Address = uint16(i.imm & 0xFFF)
	if i.funct3&0b100 != 0 {
		result.CsrAccessInfo.WriteValue = sext(uint32(i.rs1), 5)
	} else {
		result.CsrAccessInfo.WriteValue = regs.Read(i.rs1)
	}
	result.DestRegister = i.rd

	switch i.funct3 & 0b011 {
	case 0b01: // csrrw / csrrwi
		if csrDoWrite {
			result.CsrAccessInfo.WriteMode = WriteOverwrite
		} else {
			result.CsrAccessInfo.WriteMode = WriteNone
		}
		result.CsrAccessInfo.Read = i.rd != 0
	case 0b10: // csrrs / csrrsi
		if csrDoWrite {
			result.CsrAccessInfo.WriteMode = WriteSet
		} else {
			result.CsrAccessInfo.WriteMode = WriteNone
		}
		result.CsrAccessInfo.Read = true
	case 0b11: // csrrc / csrrci
		if csrDoWrite {
			result.CsrAccessInfo.WriteMode = WriteClear
		} else {
			result.CsrAccessInfo.WriteMode = WriteNone
		}
		result.CsrAccessInfo.Read = true
	default:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}

	return result, nil
}

// Decode dispatches on opcode[6:2] and produces a step record with all
// register-file inputs already read (§4.2).
func Decode(regs *Regs, instr uint32, pc uint32) (StepRecord, *Trap) {
	if instr&0b11 != 0b11 {
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}

	group := opcodeGroup(slice(instr, 6, 2))
	switch group {
	case opLui:
		return decodeLui(instr), nil
	case opAuipc:
		return decodeAuipc(instr, pc), nil
	case opJal:
		return decodeJal(instr, pc), nil
	case opJalr:
		return decodeJalr(regs, instr), nil
	case opLoad:
		return decodeLoad(regs, instr)
	case opStore:
		return decodeStore(regs, instr)
	case opRegImmArith:
		return decodeRegImm(regs, instr), nil
	case opRegRegArith:
		return decodeRegReg(regs, instr)
	case opBranch:
		return decodeBranch(regs, instr, pc)
	case opMiscMem:
		return decodeMiscMem(instr)
	case opSystem:
		return decodeSystem(regs, instr)
	default:
		return StepRecord{}, trapPtr(TrapIllegalInstruction)
	}
}
