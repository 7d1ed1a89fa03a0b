package cpu

// Field extraction for the six RV32 instruction formats (§4.2), mirroring
// original_source's inst.hpp Rtype/Itype/Stype/Btype/Utype/Jtype.

func slice(instr uint32, hi, lo uint) uint32 {
	return (instr >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func sext(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

type rType struct {
	funct7   uint32
	rs2, rs1 uint
	funct3   uint32
	rd       uint
}

func decodeR(instr uint32) rType {
	return rType{
		funct7: slice(instr, 31, 25),
		rs2:    uint(slice(instr, 24, 20)),
		rs1:    uint(slice(instr, 19, 15)),
		funct3: slice(instr, 14, 12),
		rd:     uint(slice(instr, 11, 7)),
	}
}

type iType struct {
	imm    uint32
	rs1    uint
	funct3 uint32
	rd     uint
}

func decodeI(instr uint32) iType {
	return iType{
		imm:    sext(slice(instr, 31, 20), 12),
		rs1:    uint(slice(instr, 19, 15)),
		funct3: slice(instr, 14, 12),
		rd:     uint(slice(instr, 11, 7)),
	}
}

type sType struct {
	imm        uint32
	rs1, rs2   uint
	funct3     uint32
}

func decodeS(instr uint32) sType {
	raw := (slice(instr, 31, 25) << 5) | slice(instr, 11, 7)
	return sType{
		imm:    sext(raw, 12),
		rs1:    uint(slice(instr, 19, 15)),
		rs2:    uint(slice(instr, 24, 20)),
		funct3: slice(instr, 14, 12),
	}
}

type bType struct {
	imm      uint32
	rs1, rs2 uint
	funct3   uint32
}

func decodeB(instr uint32) bType {
	raw := (slice(instr, 31, 31) << 12) |
		(slice(instr, 7, 7) << 11) |
		(slice(instr, 30, 25) << 5) |
		(slice(instr, 11, 8) << 1)
	return bType{
		imm:    sext(raw, 13),
		rs1:    uint(slice(instr, 19, 15)),
		rs2:    uint(slice(instr, 24, 20)),
		funct3: slice(instr, 14, 12),
	}
}

type uType struct {
	imm uint32
	rd  uint
}

func decodeU(instr uint32) uType {
	return uType{
		imm: slice(instr, 31, 12) << 12,
		rd:  uint(slice(instr, 11, 7)),
	}
}

type jType struct {
	imm uint32
	rd  uint
}

func decodeJ(instr uint32) jType {
	raw := (slice(instr, 31, 31) << 20) |
		(slice(instr, 19, 12) << 12) |
		(slice(instr, 20, 20) << 11) |
		(slice(instr, 30, 21) << 1)
	return jType{
		imm: sext(raw, 21),
		rd:  uint(slice(instr, 11, 7)),
	}
}
