package cpu

// Load/store execution against a MemoryInterface (§6 "Load/store unit").
// Grounded on original_source's Load_store_module::operator(): word-align
// the access, read-modify-extract or build-and-mask the byte lane, and
// map every interface error to Load_access_fault / Store_access_fault
// without distinguishing the interface's own error kinds -- unlike
// instruction fetch, load/store collapses everything to one trap per
// direction.

func widthBytes(f MemFunct) uint32 {
	switch f {
	case MemFunctByte, MemFunctByteUnsigned:
		return 1
	case MemFunctHalfword, MemFunctHalfwordUnsigned:
		return 2
	case MemFunctWord:
		return 4
	default:
		return 0
	}
}

func isAligned(addr uint32, width uint32) bool {
	return addr&(width-1) == 0
}

// doLoad performs a load of the width/signedness named by funct at addr,
// returning the sign/zero-extended 32-bit result.
func doLoad(mem MemoryInterface, addr uint32, funct MemFunct) (uint32, *Trap) {
	width := widthBytes(funct)
	if width == 0 {
		return 0, trapPtr(TrapIllegalInstruction)
	}
	if !isAligned(addr, width) {
		return 0, trapPtr(TrapLoadAddressMisaligned)
	}

	wordAddr := addr &^ 0x3
	shift := (addr & 0x3) * 8

	raw, err := mem.Read(wordAddr)
	if err != MemErrNone {
		return 0, trapPtr(TrapLoadAccessFault)
	}
	lane := raw >> shift

	switch funct {
	case MemFunctByte:
		return uint32(int32(int8(byte(lane)))), nil
	case MemFunctByteUnsigned:
		return uint32(byte(lane)), nil
	case MemFunctHalfword:
		return uint32(int32(int16(uint16(lane)))), nil
	case MemFunctHalfwordUnsigned:
		return uint32(uint16(lane)), nil
	case MemFunctWord:
		return raw, nil
	default:
		return 0, trapPtr(TrapIllegalInstruction)
	}
}

// doStore writes value's low width bytes of funct at addr, building the
// byte-mask and shifted word data the bus write expects.
func doStore(mem MemoryInterface, addr uint32, value uint32, funct MemFunct) *Trap {
	width := widthBytes(funct)
	if width == 0 || funct == MemFunctByteUnsigned || funct == MemFunctHalfwordUnsigned {
		return trapPtr(TrapIllegalInstruction)
	}
	if !isAligned(addr, width) {
		return trapPtr(TrapStoreAddressMisaligned)
	}

	wordAddr := addr &^ 0x3
	shift := (addr & 0x3) * 8

	var mask4 uint8
	switch funct {
	case MemFunctByte:
		mask4 = 0b0001 << (shift / 8)
	case MemFunctHalfword:
		mask4 = 0b0011 << (shift / 8)
	case MemFunctWord:
		mask4 = 0b1111
	}

	data := value << shift

	if err := mem.Write(wordAddr, data, mask4); err != MemErrNone {
		return trapPtr(TrapStoreAccessFault)
	}
	return nil
}
