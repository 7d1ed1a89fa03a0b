package gdbstub

import "fmt"

// Target description XML served over qXfer:features:read and
// qXfer:memory-map:read (§4.11 "Read_feature_xml"/"Read_memory_map_xml").
// Grounded on original_source/lib/gdb-stub/gdb-xml.cpp's generated
// target.xml/riscv-32bit-cpu.xml/csr-generated.xml trio -- the byte
// content those files include isn't part of the retrieved source, so
// the register/CSR names below are written out directly against this
// hart's actual register file and CSR set rather than transcribed.

var gprNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func riscvCPUXML() []byte {
	var out string
	out = "<?xml version=\"1.0\"?>" +
		"<!DOCTYPE feature SYSTEM \"gdb-target.dtd\">" +
		"<feature name=\"org.gnu.gdb.riscv.cpu\">\n"
	for i, name := range gprNames {
		out += fmt.Sprintf("<reg name=\"%s\" bitsize=\"32\" type=\"int\" regnum=\"%d\"/>\n", name, i)
	}
	out += "<reg name=\"pc\" bitsize=\"32\" type=\"code_ptr\" regnum=\"32\"/>\n"
	out += "</feature>\n"
	return []byte(out)
}

type csrDesc struct {
	name string
	addr uint32
}

var csrDescs = []csrDesc{
	{"mstatus", 0x300},
	{"misa", 0x301},
	{"mie", 0x304},
	{"mtvec", 0x305},
	{"mscratch", 0x340},
	{"mepc", 0x341},
	{"mcause", 0x342},
	{"mtval", 0x343},
	{"mip", 0x344},
}

func csrGeneratedXML() []byte {
	out := "<?xml version=\"1.0\"?>" +
		"<!DOCTYPE feature SYSTEM \"gdb-target.dtd\">" +
		"<feature name=\"org.gnu.gdb.riscv.csr\">\n"
	for _, c := range csrDescs {
		out += fmt.Sprintf("<reg name=\"%s\" bitsize=\"32\" type=\"int\" regnum=\"%d\"/>\n", c.name, c.addr+128)
	}
	out += "</feature>\n"
	return []byte(out)
}

func targetXML() []byte {
	return []byte(
		"<?xml version=\"1.0\"?>" +
			"<!DOCTYPE target SYSTEM \"gdb-target.dtd\">" +
			"<target version=\"1.0\">\n" +
			"<architecture>riscv:rv32</architecture>\n" +
			"<xi:include href=\"riscv-32bit-cpu.xml\"/>\n" +
			"<xi:include href=\"riscv-32bit-csr-generated.xml\"/>\n" +
			"</target>\n",
	)
}

// memoryMapXML describes the fixed ROM/RAM/peripheral layout (§4.7).
func memoryMapXML() []byte {
	return []byte(
		"<?xml version=\"1.0\"?>" +
			"<!DOCTYPE memory-map SYSTEM \"memory-map.dtd\">" +
			"<memory-map>\n" +
			"<memory type=\"rom\" start=\"0x00100000\" length=\"0x20000\"/>\n" +
			"<memory type=\"ram\" start=\"0x80000000\" length=\"0x80000000\"/>\n" +
			"<memory type=\"ram\" start=\"0x00010000\" length=\"0x100\"/>\n" +
			"<memory type=\"ram\" start=\"0x00011000\" length=\"0x100\"/>\n" +
			"</memory-map>\n",
	)
}

var xmlFiles = map[string][]byte{
	"target.xml":                    targetXML(),
	"riscv-32bit-cpu.xml":           riscvCPUXML(),
	"riscv-32bit-csr-generated.xml": csrGeneratedXML(),
}

// GetXMLFile slices a served XML file for qXfer, reporting isEnd when
// offset+length reaches or passes the end of the file.
func GetXMLFile(filename string, offset, length uint32) (data []byte, isEnd bool, ok bool) {
	file, found := xmlFiles[filename]
	if !found {
		return nil, false, false
	}
	if offset >= uint32(len(file)) {
		return nil, true, true
	}
	end := offset + length
	if end > uint32(len(file)) {
		end = uint32(len(file))
	}
	return file[offset:end], end >= uint32(len(file)), true
}

// MemoryMapXML returns the fixed memory-map XML document.
func MemoryMapXML() []byte {
	return memoryMapXML()
}
