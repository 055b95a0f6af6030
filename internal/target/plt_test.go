package target

import "testing"

func TestX86PltHeaderAndEntryOpcodes(t *testing.T) {
	p := X86_64()
	header := make([]byte, p.PltHdrSize)
	p.WritePltHeader(header, 0x4000, 0x3000, 0)
	if header[0] != 0xff || header[1] != 0x35 {
		t.Fatalf("header opcode = % x, want push *GOT[1] encoding", header[:2])
	}

	entry := make([]byte, p.PltSize)
	p.WritePltEntry(entry, 0x4000, 0x3000, 2)
	if entry[0] != 0xff || entry[1] != 0x25 {
		t.Fatalf("entry opcode = % x, want jmp *GOT[n] encoding", entry[:2])
	}
	if entry[7] != 2 {
		t.Errorf("push immediate = %d, want the PLT index (2)", entry[7])
	}
}

func TestX86PltGotEntry(t *testing.T) {
	p := X86_64()
	loc := make([]byte, p.PltGotSize)
	x86PltGotEntry(loc, 0x5000, 0x3000, 0)
	if loc[0] != 0xff || loc[1] != 0x25 {
		t.Fatalf("opcode = % x, want jmp *GOT encoding", loc[:2])
	}
}

func TestArm64PltHeaderAndEntryProduceNonZeroStubs(t *testing.T) {
	p := ARM64()
	header := make([]byte, p.PltHdrSize)
	p.WritePltHeader(header, 0x4000, 0x3000, 0)
	if allZero(header) {
		t.Fatalf("arm64 PLT header is all zero")
	}

	entry := make([]byte, p.PltSize)
	p.WritePltEntry(entry, 0x4000, 0x3000, 1)
	if allZero(entry) {
		t.Fatalf("arm64 PLT entry is all zero")
	}
}

func TestRiscvPltHeaderAndEntryProduceNonZeroStubs(t *testing.T) {
	p := Riscv64()
	header := make([]byte, p.PltHdrSize)
	p.WritePltHeader(header, 0x4000, 0x3000, 0)
	if allZero(header) {
		t.Fatalf("riscv64 PLT header is all zero")
	}

	entry := make([]byte, p.PltSize)
	p.WritePltEntry(entry, 0x4000, 0x3000, 1)
	if allZero(entry) {
		t.Fatalf("riscv64 PLT entry is all zero")
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
