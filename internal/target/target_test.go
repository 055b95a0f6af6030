package target

import "testing"

func TestTPAddrX86_64(t *testing.T) {
	p := X86_64()
	got := p.TPAddr(0x1000, 0x40, 16)
	want := uint64(0x1040)
	if got != want {
		t.Errorf("TPAddr() = %#x, want %#x", got, want)
	}
}

func TestTPAddrARM64(t *testing.T) {
	p := ARM64()
	got := p.TPAddr(0x1000, 0x40, 16)
	want := uint64(0xff0)
	if got != want {
		t.Errorf("TPAddr() = %#x, want %#x", got, want)
	}
}

func TestTPAddrRiscv64(t *testing.T) {
	p := Riscv64()
	got := p.TPAddr(0x1000, 0x40, 16)
	want := uint64(0x1000)
	if got != want {
		t.Errorf("TPAddr() = %#x, want %#x", got, want)
	}
}

func TestWordRoundTrip(t *testing.T) {
	p := X86_64()
	w := NewWord(p)
	buf := make([]byte, 8)
	w.Put(buf, 0x1122334455667788)
	if got := w.Get(buf); got != 0x1122334455667788 {
		t.Errorf("round trip = %#x", got)
	}
}

func TestParseMachine(t *testing.T) {
	cases := map[string]Machine{
		"amd64":   MachineX86_64,
		"x86_64":  MachineX86_64,
		"arm64":   MachineARM64,
		"aarch64": MachineARM64,
		"riscv64": MachineRiscv64,
	}
	for in, want := range cases {
		got, err := ParseMachine(in)
		if err != nil {
			t.Fatalf("ParseMachine(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMachine(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseMachine("sparc"); err == nil {
		t.Error("expected error for unsupported machine")
	}
}

func TestForMachine(t *testing.T) {
	for _, m := range []Machine{MachineX86_64, MachineARM64, MachineRiscv64} {
		p, err := ForMachine(m)
		if err != nil {
			t.Fatalf("ForMachine(%v): %v", m, err)
		}
		if p.Machine != m {
			t.Errorf("profile machine = %v, want %v", p.Machine, m)
		}
	}
	if _, err := ForMachine(MachineUnknown); err == nil {
		t.Error("expected error for MachineUnknown")
	}
}
