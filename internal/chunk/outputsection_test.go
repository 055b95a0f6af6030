package chunk

import "testing"

func TestOutputSectionUpdateShdrAndCopyBuf(t *testing.T) {
	ctx := newTestCtx()
	o := newOutputSection(".text", SHT_PROGBITS, SHF_ALLOC|SHF_EXECINSTR)
	o.Shdr.Addr = 0x1000

	o.AddMember(&InputSection{Name: "a.o:.text", Data: []byte{0x90, 0x90}, Offset: 0})
	o.AddMember(&InputSection{Name: "b.o:.text", Data: []byte{0xc3}, Offset: 8})

	if err := o.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if o.Shdr.Size != 9 {
		t.Fatalf("Shdr.Size = %d, want 9 (last member's offset+len)", o.Shdr.Size)
	}

	buf := make([]byte, o.Shdr.Offset+o.Shdr.Size)
	if err := o.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if buf[0] != 0x90 || buf[1] != 0x90 {
		t.Errorf("first member bytes = %v, want [0x90 0x90]", buf[0:2])
	}
	if buf[8] != 0xc3 {
		t.Errorf("second member byte = %#x, want 0xc3", buf[8])
	}
	for i := 2; i < 8; i++ {
		if buf[i] != 0 {
			t.Errorf("gap byte %d = %#x, want 0 padding", i, buf[i])
		}
	}
}

func TestOutputSectionNobitsSkipsCopy(t *testing.T) {
	ctx := newTestCtx()
	o := newOutputSection(".bss", SHT_NOBITS, SHF_ALLOC|SHF_WRITE)
	o.AddMember(&InputSection{Name: "a.o:.bss", Data: nil, Offset: 0})
	o.Shdr.Size = 0x10

	buf := make([]byte, 0x10)
	if err := o.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
}

func TestOutputSectionRelrOffsetsFiltersExecAndUnaligned(t *testing.T) {
	ctx := newTestCtx()

	exec := newOutputSection(".text", SHT_PROGBITS, SHF_ALLOC|SHF_EXECINSTR)
	if got := exec.RelrOffsets(ctx); got != nil {
		t.Errorf("RelrOffsets on an executable section = %v, want nil", got)
	}

	data := newOutputSection(".data.rel.ro", SHT_PROGBITS, SHF_ALLOC|SHF_WRITE)
	data.Shdr.Addr = 0x2000
	data.Shdr.Addralign = 8
	sym := &Symbol{Name: "target", Kind: SymRegular}
	data.AddMember(&InputSection{
		Addralign: 8,
		Offset:    0,
		Relocs: []InputReloc{
			{Offset: 0, Type: ctx.Profile.Reloc.Abs, Sym: sym},
		},
	})
	got := data.RelrOffsets(ctx)
	if len(got) != 1 || got[0] != 0x2000 {
		t.Errorf("RelrOffsets = %v, want [0x2000]", got)
	}
}
