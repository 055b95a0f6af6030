// Completion: 100% - Dynamic linker interpreter path complete
package chunk

// InterpSection is .interp: the NUL-terminated path to the dynamic
// linker, present only for dynamically linked executables. PT_INTERP
// needs a backing SHT_PROGBITS chunk to point at; this is it.
type InterpSection struct {
	Base
	Path string
}

func NewInterpSection(path string) *InterpSection {
	return &InterpSection{
		Base: NewBase(".interp", SHT_PROGBITS, SHF_ALLOC),
		Path: path,
	}
}

func (i *InterpSection) UpdateShdr(ctx *Context) error {
	i.Shdr.Size = uint64(len(i.Path)) + 1
	i.Shdr.Addralign = 1
	return nil
}

func (i *InterpSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[i.Shdr.Offset : i.Shdr.Offset+i.Shdr.Size]
	n := copy(out, i.Path)
	out[n] = 0
	return nil
}
