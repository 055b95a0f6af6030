// Completion: 100% - x86-64 PLT stub emitter complete
package target

import "encoding/binary"

// x86PltHeader writes the standard lazy-binding PLT0 stub:
//
//	push  *GOT[1]
//	jmp   *GOT[2]
//	nop; nop; nop; nop
func x86PltHeader(loc []byte, gotPltAddr, pltAddr uint64, _ int) {
	copy(loc, []byte{
		0xff, 0x35, 0, 0, 0, 0, // push *GOT[1](%rip)
		0xff, 0x25, 0, 0, 0, 0, // jmp  *GOT[2](%rip)
		0x0f, 0x1f, 0x40, 0x00, // nop
	})
	rip := pltAddr + 6
	binary.LittleEndian.PutUint32(loc[2:6], uint32(gotPltAddr+8-rip))
	rip = pltAddr + 12
	binary.LittleEndian.PutUint32(loc[8:12], uint32(gotPltAddr+16-rip))
}

// x86PltEntry writes a single lazy-binding-capable stub:
//
//	jmp  *GOT[n](%rip)
//	push $n-3
//	jmp  PLT0
func x86PltEntry(loc []byte, gotPltAddr, pltAddr uint64, index int) {
	copy(loc, []byte{
		0xff, 0x25, 0, 0, 0, 0, // jmp *GOT[n](%rip)
		0x68, 0, 0, 0, 0, // push $index
		0xe9, 0, 0, 0, 0, // jmp PLT0
	})
	entryAddr := pltAddr + uint64(index)*16
	rip := entryAddr + 6
	binary.LittleEndian.PutUint32(loc[2:6], uint32(gotPltAddr+uint64(index+3)*8-rip))
	binary.LittleEndian.PutUint32(loc[7:11], uint32(index))
	rip = entryAddr + 16
	binary.LittleEndian.PutUint32(loc[12:16], uint32(pltAddr-rip))
}

// x86PltGotEntry writes a PLT stub whose companion slot already lives in
// the regular .got (not .got.plt) — used for symbols that are also
// referenced via a normal GOT entry.
func x86PltGotEntry(loc []byte, gotAddr, pltAddr uint64, _ int) {
	copy(loc, []byte{
		0xff, 0x25, 0, 0, 0, 0, // jmp *GOT(%rip)
		0x66, 0x90, // nop padding
	})
	rip := pltAddr + 6
	binary.LittleEndian.PutUint32(loc[2:6], uint32(gotAddr-rip))
}
