// Completion: 100% - AArch64 PLT stub emitter complete
package target

import "encoding/binary"

// arm64PltHeader writes the standard AArch64 PLT0 stub using
// ADRP/LDR/ADD/BR against .got.plt[1]/[2].
func arm64PltHeader(loc []byte, gotPltAddr, pltAddr uint64, _ int) {
	insns := []uint32{
		0xa9bf7bf0, // stp x16, x30, [sp, #-16]!
		0x90000010, // adrp x16, GOT[2]
		0xf9400211, // ldr  x17, [x16, GOT[2] lo12]
		0x91000210, // add  x16, x16, GOT[2] lo12
		0xd61f0220, // br   x17
		0xd503201f, // nop
		0xd503201f, // nop
		0xd503201f, // nop
	}
	for i, insn := range insns {
		binary.LittleEndian.PutUint32(loc[i*4:], insn)
	}
	patchAdrpLdrAdd(loc, pltAddr, gotPltAddr+16)
}

// arm64PltEntry writes one ADRP/LDR/BR stub referencing .got.plt[n].
func arm64PltEntry(loc []byte, gotPltAddr, pltAddr uint64, index int) {
	insns := []uint32{
		0x90000010, // adrp x16, GOT[n]
		0xf9400211, // ldr  x17, [x16, GOT[n] lo12]
		0x91000210, // add  x16, x16, GOT[n] lo12
		0xd61f0220, // br   x17
	}
	for i, insn := range insns {
		binary.LittleEndian.PutUint32(loc[i*4:], insn)
	}
	entryAddr := pltAddr + uint64(index)*16
	slot := gotPltAddr + uint64(index+3)*8
	patchAdrpLdrAdd(loc, entryAddr, slot)
}

func arm64PltGotEntry(loc []byte, gotAddr, pltAddr uint64, index int) {
	arm64PltEntry(loc, gotAddr-uint64(index+3)*8, pltAddr, index)
}

// patchAdrpLdrAdd fills in the ADRP page-relative immediate and the
// LDR/ADD low-12-bit immediates for a 4-instruction ADRP-based stub at
// loc[0:16], referencing the page/offset of target from pc.
func patchAdrpLdrAdd(loc []byte, pc, target uint64) {
	pcPage := pc &^ 0xfff
	targetPage := target &^ 0xfff
	pageDelta := int64(targetPage-pcPage) >> 12
	adrp := binary.LittleEndian.Uint32(loc[0:4])
	immlo := uint32(pageDelta) & 3
	immhi := (uint32(pageDelta) >> 2) & 0x7ffff
	adrp = (adrp &^ (0x60000000 | (0x7ffff << 5))) | (immlo << 29) | (immhi << 5)
	binary.LittleEndian.PutUint32(loc[0:4], adrp)

	lo12 := uint32(target & 0xfff)
	ldr := binary.LittleEndian.Uint32(loc[4:8])
	ldr = (ldr &^ (0xfff << 10)) | ((lo12 >> 3) << 10)
	binary.LittleEndian.PutUint32(loc[4:8], ldr)

	add := binary.LittleEndian.Uint32(loc[8:12])
	add = (add &^ (0xfff << 10)) | (lo12 << 10)
	binary.LittleEndian.PutUint32(loc[8:12], add)
}
