// Completion: 100% - RISC-V PLT stub emitter complete
package target

import "encoding/binary"

// riscvPltHeader writes the standard rv64 PLT0 stub using AUIPC/LD
// against .got.plt[2]/[3].
func riscvPltHeader(loc []byte, gotPltAddr, pltAddr uint64, _ int) {
	insns := []uint32{
		0x00000397, // auipc t2, %pcrel_hi(GOT[2])
		0x41c30333, // sub   t1, t1, t3     (lazy-binding trampoline arithmetic)
		0x0003be03, // ld    t3, %pcrel_lo(GOT[2])(t2)
		0xfd430313, // addi  t1, t1, -44
		0x00038293, // addi  t0, t2, %pcrel_lo(GOT[2])
		0x00135313, // srli  t1, t1, 1
		0x0082b283, // ld    t0, 8(t0)
		0x000e0067, // jr    t3
	}
	delta := int64(gotPltAddr + 16 - pltAddr)
	hi20 := uint32((delta + 0x800) >> 12)
	lo12 := uint32(delta) & 0xfff
	insns[0] = insns[0]&0xfff | hi20<<12
	insns[2] = insns[2]&0xfffff | lo12<<20
	insns[4] = insns[4]&0xfffff | lo12<<20
	for i, insn := range insns {
		binary.LittleEndian.PutUint32(loc[i*4:], insn)
	}
}

// riscvPltEntry writes an AUIPC/LD/JALR stub referencing .got.plt[n].
func riscvPltEntry(loc []byte, gotPltAddr, pltAddr uint64, index int) {
	insns := []uint32{
		0x00000e17, // auipc t3, %pcrel_hi(GOT[n])
		0x000e3e03, // ld    t3, %pcrel_lo(GOT[n])(t3)
		0x000e0367, // jalr  t1, t3
		0x00000013, // nop
	}
	for i, insn := range insns {
		binary.LittleEndian.PutUint32(loc[i*4:], insn)
	}
	entryAddr := pltAddr + uint64(index)*16
	slot := gotPltAddr + uint64(index+3)*8
	patchAuipc(loc, entryAddr, slot)
}

func riscvPltGotEntry(loc []byte, gotAddr, pltAddr uint64, index int) {
	riscvPltEntry(loc, gotAddr-uint64(index+3)*8, pltAddr, index)
}

// patchAuipc fills in the hi20/lo12 immediate pair for an AUIPC+load
// sequence at loc[0:8] targeting `target` from pc.
func patchAuipc(loc []byte, pc, target uint64) {
	delta := int64(target - pc)
	hi20 := uint32((delta + 0x800) >> 12)
	lo12 := uint32(delta) & 0xfff

	auipc := binary.LittleEndian.Uint32(loc[0:4])
	auipc = (auipc & 0xfff) | (hi20 << 12)
	binary.LittleEndian.PutUint32(loc[0:4], auipc)

	ld := binary.LittleEndian.Uint32(loc[4:8])
	ld = (ld & 0xfffff) | (lo12 << 20)
	binary.LittleEndian.PutUint32(loc[4:8], ld)
}
