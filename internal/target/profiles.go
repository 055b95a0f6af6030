// Completion: 100% - Per-architecture profile constructors complete
package target

import "encoding/binary"

// x86-64 relocation numbers (System V x86-64 psABI).
const (
	r_x86_64_none      = 0
	r_x86_64_64        = 1
	r_x86_64_copy      = 5
	r_x86_64_glob_dat  = 6
	r_x86_64_jump_slot = 7
	r_x86_64_relative  = 8
	r_x86_64_dtpmod64  = 16
	r_x86_64_dtpoff64  = 17
	r_x86_64_tpoff64   = 18
	r_x86_64_tlsdesc   = 36
	r_x86_64_irelative = 37
)

// AArch64 relocation numbers (ELF for the ARM 64-bit Architecture).
const (
	r_aarch64_none       = 0
	r_aarch64_abs64      = 257
	r_aarch64_copy       = 1024
	r_aarch64_glob_dat   = 1025
	r_aarch64_jump_slot  = 1026
	r_aarch64_relative   = 1027
	r_aarch64_tls_dtpmod = 1028
	r_aarch64_tls_dtpoff = 1029
	r_aarch64_tls_tpoff  = 1030
	r_aarch64_tlsdesc    = 1031
	r_aarch64_irelative  = 1032
)

// RISC-V (rv64) relocation numbers.
const (
	r_riscv_none      = 0
	r_riscv_64        = 2
	r_riscv_relative  = 3
	r_riscv_copy      = 4
	r_riscv_jump_slot = 5
	r_riscv_tls_dtpmod = 7
	r_riscv_tls_dtpoff = 8
	r_riscv_tls_tprel  = 9
	r_riscv_irelative  = 58
)

// X86_64 returns the profile for the x86-64 System V psABI.
func X86_64() *Profile {
	p := &Profile{
		Machine:         MachineX86_64,
		Is64:            true,
		LittleEndian:    true,
		IsRela:          true,
		NeedsThunk:      false,
		SupportsTLSDesc: true,
		EMachine:        62, // EM_X86_64
		WordSize:        8,
		PltHdrSize:      16,
		PltSize:         16,
		PltGotSize:      8,
		TLSDTVOffset:    0,
		Reloc: RelocNumbers{
			None:      r_x86_64_none,
			Relative:  r_x86_64_relative,
			GlobDat:   r_x86_64_glob_dat,
			JumpSlot:  r_x86_64_jump_slot,
			IRelative: r_x86_64_irelative,
			Copy:      r_x86_64_copy,
			TPOff:     r_x86_64_tpoff64,
			DTPMod:    r_x86_64_dtpmod64,
			DTPOff:    r_x86_64_dtpoff64,
			TLSDesc:   r_x86_64_tlsdesc,
			Abs:       r_x86_64_64,
		},
	}
	p.ApplyReloc = func(relType uint32, loc []byte, val uint64) {
		switch relType {
		case r_x86_64_64, r_x86_64_relative, r_x86_64_glob_dat, r_x86_64_irelative:
			binary.LittleEndian.PutUint64(loc, val)
		default:
			binary.LittleEndian.PutUint64(loc, val)
		}
	}
	p.WritePltHeader = x86PltHeader
	p.WritePltEntry = x86PltEntry
	p.WritePltGotEntry = x86PltGotEntry
	return p
}

// ARM64 returns the profile for the AArch64 ELF psABI.
func ARM64() *Profile {
	p := &Profile{
		Machine:         MachineARM64,
		Is64:            true,
		LittleEndian:    true,
		IsRela:          true,
		NeedsThunk:      true, // B/BL range is +/-128MiB
		SupportsTLSDesc: true,
		EMachine:        183, // EM_AARCH64
		WordSize:        8,
		PltHdrSize:      32,
		PltSize:         16,
		PltGotSize:      16,
		TLSDTVOffset:    0,
		Reloc: RelocNumbers{
			None:      r_aarch64_none,
			Relative:  r_aarch64_relative,
			GlobDat:   r_aarch64_glob_dat,
			JumpSlot:  r_aarch64_jump_slot,
			IRelative: r_aarch64_irelative,
			Copy:      r_aarch64_copy,
			TPOff:     r_aarch64_tls_tpoff,
			DTPMod:    r_aarch64_tls_dtpmod,
			DTPOff:    r_aarch64_tls_dtpoff,
			TLSDesc:   r_aarch64_tlsdesc,
			Abs:       r_aarch64_abs64,
		},
	}
	p.ApplyReloc = func(relType uint32, loc []byte, val uint64) {
		binary.LittleEndian.PutUint64(loc, val)
	}
	p.WritePltHeader = arm64PltHeader
	p.WritePltEntry = arm64PltEntry
	p.WritePltGotEntry = arm64PltGotEntry
	return p
}

// Riscv64 returns the profile for the RV64 ELF psABI.
func Riscv64() *Profile {
	p := &Profile{
		Machine:         MachineRiscv64,
		Is64:            true,
		LittleEndian:    true,
		IsRela:          true,
		NeedsThunk:      true, // JAL range is +/-1MiB
		SupportsTLSDesc: false,
		EMachine:        243, // EM_RISCV
		WordSize:        8,
		PltHdrSize:      32,
		PltSize:         16,
		PltGotSize:      0,
		TLSDTVOffset:    0x800,
		Reloc: RelocNumbers{
			None:      r_riscv_none,
			Relative:  r_riscv_relative,
			GlobDat:   r_riscv_64,
			JumpSlot:  r_riscv_jump_slot,
			IRelative: r_riscv_irelative,
			Copy:      r_riscv_copy,
			TPOff:     r_riscv_tls_tprel,
			DTPMod:    r_riscv_tls_dtpmod,
			DTPOff:    r_riscv_tls_dtpoff,
			Abs:       r_riscv_64,
		},
	}
	p.ApplyReloc = func(relType uint32, loc []byte, val uint64) {
		binary.LittleEndian.PutUint64(loc, val)
	}
	p.WritePltHeader = riscvPltHeader
	p.WritePltEntry = riscvPltEntry
	p.WritePltGotEntry = riscvPltGotEntry
	return p
}

// ForMachine returns the profile for a named machine.
func ForMachine(m Machine) (*Profile, error) {
	switch m {
	case MachineX86_64:
		return X86_64(), nil
	case MachineARM64:
		return ARM64(), nil
	case MachineRiscv64:
		return Riscv64(), nil
	default:
		return nil, &UnsupportedMachineError{Machine: m}
	}
}

// UnsupportedMachineError is returned by ForMachine for an unrecognized
// Machine value.
type UnsupportedMachineError struct {
	Machine Machine
}

func (e *UnsupportedMachineError) Error() string {
	return "unsupported target machine: " + e.Machine.String()
}
