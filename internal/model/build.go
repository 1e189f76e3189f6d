// Package model defines the value types of the firmware build pipeline.
package model

import (
	"fmt"
	"path/filepath"
)

// Path represents a file system path.
type Path string

// EntryPoint identifies one independently linked firmware program. It is the
// stem of a source file directly under the entry-point directory and doubles
// as the ELF file name in the build output directory.
type EntryPoint string

// Variant selects the compile-time board/instrumentation combination. Exactly
// one variant is active per compiler invocation; variants are never mixed.
type Variant int

const (
	// VariantDefault targets the qemu virt machine.
	VariantDefault Variant = iota
	// VariantBoard targets the physical LRV board.
	VariantBoard
	// VariantBoardTraced targets the LRV board with execution tracing
	// compiled in.
	VariantBoardTraced
)

// variantNames is the closed mode table. Adding a board/trace combination
// means adding a Variant constant and a row here.
var variantNames = map[Variant]string{
	VariantDefault:     "qemu",
	VariantBoard:       "lrv",
	VariantBoardTraced: "lrv_trace",
}

func (v Variant) String() string {
	name, ok := variantNames[v]
	if !ok {
		return fmt.Sprintf("variant(%d)", int(v))
	}

	return name
}

// Flags returns the ordered feature-flag set passed to the compiler for this
// variant.
func (v Variant) Flags() []string {
	switch v {
	case VariantDefault:
		return []string{"board_qemu"}
	case VariantBoard:
		return []string{"board_lrv"}
	case VariantBoardTraced:
		return []string{"board_lrv", "trace"}
	}

	return nil
}

// Disassemble reports whether a disassembly listing is derived for this
// variant. The traced variant never gets one.
func (v Variant) Disassemble() bool {
	return v == VariantDefault || v == VariantBoard
}

// ParseVariant resolves a mode name to its Variant. An unrecognized name is a
// configuration error and must be surfaced before any tool is invoked.
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}

	return 0, fmt.Errorf("unknown variant %q (expected one of qemu, lrv, lrv_trace)", name)
}

// ArtifactKind distinguishes the three per-entry-point build outputs.
type ArtifactKind int

const (
	// KindELF is the linked, symbol-carrying executable image.
	KindELF ArtifactKind = iota
	// KindBinary is the stripped flat machine-code image.
	KindBinary
	// KindListing is the disassembly listing with interleaved source.
	KindListing
)

// Suffix returns the file-name suffix appended to the entry-point name for
// this artifact kind.
func (k ArtifactKind) Suffix() string {
	switch k {
	case KindBinary:
		return ".bin"
	case KindListing:
		return ".asm"
	default:
		return ""
	}
}

func (k ArtifactKind) String() string {
	switch k {
	case KindELF:
		return "elf"
	case KindBinary:
		return "bin"
	case KindListing:
		return "asm"
	default:
		return "unknown"
	}
}

// ArtifactPath returns the path of the artifact of the given kind for an
// entry point inside the build output directory. Suffix concatenation is the
// only naming scheme supported.
func ArtifactPath(outputDir Path, entry EntryPoint, kind ArtifactKind) Path {
	return Path(filepath.Join(string(outputDir), string(entry)+kind.Suffix()))
}
