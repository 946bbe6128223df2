package encoding

// family is the byte-pattern-detected encoding family from spec.md
// section 4.1 step 1, before any text/XML declaration has been
// consulted.
type family int

const (
	familyUnknown family = iota
	familyUTF8
	familyUTF16LE
	familyUTF16BE
	familyUTF32LE
	familyUTF32BE
)

func (f family) String() string {
	switch f {
	case familyUTF8:
		return "UTF-8"
	case familyUTF16LE:
		return "UTF-16LE"
	case familyUTF16BE:
		return "UTF-16BE"
	case familyUTF32LE:
		return "UTF-32LE"
	case familyUTF32BE:
		return "UTF-32BE"
	default:
		return "unknown"
	}
}

// unitWidth is the number of bytes per fixed-width code unit the
// family's ASCII-subset declaration scanner must step by: 1 for UTF-8,
// 2 for UTF-16 variants, 4 for UTF-32 variants.
func (f family) unitWidth() int {
	switch f {
	case familyUTF16LE, familyUTF16BE:
		return 2
	case familyUTF32LE, familyUTF32BE:
		return 4
	default:
		return 1
	}
}

// little reports whether the family is a little-endian multi-byte
// encoding (affects which byte of a fixed-width unit carries the
// ASCII-range value during declaration scanning).
func (f family) little() bool {
	return f == familyUTF16LE || f == familyUTF32LE
}

// sniffBOMOrDecl inspects the leading bytes (spec.md section 4.1 step
// 1) and returns the detected family plus the BOM length to skip (0 if
// no BOM was present, in which case the leading 4-byte pattern itself
// determined the family tentatively).
//
// Returns ok=false if fewer than 4 bytes are available and no BOM could
// be matched from a shorter prefix either (UTF-8 and UTF-16 BOMs are
// distinguishable from their first 2-3 bytes, so a short prefix can
// still resolve those).
func sniffBOMOrDecl(b []byte) (f family, bomLen int, ok bool) {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return familyUTF8, 3, true
	case len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0xFE && b[3] == 0xFF:
		return familyUTF32BE, 4, true
	case len(b) >= 4 && b[0] == 0xFF && b[1] == 0xFE && b[2] == 0x00 && b[3] == 0x00:
		return familyUTF32LE, 4, true
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return familyUTF16BE, 2, true
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return familyUTF16LE, 2, true
	}
	if len(b) < 4 {
		return familyUnknown, 0, false
	}
	switch {
	case b[0] == 0x3C && b[1] == 0x3F && b[2] == 0x78 && b[3] == 0x6D:
		return familyUTF8, 0, true
	case b[0] == 0x00 && b[1] == 0x3C && b[2] == 0x00 && b[3] == 0x3F:
		return familyUTF16BE, 0, true
	case b[0] == 0x3C && b[1] == 0x00 && b[2] == 0x3F && b[3] == 0x00:
		return familyUTF16LE, 0, true
	default:
		// No recognizable signature: default to UTF-8 tentatively
		// (spec.md section 4.1 step 1, last clause).
		return familyUTF8, 0, true
	}
}
