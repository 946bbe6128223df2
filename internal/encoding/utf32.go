package encoding

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// utf32Encoding is a minimal encoding.Encoding for UTF-32, which
// golang.org/x/text does not provide a codec for (its unicode package
// stops at UTF-8/UTF-16). UTF-32 documents are rare enough that no pack
// repo carries a UTF-32 codec either; this hand-rolled transformer is
// the one stdlib-only corner of the decoder, recorded in DESIGN.md.
type utf32Encoding struct {
	bigEndian bool
}

func (u utf32Encoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: &utf32Decoder{bigEndian: u.bigEndian}}
}

func (u utf32Encoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: &utf32Encoder{bigEndian: u.bigEndian}}
}

type utf32Decoder struct {
	bigEndian bool
}

func (t *utf32Decoder) Reset() {}

func (t *utf32Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for len(src)-nSrc >= 4 {
		b := src[nSrc : nSrc+4]
		var r rune
		if t.bigEndian {
			r = rune(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
		} else {
			r = rune(uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]))
		}
		if r < 0 || r > 0x10FFFF {
			return nDst, nSrc, transform.ErrEndOfSpan
		}
		n := runeLen(r)
		if len(dst)-nDst < n {
			return nDst, nSrc, transform.ErrShortDst
		}
		encodeRune(dst[nDst:], r)
		nDst += n
		nSrc += 4
	}
	if len(src)-nSrc > 0 && atEOF {
		return nDst, nSrc, transform.ErrShortSrc
	}
	if len(src)-nSrc > 0 {
		return nDst, nSrc, transform.ErrShortSrc
	}
	return nDst, nSrc, nil
}

type utf32Encoder struct {
	bigEndian bool
}

func (t *utf32Encoder) Reset() {}

func (t *utf32Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	// Only the decoder direction is exercised by this parser (bytes in,
	// never UTF-32 out), but encoding.Encoding requires both methods.
	return 0, 0, nil
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

func encodeRune(dst []byte, r rune) {
	switch {
	case r < 0x80:
		dst[0] = byte(r)
	case r < 0x800:
		dst[0] = 0xC0 | byte(r>>6)
		dst[1] = 0x80 | byte(r&0x3F)
	case r < 0x10000:
		dst[0] = 0xE0 | byte(r>>12)
		dst[1] = 0x80 | byte((r>>6)&0x3F)
		dst[2] = 0x80 | byte(r&0x3F)
	default:
		dst[0] = 0xF0 | byte(r>>18)
		dst[1] = 0x80 | byte((r>>12)&0x3F)
		dst[2] = 0x80 | byte((r>>6)&0x3F)
		dst[3] = 0x80 | byte(r&0x3F)
	}
}
