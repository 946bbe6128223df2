// Package encoding implements spec.md section 4.1: autodetecting the
// input's byte encoding from the BOM / leading bytes / text
// declaration, then converting the remaining byte stream to UTF-16
// code units for the tokenizer.
package encoding

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Consumer receives decoded UTF-16 code unit chunks, mirroring the
// Decoder -> Tokenizer edge of the pipeline in spec.md section 2.
type Consumer interface {
	Chars(units []uint16) error
}

// Decoder is the streaming byte-to-UTF16 stage of the pipeline. Call
// Feed repeatedly as bytes arrive, then Close once.
type Decoder struct {
	consumer Consumer
	isText   bool // true when decoding an external parsed entity's text declaration rather than the document entity's XML declaration

	sniffBuf []byte // buffered bytes pending autodetection (BOM/decl scan), nil once detected
	detected bool

	family  family
	enc     encoding.Encoding
	xform   transform.Transformer
	xml11   bool
	encName string

	pending []byte // undecoded trailing bytes carried across Feed calls (split multi-byte char)
	dst     [4096]byte
	closed  bool
}

// NewDecoder returns a Decoder for the document entity (isText=false,
// an XML declaration's standalone attribute and optional version are
// permitted) or an external parsed entity (isText=true, a text
// declaration's encoding attribute is mandatory and standalone is
// forbidden, per spec.md section 4.1).
func NewDecoder(consumer Consumer, isText bool) *Decoder {
	return &Decoder{consumer: consumer, isText: isText}
}

// XML11 reports whether the declaration named version="1.1". Only
// meaningful once at least one Feed call has completed detection.
func (d *Decoder) XML11() bool { return d.xml11 }

// DeclaredEncoding returns the encoding name named in the XML/text
// declaration, or "" if none was present.
func (d *Decoder) DeclaredEncoding() string { return d.encName }

// Feed appends raw bytes and transcodes whatever complete characters
// they yield to the consumer.
func (d *Decoder) Feed(b []byte) error {
	if d.closed {
		return fmt.Errorf("encoding: Feed called after Close")
	}
	if !d.detected {
		d.sniffBuf = append(d.sniffBuf, b...)
		ok, err := d.tryDetect()
		if err != nil {
			return err
		}
		if !ok {
			return nil // underflow: wait for more bytes
		}
		b = nil // sniffBuf already holds everything seen so far; transcode it below
	}
	return d.transcode(b)
}

// tryDetect runs the full autodetection algorithm (spec.md section
// 4.1) once enough bytes are buffered. Returns ok=false on underflow.
func (d *Decoder) tryDetect() (bool, error) {
	fam, bomLen, sniffOK := sniffBOMOrDecl(d.sniffBuf)
	if !sniffOK {
		return false, nil
	}

	declBytes := d.sniffBuf[bomLen:]
	decl, err := scanDeclaration(declBytes, fam, d.isText)
	if err == errUnderflow {
		// The declaration (or its "<?xml" opener) runs past the bytes
		// buffered so far: wait for more before deciding anything.
		return false, nil
	} else if err != nil {
		return false, err
	}

	if decl.present {
		d.xml11 = decl.version == "1.1"
	}

	resolved := fam
	declaredName := decl.encoding
	if declaredName != "" {
		declFam, mismatch := declaredFamily(declaredName)
		if mismatch && bomLen > 0 && !familyCompatible(declFam, fam) {
			return false, fmt.Errorf("encoding: declared encoding %q contradicts byte-order-mark-implied %s", declaredName, fam)
		}
		resolved = fam // the byte stream is still physically in the BOM/sniffed family; declaredName selects the logical encoding.Encoding used for transcoding below
	}

	d.family = resolved
	d.encName = declaredName
	enc, err := resolveEncoding(resolved, declaredName)
	if err != nil {
		return false, err
	}
	d.enc = enc
	d.xform = enc.NewDecoder()

	consumed := bomLen
	if decl.present {
		consumed += decl.consumed
	}
	rest := append([]byte(nil), d.sniffBuf[consumed:]...)
	d.sniffBuf = nil
	d.detected = true

	if err := d.transcode(rest); err != nil {
		return true, err
	}
	return true, nil
}

// declaredFamily maps a declared encoding name to the family it
// implies, and reports whether that family is meaningfully
// constrained (UTF-16/UTF-32 names imply a specific family; most
// 8-bit charset names don't constrain the physical byte family at
// all, since they're always single-byte-per-unit).
func declaredFamily(name string) (family, bool) {
	switch normalizeEncodingName(name) {
	case "utf-16le":
		return familyUTF16LE, true
	case "utf-16be":
		return familyUTF16BE, true
	case "utf-16":
		return familyUnknown, false // either BOM variant is acceptable
	case "utf-32le":
		return familyUTF32LE, true
	case "utf-32be":
		return familyUTF32BE, true
	case "utf-8":
		return familyUTF8, true
	default:
		return familyUnknown, false
	}
}

func familyCompatible(declared, sniffed family) bool {
	if declared == familyUnknown {
		return true
	}
	return declared == sniffed
}

func normalizeEncodingName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// resolveEncoding picks the x/text encoding.Encoding to transcode with:
// the declared name wins when present (resolved through ianaindex,
// which also covers legacy single-byte charmaps), otherwise the
// sniffed family's own Unicode transformation scheme is used.
func resolveEncoding(fam family, declaredName string) (encoding.Encoding, error) {
	if declaredName != "" {
		switch normalizeEncodingName(declaredName) {
		case "utf-8":
			return unicode.UTF8, nil
		case "utf-16le":
			return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
		case "utf-16be":
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
		case "utf-16":
			// Any BOM is already consumed; byte order is the sniffed family's.
			if fam == familyUTF16LE {
				return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
			}
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
		}
		if enc, err := ianaindex.IANA.Encoding(declaredName); err == nil && enc != nil {
			return enc, nil
		}
		// Fall through to charmap by common alias when ianaindex
		// doesn't recognize the exact declared spelling (e.g. a
		// document that writes encoding="latin1").
		if enc, ok := charmapAlias(declaredName); ok {
			return enc, nil
		}
		return nil, fmt.Errorf("encoding: unsupported declared encoding %q", declaredName)
	}

	switch fam {
	case familyUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case familyUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case familyUTF32LE, familyUTF32BE:
		// x/text has no built-in UTF-32 codec; UTF-32 documents are
		// rare enough in the wild that the pack carries no library
		// for them either, so they're handled by utf32Decoder below
		// (DESIGN.md records this as the one stdlib-only corner of
		// the decoder).
		return utf32Encoding{bigEndian: fam == familyUTF32BE}, nil
	default:
		return unicode.UTF8, nil
	}
}

func charmapAlias(name string) (encoding.Encoding, bool) {
	switch normalizeEncodingName(name) {
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, true
	case "windows-1252", "cp1252":
		return charmap.Windows1252, true
	default:
		return nil, false
	}
}

// transcode runs b (and any carried-over leftover bytes) through the
// resolved transform.Transformer, producing UTF-8 which is then
// widened to UTF-16 code units for the tokenizer (spec.md section 3:
// CharacterBuffer is "a random-access view over ... 16-bit code
// units").
func (d *Decoder) transcode(b []byte) error {
	src := append(d.pending, b...)
	d.pending = nil

	srcPos := 0
	for srcPos < len(src) || d.closed {
		nDst, nSrc, err := d.xform.Transform(d.dst[:], src[srcPos:], d.closed)
		if nDst > 0 {
			if emitErr := d.emitUTF8(d.dst[:nDst]); emitErr != nil {
				return emitErr
			}
		}
		srcPos += nSrc
		if err == transform.ErrShortDst {
			continue
		}
		if err == transform.ErrShortSrc {
			if d.closed {
				return fmt.Errorf("encoding: truncated multi-byte character at end of input")
			}
			d.pending = append(d.pending, src[srcPos:]...)
			return nil
		}
		if err != nil {
			return fmt.Errorf("encoding: transcode error: %w", err)
		}
		if d.closed {
			break
		}
	}
	return nil
}

// emitUTF8 widens well-formed UTF-8 bytes to UTF-16 code units and
// forwards them to the consumer.
func (d *Decoder) emitUTF8(b []byte) error {
	runes := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return fmt.Errorf("encoding: invalid UTF-8 produced by transcoder")
		}
		runes = append(runes, r)
		i += size
	}
	units := utf16.Encode(runes)
	return d.consumer.Chars(units)
}

// Close flushes any buffered bytes. It fails if the byte stream ends
// mid-codepoint or before autodetection ever completed.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	if !d.detected {
		if len(d.sniffBuf) == 0 {
			d.closed = true
			return nil
		}
		return fmt.Errorf("encoding: input ended before encoding could be detected")
	}
	d.closed = true
	if len(d.pending) > 0 {
		return fmt.Errorf("encoding: truncated multi-byte character at end of input")
	}
	return d.transcode(nil)
}
