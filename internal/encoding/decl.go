package encoding

import (
	"errors"
	"fmt"
	"regexp"
)

// errUnderflow signals that the declaration parser needs more bytes
// than are currently buffered; it is not a parse failure (spec.md
// section 4.1: "either succeeds ..., fails ..., or underflows").
var errUnderflow = errors.New("encoding: declaration scan needs more input")

// declaration is the result of scanning an optional XML or text
// declaration directly out of the raw byte buffer (spec.md section
// 4.1 step 2: "never retains characters").
type declaration struct {
	version    string
	encoding   string
	standalone string
	consumed   int // bytes consumed, including the trailing "?>"
	present    bool
}

var versionRE = regexp.MustCompile(`^1\.[0-9]+$`)

// scanDeclaration reads an optional "<?xml ... ?>" declaration from b,
// treating it as 7-bit ASCII widened to f's fixed unit width (spec.md
// section 4.1 step 2). It returns declaration{present: false} (not an
// error) if b does not begin with the declaration's opening sequence —
// a missing declaration is well-formed for any entity except the
// document entity's version attribute being mandatory.
//
// Buffer is positioned logically at b[declaration.consumed:] on
// success; on underflow or failure the caller must not consume
// anything (spec.md section 4.1: "fails (buffer restored)").
func scanDeclaration(b []byte, f family, isTextDecl bool) (declaration, error) {
	s := newASCIIUnitScanner(b, f)

	if ok, err := s.matchLiteral("<?xml"); err != nil {
		return declaration{}, err
	} else if !ok {
		return declaration{present: false}, nil
	}

	d := declaration{present: true}

	if err := s.skipRequiredWhitespace(); err != nil {
		return declaration{}, err
	}

	if err := s.matchKeyword("version"); err != nil {
		return declaration{}, err
	}
	ver, err := s.matchAttrValue()
	if err != nil {
		return declaration{}, err
	}
	if !versionRE.MatchString(ver) {
		return declaration{}, fmt.Errorf("encoding: invalid XML version %q", ver)
	}
	d.version = ver

	sawWS, err := s.skipOptionalWhitespace()
	if err != nil {
		return declaration{}, err
	}

	if sawWS && s.peekKeyword("encoding") {
		if err := s.matchKeyword("encoding"); err != nil {
			return declaration{}, err
		}
		enc, err := s.matchAttrValue()
		if err != nil {
			return declaration{}, err
		}
		d.encoding = enc
		sawWS, err = s.skipOptionalWhitespace()
		if err != nil {
			return declaration{}, err
		}
	} else if isTextDecl {
		return declaration{}, errors.New("encoding: text declaration requires an encoding attribute")
	}

	if sawWS && s.peekKeyword("standalone") {
		if isTextDecl {
			return declaration{}, errors.New("encoding: standalone is forbidden in a text declaration")
		}
		if err := s.matchKeyword("standalone"); err != nil {
			return declaration{}, err
		}
		sa, err := s.matchAttrValue()
		if err != nil {
			return declaration{}, err
		}
		if sa != "yes" && sa != "no" {
			return declaration{}, fmt.Errorf("encoding: invalid standalone value %q", sa)
		}
		d.standalone = sa
		if _, err := s.skipOptionalWhitespace(); err != nil {
			return declaration{}, err
		}
	}

	if err := s.matchLiteralRequired("?>"); err != nil {
		return declaration{}, err
	}

	d.consumed = s.bytePos
	return d, nil
}

// asciiUnitScanner reads 7-bit ASCII characters out of a byte buffer
// whose code units are f.unitWidth() bytes wide, without constructing
// a decoder (spec.md section 4.1 step 2).
type asciiUnitScanner struct {
	b       []byte
	f       family
	bytePos int
}

func newASCIIUnitScanner(b []byte, f family) *asciiUnitScanner {
	return &asciiUnitScanner{b: b, f: f}
}

// nextASCII reads one ASCII character at the current position,
// returning errUnderflow if not enough bytes remain.
func (s *asciiUnitScanner) nextASCII() (byte, error) {
	w := s.f.unitWidth()
	if s.bytePos+w > len(s.b) {
		return 0, errUnderflow
	}
	unit := s.b[s.bytePos : s.bytePos+w]
	var c byte
	var zeros []byte
	if w == 1 {
		c = unit[0]
	} else if s.f.little() {
		c = unit[0]
		zeros = unit[1:]
	} else {
		c = unit[w-1]
		zeros = unit[:w-1]
	}
	for _, z := range zeros {
		if z != 0 {
			return 0, fmt.Errorf("encoding: non-ASCII byte in declaration under %s", s.f)
		}
	}
	if c > 0x7F {
		return 0, fmt.Errorf("encoding: non-ASCII byte 0x%02x in declaration", c)
	}
	s.bytePos += w
	return c, nil
}

func (s *asciiUnitScanner) peekASCII() (byte, bool, error) {
	save := s.bytePos
	c, err := s.nextASCII()
	if err == errUnderflow {
		return 0, false, err
	}
	if err != nil {
		return 0, false, err
	}
	s.bytePos = save
	return c, true, nil
}

func (s *asciiUnitScanner) matchLiteral(lit string) (bool, error) {
	save := s.bytePos
	for i := 0; i < len(lit); i++ {
		c, err := s.nextASCII()
		if err == errUnderflow {
			s.bytePos = save
			return false, errUnderflow
		}
		if err != nil {
			s.bytePos = save
			return false, nil
		}
		if c != lit[i] {
			s.bytePos = save
			return false, nil
		}
	}
	return true, nil
}

func (s *asciiUnitScanner) matchLiteralRequired(lit string) error {
	ok, err := s.matchLiteral(lit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("encoding: expected %q in declaration", lit)
	}
	return nil
}

func isDeclWS(c byte) bool {
	return c == 0x20 || c == 0x9 || c == 0xD || c == 0xA
}

func (s *asciiUnitScanner) skipOptionalWhitespace() (bool, error) {
	var any bool
	for {
		c, ok, err := s.peekASCII()
		if err != nil {
			return any, err
		}
		if !ok || !isDeclWS(c) {
			return any, nil
		}
		s.nextASCII()
		any = true
	}
}

func (s *asciiUnitScanner) skipRequiredWhitespace() error {
	any, err := s.skipOptionalWhitespace()
	if err != nil {
		return err
	}
	if !any {
		return errors.New("encoding: expected whitespace in declaration")
	}
	return nil
}

func (s *asciiUnitScanner) peekKeyword(kw string) bool {
	save := s.bytePos
	ok, err := s.matchLiteral(kw)
	s.bytePos = save
	return err == nil && ok
}

func (s *asciiUnitScanner) matchKeyword(kw string) error {
	if err := s.matchLiteralRequired(kw); err != nil {
		return err
	}
	if _, err := s.skipOptionalWhitespace(); err != nil {
		return err
	}
	return s.matchLiteralRequired("=")
}

// matchAttrValue reads ='value' or ="value" (the quote and whitespace
// before the value), returning the unquoted value.
func (s *asciiUnitScanner) matchAttrValue() (string, error) {
	if _, err := s.skipOptionalWhitespace(); err != nil {
		return "", err
	}
	quote, err := s.nextASCII()
	if err != nil {
		return "", err
	}
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("encoding: expected quote, got %q", quote)
	}
	var out []byte
	for {
		c, err := s.nextASCII()
		if err != nil {
			return "", err
		}
		if c == quote {
			return string(out), nil
		}
		out = append(out, c)
	}
}
