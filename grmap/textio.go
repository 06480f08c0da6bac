package grmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/googlearchive/graphd/guid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// The text form of a map is line-structured and tolerant of whitespace
// and hex case:
//
//	grmap {
//	    1234 {
//	        0-80: 5678 +100
//	        80-100: abcd -40
//	    }
//	}
//
// All numbers are lowercase hex with no prefix; offsets carry an
// explicit sign.

// WriteTo streams the text form of the map to w.  It implements
// io.WriterTo.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	var total int64
	put := func(format string, args ...interface{}) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}
	if err := put("grmap {\n"); err != nil {
		return total, err
	}
	for _, d := range m.slots {
		if len(d.tabs) == 0 {
			continue
		}
		if err := put("    %x {\n", uint64(d.dbid)); err != nil {
			return total, err
		}
		for _, ts := range d.tabs {
			for _, r := range ts.tab.ranges {
				sign, off := "+", r.Offset
				if off < 0 {
					sign, off = "-", -off
				}
				if err := put("        %x-%x: %x %s%x\n", r.Low, r.High, uint64(r.DestDBID), sign, off); err != nil {
					return total, err
				}
			}
		}
		if err := put("    }\n"); err != nil {
			return total, err
		}
	}
	err := put("}\n")
	return total, err
}

// String returns the text form of the map.
func (m *Map) String() string {
	var b strings.Builder
	m.WriteTo(&b) // strings.Builder never errors
	return b.String()
}

// Token classes returned by lexer.next.  Single-character punctuation
// is returned as itself; tokWord covers runs of letters and digits.
const (
	tokEOF  = byte(0)
	tokWord = byte('w')
)

type lexer struct {
	r    *bufio.Reader
	line int
	tok  []byte
}

func isWordByte(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func (lx *lexer) next() (byte, error) {
	for {
		b, err := lx.r.ReadByte()
		if err == io.EOF {
			return tokEOF, nil
		}
		if err != nil {
			return tokEOF, err
		}
		switch b {
		case ' ', '\t', '\r':
			continue
		case '\n':
			lx.line++
			continue
		case '{', '}', '-', ':', '+':
			return b, nil
		}
		if !isWordByte(b) {
			return tokEOF, errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: unexpected character %q", lx.line, b))
		}
		lx.tok = lx.tok[:0]
		lx.tok = append(lx.tok, b)
		for {
			b, err = lx.r.ReadByte()
			if err == io.EOF {
				return tokWord, nil
			}
			if err != nil {
				return tokEOF, err
			}
			if !isWordByte(b) {
				lx.r.UnreadByte()
				return tokWord, nil
			}
			lx.tok = append(lx.tok, b)
		}
	}
}

func (lx *lexer) expect(want byte) error {
	c, err := lx.next()
	if err != nil {
		return err
	}
	if c != want {
		return lx.syntax(c)
	}
	return nil
}

func (lx *lexer) word() (uint64, error) {
	c, err := lx.next()
	if err != nil {
		return 0, err
	}
	if c != tokWord {
		return 0, lx.syntax(c)
	}
	v, err := strconv.ParseUint(gunsafe.BytesToString(lx.tok), 16, 64)
	if err != nil {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: bad hex number %q", lx.line, lx.tok))
	}
	return v, nil
}

func (lx *lexer) syntax(c byte) error {
	if c == tokEOF {
		return errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: unexpected end of input", lx.line))
	}
	if c == tokWord {
		return errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: unexpected token %q", lx.line, lx.tok))
	}
	return errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: unexpected %q", lx.line, c))
}

// Read parses the text form of a map.  Ranges conflicting within the
// input fail the same way conflicting AddRange calls do.
func Read(r io.Reader) (*Map, error) {
	m := New()
	lx := &lexer{r: bufio.NewReader(r), line: 1}

	c, err := lx.next()
	if err != nil {
		return nil, err
	}
	if c != tokWord || !strings.EqualFold(gunsafe.BytesToString(lx.tok), "grmap") {
		return nil, lx.syntax(c)
	}
	if err := lx.expect('{'); err != nil {
		return nil, err
	}
	for {
		c, err := lx.next()
		if err != nil {
			return nil, err
		}
		if c == '}' {
			return m, nil
		}
		if c != tokWord {
			return nil, lx.syntax(c)
		}
		dbid, err := strconv.ParseUint(gunsafe.BytesToString(lx.tok), 16, 64)
		if err != nil || dbid > uint64(guid.MaxDBID) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: bad DBID %q", lx.line, lx.tok))
		}
		if err := lx.expect('{'); err != nil {
			return nil, err
		}
		for {
			c, err := lx.next()
			if err != nil {
				return nil, err
			}
			if c == '}' {
				break
			}
			if c != tokWord {
				return nil, lx.syntax(c)
			}
			lo, err := strconv.ParseUint(gunsafe.BytesToString(lx.tok), 16, 64)
			if err != nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: bad hex number %q", lx.line, lx.tok))
			}
			if err := lx.expect('-'); err != nil {
				return nil, err
			}
			hi, err := lx.word()
			if err != nil {
				return nil, err
			}
			if err := lx.expect(':'); err != nil {
				return nil, err
			}
			ddbid, err := lx.word()
			if err != nil {
				return nil, err
			}
			sign, err := lx.next()
			if err != nil {
				return nil, err
			}
			if sign != '+' && sign != '-' {
				return nil, lx.syntax(sign)
			}
			off, err := lx.word()
			if err != nil {
				return nil, err
			}
			if err := m.addParsed(lx, guid.DBID(dbid), lo, hi, ddbid, sign, off); err != nil {
				return nil, err
			}
		}
	}
}

// addParsed validates one parsed range line and feeds it to addSpan.
func (m *Map) addParsed(lx *lexer, dbid guid.DBID, lo, hi, ddbid uint64, sign byte, off uint64) error {
	bad := func(what string) error {
		return errors.E(errors.Invalid, fmt.Sprintf("grmap: line %d: %s", lx.line, what))
	}
	if lo >= hi || hi >= guid.SerialLimit {
		return bad("bad serial range")
	}
	if ddbid > uint64(guid.MaxDBID) {
		return bad("destination DBID out of range")
	}
	if off >= guid.SerialLimit {
		return bad("offset out of range")
	}
	offset := int64(off)
	if sign == '-' {
		offset = -offset
	}
	if int64(lo)+offset < 0 || uint64(int64(hi)+offset) >= guid.SerialLimit {
		return bad("destination serials out of range")
	}
	return m.addSpan(dbid, lo, hi, guid.DBID(ddbid), offset)
}

// NewFromPath reads the text form of a map from a file, transparently
// decompressing gzipped input.
func NewFromPath(path string) (m *Map, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return Read(reader)
}
