package scene

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokAsset
	tokPath
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokAsset:
		return "asset path"
	case tokPath:
		return "prim path"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	// text is the decoded value: unquoted strings, asset and path contents.
	text string
	// pos and end delimit the raw token in the source.
	pos, end int
	line     int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

// SyntaxError is returned for malformed text layers.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type lexer struct {
	file string
	src  string
	pos  int
	line int
}

func newLexer(file, src string) *lexer {
	return &lexer{file: file, src: src, line: 1}
}

func (l *lexer) errorf(line int, format string, args ...any) error {
	return &SyntaxError{File: l.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == ':' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.src)
				return
			}
			l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
			l.pos += end + 4
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos, end: l.pos, line: l.line}, nil
	}
	start, line := l.pos, l.line
	c := l.src[l.pos]

	switch {
	case c == '"' || c == '\'':
		text, err := l.lexString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: text, pos: start, end: l.pos, line: line}, nil
	case c == '@':
		text, err := l.lexAsset()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokAsset, text: text, pos: start, end: l.pos, line: line}, nil
	case c == '<':
		end := strings.IndexByte(l.src[l.pos:], '>')
		if end < 0 {
			return token{}, l.errorf(line, "unterminated prim path")
		}
		text := l.src[l.pos+1 : l.pos+end]
		l.pos += end + 1
		return token{kind: tokPath, text: text, pos: start, end: l.pos, line: line}, nil
	case isDigit(c) || c == '-' || c == '+' || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		if tok, ok := l.lexNumber(); ok {
			return tok, nil
		}
		return token{}, l.errorf(line, "unexpected %q", c)
	case strings.IndexByte("()[]{}=,;:", c) >= 0:
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start, end: l.pos, line: line}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if !isIdentStart(r) {
		return token{}, l.errorf(line, "unexpected %q", r)
	}
	l.pos += size
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return token{kind: tokIdent, text: l.src[start:l.pos], pos: start, end: l.pos, line: line}, nil
}

func (l *lexer) lexNumber() (token, bool) {
	start, line := l.pos, l.line
	p := l.pos
	if l.src[p] == '-' || l.src[p] == '+' {
		p++
	}
	for _, word := range []string{"inf", "nan"} {
		if strings.HasPrefix(l.src[p:], word) {
			l.pos = p + len(word)
			return token{kind: tokNumber, text: l.src[start:l.pos], pos: start, end: l.pos, line: line}, true
		}
	}
	digits := 0
	for p < len(l.src) && isDigit(l.src[p]) {
		p++
		digits++
	}
	if p < len(l.src) && l.src[p] == '.' {
		p++
		for p < len(l.src) && isDigit(l.src[p]) {
			p++
			digits++
		}
	}
	if digits == 0 {
		return token{}, false
	}
	if p < len(l.src) && (l.src[p] == 'e' || l.src[p] == 'E') {
		q := p + 1
		if q < len(l.src) && (l.src[q] == '-' || l.src[q] == '+') {
			q++
		}
		if q < len(l.src) && isDigit(l.src[q]) {
			for q < len(l.src) && isDigit(l.src[q]) {
				q++
			}
			p = q
		}
	}
	l.pos = p
	return token{kind: tokNumber, text: l.src[start:p], pos: start, end: p, line: line}, true
}

func (l *lexer) lexString() (string, error) {
	line := l.line
	q := l.src[l.pos]
	triple := strings.Repeat(string(q), 3)
	if strings.HasPrefix(l.src[l.pos:], triple) {
		end := strings.Index(l.src[l.pos+3:], triple)
		if end < 0 {
			return "", l.errorf(line, "unterminated string")
		}
		raw := l.src[l.pos+3 : l.pos+3+end]
		l.line += strings.Count(raw, "\n")
		l.pos += end + 6
		return unescape(raw), nil
	}

	var b strings.Builder
	p := l.pos + 1
	for p < len(l.src) {
		c := l.src[p]
		switch {
		case c == q:
			l.pos = p + 1
			return b.String(), nil
		case c == '\n':
			return "", l.errorf(line, "newline in string")
		case c == '\\' && p+1 < len(l.src):
			b.WriteByte(escaped(l.src[p+1]))
			p += 2
			continue
		}
		b.WriteByte(c)
		p++
	}
	return "", l.errorf(line, "unterminated string")
}

func escaped(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return c
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(escaped(s[i]))
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (l *lexer) lexAsset() (string, error) {
	line := l.line
	if strings.HasPrefix(l.src[l.pos:], "@@@") {
		end := strings.Index(l.src[l.pos+3:], "@@@")
		if end < 0 {
			return "", l.errorf(line, "unterminated asset path")
		}
		text := l.src[l.pos+3 : l.pos+3+end]
		l.pos += end + 6
		return strings.ReplaceAll(text, `\@@@`, "@@@"), nil
	}
	end := strings.IndexAny(l.src[l.pos+1:], "@\n")
	if end < 0 || l.src[l.pos+1+end] != '@' {
		return "", l.errorf(line, "unterminated asset path")
	}
	text := l.src[l.pos+1 : l.pos+1+end]
	l.pos += end + 2
	return text, nil
}
