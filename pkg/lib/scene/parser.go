package scene

import (
	"fmt"
	"strings"
)

// Layer is a parsed text layer.
type Layer struct {
	Version  string
	Metadata map[string]Value
	Prims    []*Prim

	src    string
	assets []token
}

var listOps = map[string]bool{"prepend": true, "append": true, "add": true, "delete": true, "reorder": true}

type parser struct {
	lex  *lexer
	toks []token
	i    int
}

// parseLayer parses the text format. The first line must be the "#usda"
// header.
func parseLayer(file, src string) (*Layer, error) {
	header, _, _ := strings.Cut(src, "\n")
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "#usda") {
		return nil, &SyntaxError{File: file, Line: 1, Msg: "missing #usda header"}
	}
	layer := &Layer{
		Version:  strings.TrimSpace(strings.TrimPrefix(header, "#usda")),
		Metadata: map[string]Value{},
		src:      src,
	}

	lex := newLexer(file, src)
	p := &parser{lex: lex}
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		p.toks = append(p.toks, tok)
		if tok.kind == tokAsset {
			layer.assets = append(layer.assets, tok)
		}
		if tok.kind == tokEOF {
			break
		}
	}

	if p.isPunct("(") {
		md, err := p.metadata()
		if err != nil {
			return nil, err
		}
		layer.Metadata = md
	}
	for !p.at(tokEOF) {
		prim, err := p.prim(nil)
		if err != nil {
			return nil, err
		}
		layer.Prims = append(layer.Prims, prim)
	}
	for _, prim := range layer.Prims {
		prim.composeVariants()
	}
	return layer, nil
}

func (p *parser) peek(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) cur() token { return p.peek(0) }

func (p *parser) advance() token {
	t := p.cur()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) at(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) isIdent(s string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(p.cur().line, format, args...)
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q, found %s", s, p.cur())
	}
	p.advance()
	return nil
}

func (p *parser) expect(k tokenKind) (token, error) {
	if !p.at(k) {
		return token{}, p.errorf("expected %s, found %s", k, p.cur())
	}
	return p.advance(), nil
}

func (p *parser) skipSeparators() {
	for p.isPunct(";") || p.isPunct(",") {
		p.advance()
	}
}

func specifierOf(text string) (Specifier, bool) {
	switch text {
	case "def":
		return SpecifierDef, true
	case "over":
		return SpecifierOver, true
	case "class":
		return SpecifierClass, true
	}
	return 0, false
}

func (p *parser) prim(parent *Prim) (*Prim, error) {
	start := p.cur()
	spec, ok := specifierOf(start.text)
	if start.kind != tokIdent || !ok {
		return nil, p.errorf("expected def, over or class, found %s", start)
	}
	p.advance()

	typeName := ""
	if p.at(tokIdent) {
		typeName = p.advance().text
	}
	name, err := p.expect(tokString)
	if err != nil {
		return nil, err
	}
	prim := newPrim(spec, typeName, name.text, parent)
	prim.line = start.line

	if p.isPunct("(") {
		if prim.Metadata, err = p.metadata(); err != nil {
			return nil, err
		}
	}
	if err := p.primBody(prim); err != nil {
		return nil, err
	}
	return prim, nil
}

func (p *parser) primBody(prim *Prim) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.isPunct("}") {
		if p.at(tokEOF) {
			return p.errorf("unterminated prim %s", prim.path)
		}
		if err := p.primItem(prim); err != nil {
			return err
		}
		p.skipSeparators()
	}
	p.advance()
	return nil
}

func (p *parser) primItem(prim *Prim) error {
	t := p.cur()
	if t.kind != tokIdent {
		return p.errorf("unexpected %s in prim %s", t, prim.path)
	}
	if _, ok := specifierOf(t.text); ok && p.peek(1).kind != tokPunct {
		child, err := p.prim(prim)
		if err != nil {
			return err
		}
		if existing := prim.Child(child.Name); existing != nil {
			existing.mergeWeaker(child)
			return nil
		}
		prim.Children = append(prim.Children, child)
		return nil
	}
	switch {
	case t.text == "variantSet":
		return p.variantSet(prim)
	case t.text == "reorder" && p.peek(1).kind == tokIdent &&
		(p.peek(1).text == "nameChildren" || p.peek(1).text == "properties"):
		p.advance()
		p.advance()
		if err := p.expectPunct("="); err != nil {
			return err
		}
		_, err := p.value()
		return err
	}
	return p.property(prim)
}

func (p *parser) variantSet(prim *Prim) error {
	p.advance()
	name, err := p.expect(tokString)
	if err != nil {
		return err
	}
	if err := p.expectPunct("="); err != nil {
		return err
	}
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	vs := &VariantSet{Name: name.text}
	for !p.isPunct("}") {
		vname, err := p.expect(tokString)
		if err != nil {
			return err
		}
		body := newPrim(SpecifierOver, "", prim.Name, prim.parent)
		body.line = vname.line
		if p.isPunct("(") {
			if body.Metadata, err = p.metadata(); err != nil {
				return err
			}
		}
		if err := p.primBody(body); err != nil {
			return err
		}
		vs.Variants = append(vs.Variants, &Variant{Name: vname.text, Body: body})
	}
	p.advance()
	prim.VariantSets = append(prim.VariantSets, vs)
	return nil
}

func (p *parser) typeName() (string, error) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return "", err
	}
	name := t.text
	if p.isPunct("[") && p.peek(1).kind == tokPunct && p.peek(1).text == "]" {
		p.advance()
		p.advance()
		name += "[]"
	}
	return name, nil
}

func (p *parser) property(prim *Prim) error {
	a := &Attribute{}
modifiers:
	for p.at(tokIdent) {
		switch t := p.cur().text; {
		case t == "custom":
			a.Custom = true
		case t == "uniform":
			a.Uniform = true
		case t == "varying" || t == "config":
		case listOps[t]:
		default:
			break modifiers
		}
		p.advance()
	}
	if p.isIdent("rel") {
		p.advance()
		a.Rel = true
		a.TypeName = "rel"
	} else {
		name, err := p.typeName()
		if err != nil {
			return err
		}
		a.TypeName = name
	}

	nameTok, err := p.expect(tokIdent)
	if err != nil {
		return err
	}
	name := nameTok.text
	suffix := ""
	for _, s := range []string{".connect", ".timeSamples", ".spline"} {
		if strings.HasSuffix(name, s) {
			name, suffix = strings.TrimSuffix(name, s), s
			break
		}
	}
	a.Name = name

	if p.isPunct("=") {
		p.advance()
		v, err := p.value()
		if err != nil {
			return fmt.Errorf("%s.%s: %w", prim.path, name, err)
		}
		switch {
		case suffix == ".connect":
			a.Connections = pathsOf(v)
		case suffix == ".timeSamples":
			v.Kind = KindTimeSamples
			a.TimeSamples = v
		case suffix == ".spline":
		case a.Rel:
			a.Targets = pathsOf(v)
		default:
			a.Default, a.HasDefault = v, true
		}
	}
	if p.isPunct("(") {
		if a.Metadata, err = p.metadata(); err != nil {
			return err
		}
	}
	prim.addAttribute(a)
	return nil
}

func pathsOf(v Value) []string {
	switch v.Kind {
	case KindPath:
		return []string{v.Str}
	case KindList:
		var out []string
		for _, it := range v.Items {
			out = append(out, pathsOf(it)...)
		}
		return out
	}
	return nil
}

// metadata parses a parenthesized metadata block.
func (p *parser) metadata() (map[string]Value, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	md := map[string]Value{}
	for !p.isPunct(")") {
		switch {
		case p.at(tokEOF):
			return nil, p.errorf("unterminated metadata")
		case p.at(tokString):
			md["doc"] = Value{Kind: KindString, Str: p.advance().text}
		case p.at(tokIdent):
			key := p.advance().text
			if listOps[key] && p.at(tokIdent) {
				key = p.advance().text
			}
			if !p.isPunct("=") {
				md[key] = Value{Kind: KindToken, Str: "true"}
				break
			}
			p.advance()
			v, err := p.value()
			if err != nil {
				return nil, fmt.Errorf("metadata %s: %w", key, err)
			}
			md[key] = v
		default:
			return nil, p.errorf("unexpected %s in metadata", p.cur())
		}
		p.skipSeparators()
	}
	p.advance()
	return md, nil
}

func (p *parser) value() (Value, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		n, err := parseNumber(t.text)
		if err != nil {
			return Value{}, p.lex.errorf(t.line, "bad number %q", t.text)
		}
		return Value{Kind: KindNumber, Num: n}, nil
	case tokString:
		p.advance()
		return Value{Kind: KindString, Str: t.text}, nil
	case tokPath:
		p.advance()
		return p.reference(Value{Kind: KindPath, Str: t.text})
	case tokAsset:
		p.advance()
		v := Value{Kind: KindAsset, Str: t.text}
		if p.at(tokPath) {
			v = Value{Kind: KindReference, Str: t.text, Target: p.advance().text}
		}
		return p.reference(v)
	case tokIdent:
		p.advance()
		switch t.text {
		case "None":
			return Value{Kind: KindNone}, nil
		case "inf", "nan":
			n, _ := parseNumber(t.text)
			return Value{Kind: KindNumber, Num: n}, nil
		}
		return Value{Kind: KindToken, Str: t.text}, nil
	case tokPunct:
		switch t.text {
		case "[":
			items, err := p.sequence("[", "]")
			return Value{Kind: KindList, Items: items}, err
		case "(":
			items, err := p.sequence("(", ")")
			return Value{Kind: KindTuple, Items: items}, err
		case "{":
			return p.dict()
		}
	}
	return Value{}, p.errorf("unexpected %s in value", t)
}

// reference skips the layer offset block that may follow a reference.
func (p *parser) reference(v Value) (Value, error) {
	if p.isPunct("(") && p.peek(1).kind == tokIdent && p.peek(2).kind == tokPunct && p.peek(2).text == "=" {
		if _, err := p.metadata(); err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func (p *parser) sequence(open, close string) ([]Value, error) {
	if err := p.expectPunct(open); err != nil {
		return nil, err
	}
	var items []Value
	for !p.isPunct(close) {
		if p.at(tokEOF) {
			return nil, p.errorf("unterminated %s", open)
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		if !p.isPunct(close) {
			return nil, p.errorf("expected ',' or %q, found %s", close, p.cur())
		}
	}
	p.advance()
	return items, nil
}

// dict parses dictionaries ("type key = value") and time samples
// ("time: value").
func (p *parser) dict() (Value, error) {
	if err := p.expectPunct("{"); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindDict}
	for !p.isPunct("}") {
		if p.at(tokEOF) {
			return Value{}, p.errorf("unterminated dictionary")
		}
		if p.at(tokNumber) {
			key := p.advance().text
			if err := p.expectPunct(":"); err != nil {
				return Value{}, err
			}
			sample, err := p.value()
			if err != nil {
				return Value{}, err
			}
			v.Kind = KindTimeSamples
			v.Entries = append(v.Entries, Entry{Key: key, Value: sample})
			p.skipSeparators()
			continue
		}

		typ, err := p.typeName()
		if err != nil {
			return Value{}, err
		}
		var key string
		switch k := p.cur(); k.kind {
		case tokIdent, tokString:
			key = p.advance().text
		default:
			return Value{}, p.errorf("expected dictionary key, found %s", k)
		}
		if err := p.expectPunct("="); err != nil {
			return Value{}, err
		}
		val, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Entries = append(v.Entries, Entry{Type: typ, Key: key, Value: val})
		p.skipSeparators()
	}
	p.advance()
	return v, nil
}
