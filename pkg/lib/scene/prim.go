package scene

import "strings"

// Specifier is def, over or class.
type Specifier int

const (
	SpecifierDef Specifier = iota
	SpecifierOver
	SpecifierClass
)

func (s Specifier) String() string {
	switch s {
	case SpecifierOver:
		return "over"
	case SpecifierClass:
		return "class"
	default:
		return "def"
	}
}

// Attribute is an authored attribute or relationship.
type Attribute struct {
	Name     string
	TypeName string
	Custom   bool
	Uniform  bool
	// Rel marks relationships; Targets holds their paths.
	Rel     bool
	Targets []string

	// Default is the authored default value when HasDefault is set.
	Default    Value
	HasDefault bool

	TimeSamples Value
	Connections []string
	Metadata    map[string]Value
}

// Variant is one choice of a variant set.
type Variant struct {
	Name string
	Body *Prim
}

type VariantSet struct {
	Name     string
	Variants []*Variant
}

func (vs *VariantSet) Variant(name string) *Variant {
	for _, v := range vs.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Prim is a prim spec with the selected variants merged in.
type Prim struct {
	Specifier Specifier
	TypeName  string
	Name      string
	Metadata  map[string]Value

	Children    []*Prim
	VariantSets []*VariantSet

	attrs  []*Attribute
	index  map[string]*Attribute
	parent *Prim
	path   string
	line   int
}

func newPrim(spec Specifier, typeName, name string, parent *Prim) *Prim {
	p := &Prim{
		Specifier: spec,
		TypeName:  typeName,
		Name:      name,
		Metadata:  map[string]Value{},
		index:     map[string]*Attribute{},
		parent:    parent,
	}
	p.path = childPath(parent, name)
	return p
}

func childPath(parent *Prim, name string) string {
	if parent == nil || parent.path == "" {
		return "/" + name
	}
	return parent.path + "/" + name
}

// Path is the absolute prim path.
func (p *Prim) Path() string { return p.path }

func (p *Prim) Parent() *Prim { return p.parent }

// Line is the source line of the prim's declaration.
func (p *Prim) Line() int { return p.line }

func (p *Prim) Attributes() []*Attribute { return p.attrs }

func (p *Prim) Attribute(name string) *Attribute { return p.index[name] }

// Get returns the default value of an attribute.
func (p *Prim) Get(name string) (Value, bool) {
	a := p.index[name]
	if a == nil || !a.HasDefault || a.Default.Kind == KindNone {
		return Value{}, false
	}
	return a.Default, true
}

// Float returns a scalar attribute or def when it is not authored.
func (p *Prim) Float(name string, def float64) float64 {
	if v, ok := p.Get(name); ok {
		if f, ok := v.Float(); ok {
			return f
		}
	}
	return def
}

// Token returns a token or string attribute or def.
func (p *Prim) Token(name, def string) string {
	if v, ok := p.Get(name); ok {
		if s, ok := v.Text(); ok {
			return s
		}
	}
	return def
}

func (p *Prim) Child(name string) *Prim {
	for _, c := range p.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Active is false when the prim is deactivated.
func (p *Prim) Active() bool {
	if v, ok := p.Metadata["active"]; ok {
		if b, ok := v.Bool(); ok {
			return b
		}
	}
	return true
}

// IsA reports whether the prim's type is typeName.
func (p *Prim) IsA(typeName string) bool {
	return p.TypeName == typeName
}

func (p *Prim) addAttribute(a *Attribute) {
	if old := p.index[a.Name]; old != nil {
		mergeAttribute(old, a)
		return
	}
	p.attrs = append(p.attrs, a)
	p.index[a.Name] = a
}

// mergeAttribute folds a second declaration of the same attribute, which is
// how "foo.connect" and "foo.timeSamples" lines are authored.
func mergeAttribute(dst, src *Attribute) {
	if src.HasDefault {
		dst.Default, dst.HasDefault = src.Default, true
	}
	if src.TimeSamples.Kind == KindTimeSamples {
		dst.TimeSamples = src.TimeSamples
	}
	if len(src.Connections) > 0 {
		dst.Connections = src.Connections
	}
	if len(src.Targets) > 0 {
		dst.Targets = src.Targets
	}
	if dst.TypeName == "" {
		dst.TypeName = src.TypeName
	}
}

func (p *Prim) reparent(parent *Prim) {
	p.parent = parent
	p.path = childPath(parent, p.Name)
	for _, c := range p.Children {
		c.reparent(p)
	}
}

// variantSelections reads the prim's "variants" metadata.
func (p *Prim) variantSelections() map[string]string {
	sel := map[string]string{}
	if v, ok := p.Metadata["variants"]; ok {
		for _, e := range v.Entries {
			if s, ok := e.Value.Text(); ok {
				sel[e.Key] = s
			}
		}
	}
	return sel
}

// composeVariants merges the selected variant of every variant set into the
// prim. Local opinions are stronger than variant opinions.
func (p *Prim) composeVariants() {
	sel := p.variantSelections()
	for i := 0; i < len(p.VariantSets); i++ {
		vs := p.VariantSets[i]
		choice, ok := sel[vs.Name]
		if !ok {
			continue
		}
		v := vs.Variant(choice)
		if v == nil {
			logger.Printf("%s: variant %s=%s not found", p.path, vs.Name, choice)
			continue
		}
		p.mergeWeaker(v.Body)
		sel = p.variantSelections()
	}
	for _, c := range p.Children {
		c.composeVariants()
	}
}

func (p *Prim) mergeWeaker(src *Prim) {
	if p.TypeName == "" {
		p.TypeName = src.TypeName
	}
	for k, v := range src.Metadata {
		if _, ok := p.Metadata[k]; !ok {
			p.Metadata[k] = v
		}
	}
	for _, a := range src.attrs {
		if p.index[a.Name] == nil {
			p.attrs = append(p.attrs, a)
			p.index[a.Name] = a
		}
	}
	for _, c := range src.Children {
		if existing := p.Child(c.Name); existing != nil {
			existing.mergeWeaker(c)
			continue
		}
		c.reparent(p)
		p.Children = append(p.Children, c)
	}
	p.VariantSets = append(p.VariantSets, src.VariantSets...)
}

// splitOpName returns the op type of "xformOp:<type>[:suffix]" and whether
// it carries the "!invert!" prefix.
func splitOpName(name string) (opType, attr string, invert bool) {
	attr, invert = strings.CutPrefix(name, "!invert!")
	parts := strings.Split(attr, ":")
	if len(parts) < 2 || parts[0] != "xformOp" {
		return "", attr, invert
	}
	return parts[1], attr, invert
}
