package scene

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind classifies a Value.
type Kind int

const (
	KindNone Kind = iota
	KindNumber
	KindString
	KindToken
	KindAsset
	KindPath
	KindList
	KindTuple
	KindDict
	KindReference
	KindTimeSamples
)

// Value is a parsed attribute or metadata value.
type Value struct {
	Kind Kind
	Num  float64
	// Str is the text of strings, tokens, asset paths and prim paths. For a
	// reference it holds the asset path.
	Str string
	// Target is the prim path of a reference.
	Target string

	Items   []Value
	Entries []Entry
}

// Entry is one dictionary or time sample entry.
type Entry struct {
	Type  string
	Key   string
	Value Value
}

// Float returns the numeric value, accepting true/false tokens.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindToken:
		switch v.Str {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
	}
	return 0, false
}

// Bool reports the truth of a bool-like value.
func (v Value) Bool() (bool, bool) {
	f, ok := v.Float()
	return f != 0, ok
}

// Text returns strings and tokens.
func (v Value) Text() (string, bool) {
	if v.Kind == KindString || v.Kind == KindToken {
		return v.Str, true
	}
	return "", false
}

// Floats flattens a tuple or list of numbers, including nested tuples.
func (v Value) Floats() ([]float64, bool) {
	if v.Kind != KindTuple && v.Kind != KindList {
		f, ok := v.Float()
		return []float64{f}, ok
	}
	var out []float64
	for _, it := range v.Items {
		fs, ok := it.Floats()
		if !ok {
			return nil, false
		}
		out = append(out, fs...)
	}
	return out, true
}

// Vec returns a 3-tuple.
func (v Value) Vec() (r3.Vec, bool) {
	fs, ok := v.Floats()
	if !ok || len(fs) != 3 || v.Kind != KindTuple {
		return r3.Vec{}, false
	}
	return r3.Vec{X: fs[0], Y: fs[1], Z: fs[2]}, true
}

// Vecs returns a list of 3-tuples.
func (v Value) Vecs() ([]r3.Vec, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	out := make([]r3.Vec, 0, len(v.Items))
	for _, it := range v.Items {
		p, ok := it.Vec()
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// Strings returns a list of strings or tokens.
func (v Value) Strings() ([]string, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		s, ok := it.Text()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Lookup finds a dictionary entry by key.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != KindDict {
		return Value{}, false
	}
	for _, e := range v.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func parseNumber(text string) (float64, error) {
	switch text {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan", "+nan", "-nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(text, 64)
}
