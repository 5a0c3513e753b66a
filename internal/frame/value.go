package frame

import (
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the cell types a dataset row may hold.
// Only Null, String, Int, Float, and Bool implement it.
//
// Floats ARE permitted in row data (scores, retention times, m/z) but are
// rejected by the canonical encoder used for hashing - fingerprints and
// signature hashes are computed from counts, column names, and version
// tokens only, never from row content.
type Value interface {
	frameValue() // Sealed - only these types implement it
}

// Null represents an absent cell value.
// Using an explicit type keeps nil out of Row maps.
type Null struct{}

func (Null) frameValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string cell value.
type String string

func (String) frameValue() {}

// Int represents an integer cell value. Always int64.
type Int int64

func (Int) frameValue() {}

// Float represents a floating-point cell value (score, RT, m/z).
type Float float64

func (Float) frameValue() {}

// Bool represents a boolean cell value.
type Bool bool

func (Bool) frameValue() {}

// Row is a single materialized record: column name to cell value.
type Row map[string]Value

// Equal reports whether two values are equal.
// Int and Float compare numerically across types, so Int(3) == Float(3.0).
// Null equals only Null.
func Equal(a, b Value) bool {
	if an, aok := numeric(a); aok {
		if bn, bok := numeric(b); bok {
			return an == bn
		}
		return false
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	}
	return false
}

// Compare orders two values for sorting.
// Kind rank when types differ: Null < Bool < numbers < String.
// Numbers compare numerically across Int/Float.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case Null:
		return 0
	case Bool:
		bv := b.(Bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case String:
		bv := b.(String)
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
		return 0
	default:
		an, _ := numeric(a)
		bn, _ := numeric(b)
		if an < bn {
			return -1
		}
		if an > bn {
			return 1
		}
		return 0
	}
}

func kindRank(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Bool:
		return 1
	case Int, Float:
		return 2
	case String:
		return 3
	}
	return 4
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// AsFloat returns the numeric value of a cell, if it is numeric.
func AsFloat(v Value) (float64, bool) {
	return numeric(v)
}

// FromAny converts a plain Go value (as produced by yaml.v3 or
// encoding/json decoding) into a Value. nil becomes Null.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		// yaml and json decode all numbers as float64; keep integral
		// values as Int so identifier columns compare exactly.
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case float32:
		return FromAny(float64(val))
	default:
		return nil, fmt.Errorf("unsupported cell type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error. Test helper.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// UnmarshalJSON implements json.Unmarshaler for Row.
// Numbers decode as Int when integral, Float otherwise.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = make(Row, len(raw))
	for k, v := range raw {
		val, err := unmarshalValue(v)
		if err != nil {
			return fmt.Errorf("row column %q: %w", k, err)
		}
		(*r)[k] = val
	}
	return nil
}

func unmarshalValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", string(data))
		}
		return Float(f), nil
	}
}

// SortedKeys returns the row's column names in RFC 8785 canonical order
// (UTF-16 code units). Used for deterministic row serialization.
func (r Row) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785 (Canonical JSON).
// CRITICAL: Go's default string comparison uses UTF-8 bytes, which produces
// a DIFFERENT order for strings containing supplementary-plane characters.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
