package fact

// Value is the tagged union stored in a signal slot. The Kind discriminant
// matches the signal's registry declaration; helpers below construct each
// variant. Enum payloads hold the raw enum ordinal (FileRole, Trajectory,
// or a community id).
type Value struct {
	Kind Kind    `json:"kind"`
	I    int64   `json:"i,omitempty"`
	F    float64 `json:"f,omitempty"`
	B    bool    `json:"b,omitempty"`
	E    int     `json:"e,omitempty"`
}

// Int constructs an int value.
func Int(i int64) Value { return Value{Kind: KindInt, I: i} }

// Float constructs a float value.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// Bool constructs a bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Enum constructs an enum value from an ordinal.
func Enum(e int) Value { return Value{Kind: KindEnum, E: e} }

// AsFloat coerces numeric values to float64 for ranking and composites.
// Bools map to 0/1; enums are not coercible and return 0.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I)
	case KindFloat:
		return v.F
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Equal reports exact equality of kind and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}
