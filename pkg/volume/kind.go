package volume

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

// Kind identifies the scalar type stored in a volume.
type Kind int

const (
	Uint8 Kind = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
)

// Element is the set of Go types a Store can hold, one per Kind.
type Element interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~float32 | ~float64
}

var kindNames = [...]string{
	Uint8:   "uint8",
	Int8:    "int8",
	Uint16:  "uint16",
	Int16:   "int16",
	Uint32:  "uint32",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

// kindRanges is the representable range of every kind. Values written into
// integer stores are clamped to it.
var kindRanges = [...]struct{ min, max float64 }{
	Uint8:   {0, math.MaxUint8},
	Int8:    {math.MinInt8, math.MaxInt8},
	Uint16:  {0, math.MaxUint16},
	Int16:   {math.MinInt16, math.MaxInt16},
	Uint32:  {0, math.MaxUint32},
	Int32:   {math.MinInt32, math.MaxInt32},
	Float32: {-math.MaxFloat32, math.MaxFloat32},
	Float64: {-math.MaxFloat64, math.MaxFloat64},
}

var kindSizes = [...]int{
	Uint8: 1, Int8: 1,
	Uint16: 2, Int16: 2,
	Uint32: 4, Int32: 4, Float32: 4,
	Float64: 8,
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the eight supported kinds.
func (k Kind) Valid() bool {
	return k >= Uint8 && k <= Float64
}

// Range returns the smallest and largest value representable by k, or
// NaN for an invalid kind.
func (k Kind) Range() (float64, float64) {
	if !k.Valid() {
		return math.NaN(), math.NaN()
	}
	r := kindRanges[k]
	return r.min, r.max
}

// Size returns the number of bytes of one element, or 0 for an invalid kind.
func (k Kind) Size() int {
	if !k.Valid() {
		return 0
	}
	return kindSizes[k]
}

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// ParseKind converts a kind name such as "int16" into a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", name)
}

// KindOf returns the Kind matching the element type T.
func KindOf[T Element]() Kind {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case int8:
		return Int8
	case uint16:
		return Uint16
	case int16:
		return Int16
	case uint32:
		return Uint32
	case int32:
		return Int32
	case float32:
		return Float32
	default:
		return Float64
	}
}

// fromFloat converts v into T, clamping and rounding for integer kinds.
func fromFloat[T Element](v float64, kind Kind) T {
	if kind.IsFloat() {
		return T(v)
	}
	lo, hi := kind.Range()
	return T(clampRound[int64](v, lo, hi))
}

func clampRound[I constraints.Signed](v, lo, hi float64) I {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= lo:
		return I(lo)
	case v >= hi:
		return I(hi)
	}
	return I(math.Round(v))
}
