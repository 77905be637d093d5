package volume

import (
	"errors"
	"fmt"
)

// ErrDataLength is returned when a backing slice does not match its dimensions.
var ErrDataLength = errors.New("data length does not match dimensions")

// Store is a dense row-major 5D array of one element kind. Values cross the
// interface as float64 so that interpolation and compositing are written
// once for all kinds.
type Store interface {
	Kind() Kind
	Dim() Dim5

	// Raw returns the unscaled element at a linear offset.
	Raw(offset int) float64

	// SetRaw stores v at a linear offset, clamping to the kind's range.
	SetRaw(offset int, v float64)
}

// Buffer is the Store implementation for element type T.
type Buffer[T Element] struct {
	dim  Dim5
	kind Kind
	Data []T
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer[T Element](dim Dim5) (*Buffer[T], error) {
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	return &Buffer[T]{dim: dim, kind: KindOf[T](), Data: make([]T, dim.Voxels())}, nil
}

// WrapBuffer uses data as backing store without copying it.
func WrapBuffer[T Element](dim Dim5, data []T) (*Buffer[T], error) {
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	if len(data) != dim.Voxels() {
		return nil, fmt.Errorf("%w: have %d elements, need %d", ErrDataLength, len(data), dim.Voxels())
	}
	return &Buffer[T]{dim: dim, kind: KindOf[T](), Data: data}, nil
}

func (b *Buffer[T]) Kind() Kind { return b.kind }
func (b *Buffer[T]) Dim() Dim5  { return b.dim }

func (b *Buffer[T]) Raw(offset int) float64 {
	return float64(b.Data[offset])
}

func (b *Buffer[T]) SetRaw(offset int, v float64) {
	b.Data[offset] = fromFloat[T](v, b.kind)
}

// NewStore allocates a zeroed store of the given kind.
func NewStore(kind Kind, dim Dim5) (Store, error) {
	switch kind {
	case Uint8:
		return newStore[uint8](dim)
	case Int8:
		return newStore[int8](dim)
	case Uint16:
		return newStore[uint16](dim)
	case Int16:
		return newStore[int16](dim)
	case Uint32:
		return newStore[uint32](dim)
	case Int32:
		return newStore[int32](dim)
	case Float32:
		return newStore[float32](dim)
	case Float64:
		return newStore[float64](dim)
	}
	return nil, fmt.Errorf("unsupported element kind %v", kind)
}

func newStore[T Element](dim Dim5) (Store, error) {
	b, err := NewBuffer[T](dim)
	if err != nil {
		return nil, err
	}
	return b, nil
}
