package types

import (
	"fmt"
	"math"
)

// Field is a named, row-major N-dimensional array of float64 values. Datasets
// read from a CPL file and arrays returned by the model sampler are both
// carried as Fields.
type Field struct {
	Name  string    `json:"name" msgpack:"name"`
	Shape []int     `json:"shape" msgpack:"shape"`
	Data  []float64 `json:"data" msgpack:"data"`
}

// NewField builds a Field and checks that the shape accounts for every value.
func NewField(name string, shape []int, data []float64) (Field, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Field{}, fmt.Errorf("%w: field %s has negative dimension %v", ErrDimensionMismatch, name, shape)
		}
		n *= d
	}
	if n != len(data) {
		return Field{}, fmt.Errorf("%w: field %s has shape %v but %d values", ErrDimensionMismatch, name, shape, len(data))
	}
	return Field{Name: name, Shape: append([]int(nil), shape...), Data: data}, nil
}

// Rank returns the number of dimensions.
func (f Field) Rank() int {
	return len(f.Shape)
}

// Len returns the total number of values.
func (f Field) Len() int {
	return len(f.Data)
}

// Ravel returns the values as a flat copy, whatever the rank.
func (f Field) Ravel() []float64 {
	out := make([]float64, len(f.Data))
	copy(out, f.Data)
	return out
}

// Row returns row i of a rank-2 field without copying.
func (f Field) Row(i int) []float64 {
	cols := f.Shape[1]
	return f.Data[i*cols : (i+1)*cols]
}

// MaskedField pairs a Field with a validity mask. Mask[i] is true where
// Data[i] is undefined.
type MaskedField struct {
	Field
	Mask []bool `json:"mask" msgpack:"mask"`
}

// MaskAtOrAbove masks every value at or above undef, the convention used by
// GrADS-style model servers for missing data.
func MaskAtOrAbove(f Field, undef float64) MaskedField {
	mask := make([]bool, len(f.Data))
	for i, v := range f.Data {
		mask[i] = v >= undef
	}
	return MaskedField{Field: f, Mask: mask}
}

// Filled returns a copy of the field with masked values replaced by fill.
func (m MaskedField) Filled(fill float64) Field {
	data := make([]float64, len(m.Data))
	for i, v := range m.Data {
		if m.Mask[i] {
			data[i] = fill
			continue
		}
		data[i] = v
	}
	return Field{Name: m.Name, Shape: append([]int(nil), m.Shape...), Data: data}
}

// Valid returns the number of unmasked values.
func (m MaskedField) Valid() int {
	n := 0
	for _, masked := range m.Mask {
		if !masked {
			n++
		}
	}
	return n
}

// NaNFilled is shorthand for Filled(math.NaN()).
func (m MaskedField) NaNFilled() Field {
	return m.Filled(math.NaN())
}
