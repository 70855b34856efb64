// Package panel provides the 2-D arrays that flow between terms.
//
// A panel is row-major: rows are time periods, columns are entities. Every
// array carries its shape so terms can check that their inputs line up before
// computing anything.
package panel

import (
	"fmt"
	"math"
)

// DType identifies the element type of an array.
type DType string

const (
	Bool    DType = "bool"
	Float64 DType = "float64"
	Int64   DType = "int64"
)

// ValidDTypes defines the element types a column may declare.
var ValidDTypes = map[DType]bool{
	Bool:    true,
	Float64: true,
	Int64:   true,
}

// IsNumeric reports whether d can be widened to float64 without loss of meaning.
func (d DType) IsNumeric() bool {
	return d == Float64 || d == Int64
}

// Shape is the (rows, cols) extent of an array.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Len returns the number of elements.
func (s Shape) Len() int {
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

// Array is implemented by BoolArray, Float64Array and Int64Array.
type Array interface {
	Shape() Shape
	DType() DType
	// SliceRows returns rows [start, end) as a new array sharing no memory.
	SliceRows(start, end int) Array
}

// BoolArray is a row-major boolean panel.
type BoolArray struct {
	shape  Shape
	Values []bool
}

// Float64Array is a row-major float64 panel. NaN marks missing data.
type Float64Array struct {
	shape  Shape
	Values []float64
}

// Int64Array is a row-major int64 panel.
type Int64Array struct {
	shape  Shape
	Values []int64
}

func checkLen(rows, cols, n int) error {
	if rows < 0 || cols < 0 {
		return fmt.Errorf("negative shape (%d, %d)", rows, cols)
	}
	if rows*cols != n {
		return fmt.Errorf("shape (%d, %d) needs %d values, got %d", rows, cols, rows*cols, n)
	}
	return nil
}

// NewBool wraps values as a rows x cols boolean array.
func NewBool(rows, cols int, values []bool) (*BoolArray, error) {
	if err := checkLen(rows, cols, len(values)); err != nil {
		return nil, err
	}
	return &BoolArray{shape: Shape{rows, cols}, Values: values}, nil
}

// NewFloat64 wraps values as a rows x cols float64 array.
func NewFloat64(rows, cols int, values []float64) (*Float64Array, error) {
	if err := checkLen(rows, cols, len(values)); err != nil {
		return nil, err
	}
	return &Float64Array{shape: Shape{rows, cols}, Values: values}, nil
}

// NewInt64 wraps values as a rows x cols int64 array.
func NewInt64(rows, cols int, values []int64) (*Int64Array, error) {
	if err := checkLen(rows, cols, len(values)); err != nil {
		return nil, err
	}
	return &Int64Array{shape: Shape{rows, cols}, Values: values}, nil
}

// Full returns a boolean array with every element set to v.
func Full(shape Shape, v bool) *BoolArray {
	values := make([]bool, shape.Len())
	if v {
		for i := range values {
			values[i] = true
		}
	}
	return &BoolArray{shape: shape, Values: values}
}

// BoolRows builds a boolean array from a slice of equal-length rows.
func BoolRows(rows [][]bool) (*BoolArray, error) {
	cols, err := rowWidth(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	values := make([]bool, 0, len(rows)*cols)
	for _, r := range rows {
		values = append(values, r...)
	}
	return NewBool(len(rows), cols, values)
}

// Float64Rows builds a float64 array from a slice of equal-length rows.
func Float64Rows(rows [][]float64) (*Float64Array, error) {
	cols, err := rowWidth(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		values = append(values, r...)
	}
	return NewFloat64(len(rows), cols, values)
}

// Int64Rows builds an int64 array from a slice of equal-length rows.
func Int64Rows(rows [][]int64) (*Int64Array, error) {
	cols, err := rowWidth(len(rows), func(i int) int { return len(rows[i]) })
	if err != nil {
		return nil, err
	}
	values := make([]int64, 0, len(rows)*cols)
	for _, r := range rows {
		values = append(values, r...)
	}
	return NewInt64(len(rows), cols, values)
}

func rowWidth(n int, width func(int) int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	cols := width(0)
	for i := 1; i < n; i++ {
		if width(i) != cols {
			return 0, fmt.Errorf("row %d has %d values, expected %d", i, width(i), cols)
		}
	}
	return cols, nil
}

func (a *BoolArray) Shape() Shape    { return a.shape }
func (a *BoolArray) DType() DType    { return Bool }
func (a *Float64Array) Shape() Shape { return a.shape }
func (a *Float64Array) DType() DType { return Float64 }
func (a *Int64Array) Shape() Shape   { return a.shape }
func (a *Int64Array) DType() DType   { return Int64 }

// At returns the element at (row, col).
func (a *BoolArray) At(row, col int) bool { return a.Values[row*a.shape.Cols+col] }

// At returns the element at (row, col).
func (a *Float64Array) At(row, col int) float64 { return a.Values[row*a.shape.Cols+col] }

// At returns the element at (row, col).
func (a *Int64Array) At(row, col int) int64 { return a.Values[row*a.shape.Cols+col] }

// Row returns row r. The slice aliases the array.
func (a *BoolArray) Row(r int) []bool {
	return a.Values[r*a.shape.Cols : (r+1)*a.shape.Cols]
}

// Row returns row r. The slice aliases the array.
func (a *Float64Array) Row(r int) []float64 {
	return a.Values[r*a.shape.Cols : (r+1)*a.shape.Cols]
}

// Rows returns a copy of the array as a slice of rows.
func (a *BoolArray) Rows() [][]bool {
	out := make([][]bool, a.shape.Rows)
	for r := range out {
		out[r] = append([]bool(nil), a.Row(r)...)
	}
	return out
}

func (a *BoolArray) SliceRows(start, end int) Array {
	values := append([]bool(nil), a.Values[start*a.shape.Cols:end*a.shape.Cols]...)
	return &BoolArray{shape: Shape{end - start, a.shape.Cols}, Values: values}
}

func (a *Float64Array) SliceRows(start, end int) Array {
	values := append([]float64(nil), a.Values[start*a.shape.Cols:end*a.shape.Cols]...)
	return &Float64Array{shape: Shape{end - start, a.shape.Cols}, Values: values}
}

func (a *Int64Array) SliceRows(start, end int) Array {
	values := append([]int64(nil), a.Values[start*a.shape.Cols:end*a.shape.Cols]...)
	return &Int64Array{shape: Shape{end - start, a.shape.Cols}, Values: values}
}

// Clone returns a deep copy.
func (a *BoolArray) Clone() *BoolArray {
	return &BoolArray{shape: a.shape, Values: append([]bool(nil), a.Values...)}
}

// And returns the element-wise conjunction of a and b.
func (a *BoolArray) And(b *BoolArray) (*BoolArray, error) {
	if a.shape != b.shape {
		return nil, fmt.Errorf("and: shape %s does not match %s", a.shape, b.shape)
	}
	out := make([]bool, len(a.Values))
	for i, v := range a.Values {
		out[i] = v && b.Values[i]
	}
	return &BoolArray{shape: a.shape, Values: out}, nil
}

// Not returns the element-wise negation of a.
func (a *BoolArray) Not() *BoolArray {
	out := make([]bool, len(a.Values))
	for i, v := range a.Values {
		out[i] = !v
	}
	return &BoolArray{shape: a.shape, Values: out}
}

// Count returns the number of true elements.
func (a *BoolArray) Count() int {
	n := 0
	for _, v := range a.Values {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether a and b have the same shape and elements.
func (a *BoolArray) Equal(b *BoolArray) bool {
	if a.shape != b.shape {
		return false
	}
	for i, v := range a.Values {
		if b.Values[i] != v {
			return false
		}
	}
	return true
}

// AsFloat64 widens a to a fresh float64 array. Booleans become 0 or 1.
// The result never aliases a.
func AsFloat64(a Array) (*Float64Array, error) {
	switch v := a.(type) {
	case *Float64Array:
		return &Float64Array{shape: v.shape, Values: append([]float64(nil), v.Values...)}, nil
	case *Int64Array:
		out := make([]float64, len(v.Values))
		for i, x := range v.Values {
			out[i] = float64(x)
		}
		return &Float64Array{shape: v.shape, Values: out}, nil
	case *BoolArray:
		out := make([]float64, len(v.Values))
		for i, x := range v.Values {
			if x {
				out[i] = 1
			}
		}
		return &Float64Array{shape: v.shape, Values: out}, nil
	default:
		return nil, fmt.Errorf("cannot widen %T to float64", a)
	}
}

// AsBool asserts that a is a boolean array.
func AsBool(a Array) (*BoolArray, error) {
	b, ok := a.(*BoolArray)
	if !ok {
		return nil, fmt.Errorf("expected bool array, got %s", a.DType())
	}
	return b, nil
}

// FillMasked sets every element of a where mask is false to NaN, in place.
func (a *Float64Array) FillMasked(mask *BoolArray) error {
	if a.shape != mask.shape {
		return fmt.Errorf("mask shape %s does not match %s", mask.shape, a.shape)
	}
	for i, ok := range mask.Values {
		if !ok {
			a.Values[i] = math.NaN()
		}
	}
	return nil
}

// SameShape returns an error naming the first array whose shape differs from want.
func SameShape(want Shape, arrays ...Array) error {
	for i, a := range arrays {
		if a.Shape() != want {
			return fmt.Errorf("array %d has shape %s, expected %s", i, a.Shape(), want)
		}
	}
	return nil
}
