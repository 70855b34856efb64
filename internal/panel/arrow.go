package panel

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Arrow layout: one arrow column per entity, one arrow row per period.
// Entity names become field names; when none are given the column index is used.

func arrowType(d DType) (arrow.DataType, error) {
	switch d {
	case Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	default:
		return nil, fmt.Errorf("no arrow type for dtype %q", d)
	}
}

// ToRecord converts a into an arrow record. The caller must Release it.
func ToRecord(a Array, entities []string, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	shape := a.Shape()
	if entities != nil && len(entities) != shape.Cols {
		return nil, fmt.Errorf("got %d entity names for %d columns", len(entities), shape.Cols)
	}
	dt, err := arrowType(a.DType())
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, shape.Cols)
	cols := make([]arrow.Array, shape.Cols)
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for c := 0; c < shape.Cols; c++ {
		name := strconv.Itoa(c)
		if entities != nil {
			name = entities[c]
		}
		fields[c] = arrow.Field{Name: name, Type: dt, Nullable: true}

		switch v := a.(type) {
		case *BoolArray:
			b := array.NewBooleanBuilder(mem)
			for r := 0; r < shape.Rows; r++ {
				b.Append(v.At(r, c))
			}
			cols[c] = b.NewBooleanArray()
			b.Release()
		case *Float64Array:
			b := array.NewFloat64Builder(mem)
			for r := 0; r < shape.Rows; r++ {
				b.Append(v.At(r, c))
			}
			cols[c] = b.NewFloat64Array()
			b.Release()
		case *Int64Array:
			b := array.NewInt64Builder(mem)
			for r := 0; r < shape.Rows; r++ {
				b.Append(v.At(r, c))
			}
			cols[c] = b.NewInt64Array()
			b.Release()
		}
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(shape.Rows)), nil
}

// FromRecord converts an arrow record into a panel array of the given dtype.
// Nulls become NaN for float64 and false for bool; int64 columns must not
// contain nulls.
func FromRecord(rec arrow.Record, dtype DType) (Array, error) {
	rows := int(rec.NumRows())
	cols := int(rec.NumCols())

	switch dtype {
	case Bool:
		out := make([]bool, rows*cols)
		for c := 0; c < cols; c++ {
			col, ok := rec.Column(c).(*array.Boolean)
			if !ok {
				return nil, fmt.Errorf("column %q: expected boolean, got %s", rec.ColumnName(c), rec.Column(c).DataType())
			}
			for r := 0; r < rows; r++ {
				out[r*cols+c] = col.IsValid(r) && col.Value(r)
			}
		}
		return NewBool(rows, cols, out)

	case Float64:
		out := make([]float64, rows*cols)
		for c := 0; c < cols; c++ {
			switch col := rec.Column(c).(type) {
			case *array.Float64:
				for r := 0; r < rows; r++ {
					if col.IsNull(r) {
						out[r*cols+c] = math.NaN()
					} else {
						out[r*cols+c] = col.Value(r)
					}
				}
			case *array.Int64:
				for r := 0; r < rows; r++ {
					if col.IsNull(r) {
						out[r*cols+c] = math.NaN()
					} else {
						out[r*cols+c] = float64(col.Value(r))
					}
				}
			default:
				return nil, fmt.Errorf("column %q: expected float64, got %s", rec.ColumnName(c), rec.Column(c).DataType())
			}
		}
		return NewFloat64(rows, cols, out)

	case Int64:
		out := make([]int64, rows*cols)
		for c := 0; c < cols; c++ {
			col, ok := rec.Column(c).(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("column %q: expected int64, got %s", rec.ColumnName(c), rec.Column(c).DataType())
			}
			if col.NullN() > 0 {
				return nil, fmt.Errorf("column %q: int64 panels cannot hold nulls", rec.ColumnName(c))
			}
			for r := 0; r < rows; r++ {
				out[r*cols+c] = col.Value(r)
			}
		}
		return NewInt64(rows, cols, out)

	default:
		return nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

// EncodeIPC serializes a as a single-record arrow IPC stream.
func EncodeIPC(a Array) ([]byte, error) {
	mem := memory.DefaultAllocator
	rec, err := ToRecord(a, nil, mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("encode ipc: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode ipc: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeIPC reads an array written by EncodeIPC.
func DecodeIPC(data []byte, dtype DType) (Array, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("decode ipc: %w", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("decode ipc: %w", err)
		}
		return nil, fmt.Errorf("decode ipc: stream holds no record")
	}
	return FromRecord(rdr.Record(), dtype)
}
