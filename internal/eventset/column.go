package eventset

import (
	"math"

	"github.com/vk/eventflowgo/internal/schema"
)

// Column is one feature's value array inside a bucket, tagged by dtype.
// Exactly one backing slice is in use. Accessors for the wrong dtype
// panic: kernels always know the dtype from the schema they inferred.
type Column struct {
	dtype schema.DType
	f64   []float64
	f32   []float32
	i64   []int64
	i32   []int32
	str   []string
	b     []bool
}

// NewColumn returns an empty column of the given dtype.
func NewColumn(dtype schema.DType) *Column {
	return &Column{dtype: dtype}
}

// Float64Column wraps vals without copying; the column takes ownership.
func Float64Column(vals []float64) *Column { return &Column{dtype: schema.Float64, f64: vals} }

// Float32Column wraps vals without copying; the column takes ownership.
func Float32Column(vals []float32) *Column { return &Column{dtype: schema.Float32, f32: vals} }

// Int64Column wraps vals without copying; the column takes ownership.
func Int64Column(vals []int64) *Column { return &Column{dtype: schema.Int64, i64: vals} }

// Int32Column wraps vals without copying; the column takes ownership.
func Int32Column(vals []int32) *Column { return &Column{dtype: schema.Int32, i32: vals} }

// StringColumn wraps vals without copying; the column takes ownership.
func StringColumn(vals []string) *Column { return &Column{dtype: schema.String, str: vals} }

// BoolColumn wraps vals without copying; the column takes ownership.
func BoolColumn(vals []bool) *Column { return &Column{dtype: schema.Bool, b: vals} }

// DType returns the column's dtype.
func (c *Column) DType() schema.DType { return c.dtype }

// Len returns the number of values.
func (c *Column) Len() int {
	switch c.dtype {
	case schema.Float64:
		return len(c.f64)
	case schema.Float32:
		return len(c.f32)
	case schema.Int64:
		return len(c.i64)
	case schema.Int32:
		return len(c.i32)
	case schema.String:
		return len(c.str)
	case schema.Bool:
		return len(c.b)
	}
	return 0
}

// Float64s returns the backing slice. Callers must not mutate it.
func (c *Column) Float64s() []float64 { c.mustBe(schema.Float64); return c.f64 }

// Float32s returns the backing slice. Callers must not mutate it.
func (c *Column) Float32s() []float32 { c.mustBe(schema.Float32); return c.f32 }

// Int64s returns the backing slice. Callers must not mutate it.
func (c *Column) Int64s() []int64 { c.mustBe(schema.Int64); return c.i64 }

// Int32s returns the backing slice. Callers must not mutate it.
func (c *Column) Int32s() []int32 { c.mustBe(schema.Int32); return c.i32 }

// Strings returns the backing slice. Callers must not mutate it.
func (c *Column) Strings() []string { c.mustBe(schema.String); return c.str }

// Bools returns the backing slice. Callers must not mutate it.
func (c *Column) Bools() []bool { c.mustBe(schema.Bool); return c.b }

func (c *Column) mustBe(d schema.DType) {
	if c.dtype != d {
		panic("eventset: column dtype is " + c.dtype.String() + ", accessed as " + d.String())
	}
}

// AppendFloat64 appends to a float64 column.
func (c *Column) AppendFloat64(v float64) { c.mustBe(schema.Float64); c.f64 = append(c.f64, v) }

// AppendFloat32 appends to a float32 column.
func (c *Column) AppendFloat32(v float32) { c.mustBe(schema.Float32); c.f32 = append(c.f32, v) }

// AppendInt64 appends to an int64 column.
func (c *Column) AppendInt64(v int64) { c.mustBe(schema.Int64); c.i64 = append(c.i64, v) }

// AppendInt32 appends to an int32 column.
func (c *Column) AppendInt32(v int32) { c.mustBe(schema.Int32); c.i32 = append(c.i32, v) }

// AppendString appends to a string column.
func (c *Column) AppendString(v string) { c.mustBe(schema.String); c.str = append(c.str, v) }

// AppendBool appends to a bool column.
func (c *Column) AppendBool(v bool) { c.mustBe(schema.Bool); c.b = append(c.b, v) }

// AppendMissing appends the dtype's missing value: NaN for floats, zero
// for integers, the empty string, false for booleans.
func (c *Column) AppendMissing() {
	switch c.dtype {
	case schema.Float64:
		c.f64 = append(c.f64, math.NaN())
	case schema.Float32:
		c.f32 = append(c.f32, float32(math.NaN()))
	case schema.Int64:
		c.i64 = append(c.i64, 0)
	case schema.Int32:
		c.i32 = append(c.i32, 0)
	case schema.String:
		c.str = append(c.str, "")
	case schema.Bool:
		c.b = append(c.b, false)
	}
}

// AppendFrom appends src's i-th value. Both columns must share a dtype.
func (c *Column) AppendFrom(src *Column, i int) {
	src.mustBe(c.dtype)
	switch c.dtype {
	case schema.Float64:
		c.f64 = append(c.f64, src.f64[i])
	case schema.Float32:
		c.f32 = append(c.f32, src.f32[i])
	case schema.Int64:
		c.i64 = append(c.i64, src.i64[i])
	case schema.Int32:
		c.i32 = append(c.i32, src.i32[i])
	case schema.String:
		c.str = append(c.str, src.str[i])
	case schema.Bool:
		c.b = append(c.b, src.b[i])
	}
}

// gather returns a copy with rows reordered by perm.
func (c *Column) gather(perm []int) *Column {
	out := NewColumn(c.dtype)
	for _, i := range perm {
		out.AppendFrom(c, i)
	}
	return out
}

// Equal compares values for identity, treating NaN as equal to NaN so
// missing float values do not break dataset comparisons.
func (c *Column) Equal(o *Column) bool {
	if c.dtype != o.dtype || c.Len() != o.Len() {
		return false
	}
	switch c.dtype {
	case schema.Float64:
		for i, v := range c.f64 {
			if v != o.f64[i] && !(math.IsNaN(v) && math.IsNaN(o.f64[i])) {
				return false
			}
		}
	case schema.Float32:
		for i, v := range c.f32 {
			if v != o.f32[i] && !(math.IsNaN(float64(v)) && math.IsNaN(float64(o.f32[i]))) {
				return false
			}
		}
	case schema.Int64:
		for i, v := range c.i64 {
			if v != o.i64[i] {
				return false
			}
		}
	case schema.Int32:
		for i, v := range c.i32 {
			if v != o.i32[i] {
				return false
			}
		}
	case schema.String:
		for i, v := range c.str {
			if v != o.str[i] {
				return false
			}
		}
	case schema.Bool:
		for i, v := range c.b {
			if v != o.b[i] {
				return false
			}
		}
	}
	return true
}

// memoryBytes estimates the heap held by the column.
func (c *Column) memoryBytes() int {
	switch c.dtype {
	case schema.Float64:
		return 8 * len(c.f64)
	case schema.Float32:
		return 4 * len(c.f32)
	case schema.Int64:
		return 8 * len(c.i64)
	case schema.Int32:
		return 4 * len(c.i32)
	case schema.String:
		n := 16 * len(c.str)
		for _, s := range c.str {
			n += len(s)
		}
		return n
	case schema.Bool:
		return len(c.b)
	}
	return 0
}
