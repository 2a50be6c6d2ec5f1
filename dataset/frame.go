package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// VectorColumn is a numeric column holding a fixed-width vector per row.
// Data is n×width; SlotNames has one entry per vector slot.
type VectorColumn struct {
	Data      *mat.Dense
	SlotNames []string
}

// Width returns the number of slots per row.
func (c *VectorColumn) Width() int {
	_, w := c.Data.Dims()
	return w
}

// Frame is an immutable-by-convention table of named columns with a shared
// row count. Adding a column under an existing name hides the old one.
// Column data is shared between clones and must not be modified in place.
type Frame struct {
	rows    int
	order   []string
	vectors map[string]*VectorColumn
	texts   map[string][]string
}

// NewFrame returns an empty frame with the given row count.
func NewFrame(rows int) *Frame {
	return &Frame{
		rows:    rows,
		vectors: make(map[string]*VectorColumn),
		texts:   make(map[string][]string),
	}
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// Columns returns column names in the order they were added.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, v := f.vectors[name]
	_, t := f.texts[name]
	return v || t
}

// Vector returns a numeric column.
func (f *Frame) Vector(name string) (*VectorColumn, error) {
	c, ok := f.vectors[name]
	if !ok {
		if _, isText := f.texts[name]; isText {
			return nil, errors.NewValueError("Frame.Vector", fmt.Sprintf("column %q is text, not numeric", name))
		}
		return nil, errors.NewValueError("Frame.Vector", fmt.Sprintf("column %q not found", name))
	}
	return c, nil
}

// Text returns a text column.
func (f *Frame) Text(name string) ([]string, error) {
	c, ok := f.texts[name]
	if !ok {
		if _, isVec := f.vectors[name]; isVec {
			return nil, errors.NewValueError("Frame.Text", fmt.Sprintf("column %q is numeric, not text", name))
		}
		return nil, errors.NewValueError("Frame.Text", fmt.Sprintf("column %q not found", name))
	}
	return c, nil
}

// AddVector adds or replaces a numeric column. slots may be nil, in which case
// slot names are derived from the column name.
func (f *Frame) AddVector(name string, data *mat.Dense, slots []string) error {
	r, w := data.Dims()
	if r != f.rows {
		return errors.NewDimensionError("Frame.AddVector", f.rows, r, 0)
	}
	if slots == nil {
		slots = make([]string, w)
		for i := range slots {
			if w == 1 {
				slots[i] = name
			} else {
				slots[i] = fmt.Sprintf("%s.%d", name, i)
			}
		}
	}
	if len(slots) != w {
		return errors.NewDimensionError("Frame.AddVector", w, len(slots), 1)
	}
	f.remove(name)
	f.vectors[name] = &VectorColumn{Data: data, SlotNames: slots}
	f.order = append(f.order, name)
	return nil
}

// AddText adds or replaces a text column.
func (f *Frame) AddText(name string, values []string) error {
	if len(values) != f.rows {
		return errors.NewDimensionError("Frame.AddText", f.rows, len(values), 0)
	}
	f.remove(name)
	f.texts[name] = values
	f.order = append(f.order, name)
	return nil
}

func (f *Frame) remove(name string) {
	if !f.Has(name) {
		return
	}
	delete(f.vectors, name)
	delete(f.texts, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
}

// Clone returns a frame sharing column data but with its own column set.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.rows)
	c.order = append([]string(nil), f.order...)
	for k, v := range f.vectors {
		c.vectors[k] = v
	}
	for k, v := range f.texts {
		c.texts[k] = v
	}
	return c
}

// Subset returns a new frame holding the given rows, in the given order.
func (f *Frame) Subset(indices []int) (*Frame, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Frame.Subset")
	}
	out := NewFrame(len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= f.rows {
			return nil, errors.NewValueError("Frame.Subset", fmt.Sprintf("row index %d out of range [0,%d)", idx, f.rows))
		}
	}
	for _, name := range f.order {
		if col, ok := f.vectors[name]; ok {
			w := col.Width()
			data := mat.NewDense(len(indices), w, nil)
			for i, idx := range indices {
				data.SetRow(i, col.Data.RawRowView(idx))
			}
			out.vectors[name] = &VectorColumn{Data: data, SlotNames: col.SlotNames}
		} else {
			src := f.texts[name]
			vals := make([]string, len(indices))
			for i, idx := range indices {
				vals[i] = src[idx]
			}
			out.texts[name] = vals
		}
		out.order = append(out.order, name)
	}
	return out, nil
}

// FromProducts builds a frame with one single-slot numeric column per numeric
// field and productId as a text column.
func FromProducts(rows []ProductData) *Frame {
	f := NewFrame(len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ProductID
	}
	// row count always matches, so Add* cannot fail here
	_ = f.AddText(ColProductID, ids)
	if len(rows) == 0 {
		return f
	}
	for _, col := range NumericColumns {
		data := mat.NewDense(len(rows), 1, nil)
		for i, r := range rows {
			v, _ := r.Numeric(col)
			data.Set(i, 0, v)
		}
		_ = f.AddVector(col, data, []string{col})
	}
	return f
}
