package variables

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
)

// Image is a dense, row-major 2-D array.
type Image struct {
	rows int
	cols int
	data []float64
}

// NewImage builds an image from rows of equal length.
func NewImage(rows [][]float64) (Image, error) {
	if len(rows) == 0 {
		return Image{}, fmt.Errorf("%w. Provided array has 1 dimensions", ErrNotTwoDimensional)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Image{}, fmt.Errorf("image row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return Image{rows: len(rows), cols: cols, data: data}, nil
}

// NewImageFromData wraps row-major data of the given shape.
func NewImageFromData(rows, cols int, data []float64) (Image, error) {
	n, ok := elementCount(rows, cols)
	if !ok {
		return Image{}, fmt.Errorf("invalid image shape (%d, %d)", rows, cols)
	}
	if len(data) != n {
		return Image{}, fmt.Errorf("image data has %d elements, shape (%d, %d) needs %d", len(data), rows, cols, n)
	}
	return Image{rows: rows, cols: cols, data: data}, nil
}

// elementCount returns rows*cols. It fails for negative dimensions and for
// products that overflow int.
func elementCount(rows, cols int) (int, bool) {
	if rows < 0 || cols < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(rows), uint64(cols))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// MustImage is NewImage for literals known to be rectangular.
func MustImage(rows [][]float64) Image {
	img, err := NewImage(rows)
	if err != nil {
		panic(err)
	}
	return img
}

// Shape returns [rows, cols].
func (im Image) Shape() []int {
	return []int{im.rows, im.cols}
}

// Len returns the number of elements.
func (im Image) Len() int {
	return len(im.data)
}

// At returns the element at row r, column c.
func (im Image) At(r, c int) float64 {
	return im.data[r*im.cols+c]
}

// Data returns a copy of the row-major elements.
func (im Image) Data() []float64 {
	out := make([]float64, len(im.data))
	copy(out, im.data)
	return out
}

// Rows returns the image as nested rows.
func (im Image) Rows() [][]float64 {
	out := make([][]float64, im.rows)
	for r := range out {
		row := make([]float64, im.cols)
		copy(row, im.data[r*im.cols:(r+1)*im.cols])
		out[r] = row
	}
	return out
}

// Min returns the smallest element, or NaN for an empty image.
func (im Image) Min() float64 {
	if len(im.data) == 0 {
		return math.NaN()
	}
	m := im.data[0]
	for _, v := range im.data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest element, or NaN for an empty image.
func (im Image) Max() float64 {
	if len(im.data) == 0 {
		return math.NaN()
	}
	m := im.data[0]
	for _, v := range im.data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Equal reports whether two images have the same shape and elements.
func (im Image) Equal(other Image) bool {
	if im.rows != other.rows || im.cols != other.cols {
		return false
	}
	for i := range im.data {
		if im.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

func (im Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(im.Rows())
}

func (im *Image) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	img, err := ImageFromAny(raw)
	if err != nil {
		return err
	}
	*im = img
	return nil
}

// ImageFromAny converts decoded JSON or YAML nested lists into an image.
// Anything that is not exactly two levels deep is rejected.
func ImageFromAny(v any) (Image, error) {
	if ndim := dims(v); ndim != 2 {
		return Image{}, fmt.Errorf("%w. Provided array has %d dimensions", ErrNotTwoDimensional, ndim)
	}
	outer := v.([]any)
	rows := make([][]float64, len(outer))
	for i, r := range outer {
		inner, ok := r.([]any)
		if !ok {
			return Image{}, fmt.Errorf("%w: row %d is not a list", ErrNotTwoDimensional, i)
		}
		row := make([]float64, len(inner))
		for j, e := range inner {
			f, err := toFloat(e)
			if err != nil {
				return Image{}, fmt.Errorf("image element (%d, %d): %w", i, j, err)
			}
			row[j] = f
		}
		rows[i] = row
	}
	return NewImage(rows)
}

func dims(v any) int {
	list, ok := v.([]any)
	if !ok {
		return 0
	}
	if len(list) == 0 {
		return 1
	}
	return 1 + dims(list[0])
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
