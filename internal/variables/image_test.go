package variables

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewImageRejectsRaggedRows(t *testing.T) {
	_, err := NewImage([][]float64{{1, 2}, {3}})
	require.Error(t, err)

	_, err = NewImage(nil)
	require.ErrorIs(t, err, ErrNotTwoDimensional)
}

func TestImageFromAnyDimensions(t *testing.T) {
	tests := []struct {
		name string
		in   any
		dims int
	}{
		{"scalar", 1.0, 0},
		{"vector", []any{1.0, 2.0}, 1},
		{"cube", []any{[]any{[]any{1.0}}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImageFromAny(tt.in)
			require.ErrorIs(t, err, ErrNotTwoDimensional)
			require.Contains(t, err.Error(), fmt.Sprintf("has %d dimensions", tt.dims))
		})
	}

	img, err := ImageFromAny([]any{[]any{1, 2.5}, []any{int64(3), 4.0}})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, img.Shape())
	require.Equal(t, 2.5, img.At(0, 1))
	require.Equal(t, 1.0, img.Min())
	require.Equal(t, 4.0, img.Max())
}

func TestImageEmptyMinMax(t *testing.T) {
	img, err := NewImageFromData(0, 0, nil)
	require.NoError(t, err)
	require.True(t, math.IsNaN(img.Min()))
	require.True(t, math.IsNaN(img.Max()))
}

func TestNPYRoundTrip(t *testing.T) {
	img := MustImage([][]float64{{1, 2, 3}, {4, 5, 6.5}})

	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, img))
	require.Equal(t, 0, (buf.Len()-img.Len()*8)%64, "header must be 64-byte aligned")

	got, err := ReadNPY(&buf)
	require.NoError(t, err)
	require.True(t, got.Equal(img))
}

// npyBytes builds an .npy payload with an arbitrary header for dtype tests.
func npyBytes(t *testing.T, header string, data any) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	header += "\n"
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, data))
	return buf.Bytes()
}

func TestReadNPYDtypes(t *testing.T) {
	i32 := npyBytes(t, "{'descr': '<i4', 'fortran_order': False, 'shape': (2, 2), }", []int32{1, -2, 3, 4})
	img, err := ReadNPY(bytes.NewReader(i32))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, -2}, {3, 4}}, img.Rows())

	f32 := npyBytes(t, "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2), }", []float32{0.5, 1.5})
	img, err = ReadNPY(bytes.NewReader(f32))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0.5, 1.5}}, img.Rows())

	u8 := npyBytes(t, "{'descr': '|u1', 'fortran_order': False, 'shape': (1, 3), }", []uint8{0, 128, 255})
	img, err = ReadNPY(bytes.NewReader(u8))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0, 128, 255}}, img.Rows())
}

func TestReadNPYFortranOrder(t *testing.T) {
	// column-major storage of [[1, 2, 3], [4, 5, 6]]
	raw := npyBytes(t, "{'descr': '<f8', 'fortran_order': True, 'shape': (2, 3), }", []float64{1, 4, 2, 5, 3, 6})
	img, err := ReadNPY(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, img.Rows())
}

func TestReadNPYRejects(t *testing.T) {
	oneD := npyBytes(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (4,), }", []float64{1, 2, 3, 4})
	_, err := ReadNPY(bytes.NewReader(oneD))
	require.ErrorIs(t, err, ErrNotTwoDimensional)

	complexType := npyBytes(t, "{'descr': '<c16', 'fortran_order': False, 'shape': (1, 1), }", []float64{1, 0})
	_, err = ReadNPY(bytes.NewReader(complexType))
	require.Error(t, err)

	_, err = ReadNPY(bytes.NewReader([]byte("PK\x03\x04 not numpy")))
	require.Error(t, err)

	truncated := npyBytes(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (2, 2), }", []float64{1})
	_, err = ReadNPY(bytes.NewReader(truncated))
	require.Error(t, err)

	// rows*cols*8 wraps to zero
	overflow := npyBytes(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (4611686018427387904, 4), }", []float64{1, 2, 3, 4})
	_, err = ReadNPY(bytes.NewReader(overflow))
	require.ErrorContains(t, err, "too large")

	// fits in int but the file holds a single element
	huge := npyBytes(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (1000000, 1000000), }", []float64{1})
	_, err = ReadNPY(bytes.NewReader(huge))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestNewImageFromDataRejectsBadShapes(t *testing.T) {
	_, err := NewImageFromData(math.MaxInt/2, 4, nil)
	require.Error(t, err)

	_, err = NewImageFromData(-1, 2, nil)
	require.Error(t, err)

	img, err := NewImageFromData(2, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []int{2, 0}, img.Shape())
}

func TestImageLoaderCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.npy")
	require.NoError(t, SaveNPY(path, testImage()))

	loader, err := NewImageLoader(4)
	require.NoError(t, err)

	img, err := loader.Load(path)
	require.NoError(t, err)
	require.True(t, img.Equal(testImage()))
	require.Equal(t, 1, loader.Cached())

	// rewriting the file invalidates the cached entry
	replacement := MustImage([][]float64{{9, 9}, {9, 9}})
	require.NoError(t, SaveNPY(path, replacement))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	img, err = loader.Load(path)
	require.NoError(t, err)
	require.True(t, img.Equal(replacement))

	_, err = loader.Load(filepath.Join(dir, "missing.npy"))
	require.Error(t, err)
}
