package variables

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const npyMagic = "\x93NUMPY"

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadNPY decodes a 2-D array stored in NumPy's .npy format. Boolean,
// integer and floating point dtypes of either byte order are accepted.
func ReadNPY(r io.Reader) (Image, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, 8)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return Image{}, fmt.Errorf("failed to read npy preamble: %w", err)
	}
	if string(prefix[:6]) != npyMagic {
		return Image{}, fmt.Errorf("not an npy file")
	}

	var headerLen int
	switch major := prefix[6]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return Image{}, fmt.Errorf("failed to read npy header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return Image{}, fmt.Errorf("failed to read npy header length: %w", err)
		}
		headerLen = int(n)
	default:
		return Image{}, fmt.Errorf("unsupported npy version %d", major)
	}

	header, err := readExactly(br, headerLen)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read npy header: %w", err)
	}

	descr, fortran, shape, err := parseNPYHeader(string(header))
	if err != nil {
		return Image{}, err
	}
	if len(shape) != 2 {
		return Image{}, fmt.Errorf("%w. Provided array has %d dimensions", ErrNotTwoDimensional, len(shape))
	}
	rows, cols := shape[0], shape[1]

	order, kind, size, err := parseDescr(descr)
	if err != nil {
		return Image{}, err
	}

	n, ok := elementCount(rows, cols)
	if !ok || n > math.MaxInt/size {
		return Image{}, fmt.Errorf("npy shape (%d, %d) is too large", rows, cols)
	}
	raw, err := readExactly(br, n*size)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read npy data: %w", err)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = decodeElement(raw[i*size:(i+1)*size], order, kind)
	}

	if fortran {
		transposed := make([]float64, len(values))
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				transposed[r*cols+c] = values[c*rows+r]
			}
		}
		values = transposed
	}

	return NewImageFromData(rows, cols, values)
}

// readExactly reads n bytes from r. The buffer grows with the data that is
// actually present, so a forged length cannot force a large allocation.
func readExactly(r io.Reader, n int) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, len(b), n)
	}
	return b, nil
}

func parseNPYHeader(header string) (string, bool, []int, error) {
	m := npyDescrRe.FindStringSubmatch(header)
	if m == nil {
		return "", false, nil, fmt.Errorf("npy header missing descr")
	}
	descr := m[1]

	fortran := false
	if m := npyFortranRe.FindStringSubmatch(header); m != nil {
		fortran = m[1] == "True"
	}

	m = npyShapeRe.FindStringSubmatch(header)
	if m == nil {
		return "", false, nil, fmt.Errorf("npy header missing shape")
	}
	var shape []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || n < 0 {
			return "", false, nil, fmt.Errorf("invalid npy shape entry %q", part)
		}
		shape = append(shape, n)
	}
	return descr, fortran, shape, nil
}

func parseDescr(descr string) (binary.ByteOrder, byte, int, error) {
	if len(descr) < 3 {
		return nil, 0, 0, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	var order binary.ByteOrder
	switch descr[0] {
	case '<', '|', '=':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return nil, 0, 0, fmt.Errorf("unsupported npy byte order in %q", descr)
	}
	kind := descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	valid := false
	switch kind {
	case 'f':
		valid = size == 4 || size == 8
	case 'i', 'u':
		valid = size == 1 || size == 2 || size == 4 || size == 8
	case 'b':
		valid = size == 1
	}
	if !valid {
		return nil, 0, 0, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	return order, kind, size, nil
}

func decodeElement(b []byte, order binary.ByteOrder, kind byte) float64 {
	switch kind {
	case 'f':
		if len(b) == 4 {
			return float64(math.Float32frombits(order.Uint32(b)))
		}
		return math.Float64frombits(order.Uint64(b))
	case 'i':
		switch len(b) {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(order.Uint16(b)))
		case 4:
			return float64(int32(order.Uint32(b)))
		default:
			return float64(int64(order.Uint64(b)))
		}
	case 'u':
		switch len(b) {
		case 1:
			return float64(b[0])
		case 2:
			return float64(order.Uint16(b))
		case 4:
			return float64(order.Uint32(b))
		default:
			return float64(order.Uint64(b))
		}
	default:
		if b[0] != 0 {
			return 1
		}
		return 0
	}
}

// WriteNPY encodes img as a little-endian float64 .npy version 1.0 file.
func WriteNPY(w io.Writer, img Image) error {
	shape := img.Shape()
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", shape[0], shape[1])
	// magic(6) + version(2) + length(2) + header + '\n' is padded to 64 bytes
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	buf.WriteString(header)
	for _, v := range img.data {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// LoadNPY reads an image from a .npy file.
func LoadNPY(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open npy file: %w", err)
	}
	defer f.Close()

	img, err := ReadNPY(f)
	if err != nil {
		return Image{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

// SaveNPY writes img to path in .npy format.
func SaveNPY(path string, img Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create npy file: %w", err)
	}
	if err := WriteNPY(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

type cachedImage struct {
	modTime time.Time
	size    int64
	img     Image
}

// ImageLoader loads .npy images through an LRU cache keyed by absolute
// path. Entries are reloaded when the file's size or mtime changes.
type ImageLoader struct {
	cache *lru.Cache[string, cachedImage]
}

// NewImageLoader returns a loader that keeps up to size images.
func NewImageLoader(size int) (*ImageLoader, error) {
	cache, err := lru.New[string, cachedImage](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &ImageLoader{cache: cache}, nil
}

// Load returns the image stored at path.
func (l *ImageLoader) Load(path string) (Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open npy file: %w", err)
	}

	if entry, ok := l.cache.Get(abs); ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.img, nil
	}

	img, err := LoadNPY(abs)
	if err != nil {
		return Image{}, err
	}
	l.cache.Add(abs, cachedImage{modTime: info.ModTime(), size: info.Size(), img: img})
	return img, nil
}

// Cached reports how many images are held.
func (l *ImageLoader) Cached() int {
	return l.cache.Len()
}
