package variables

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/open-edge-platform/lume-model/internal/utils/general/slice"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/ulikunitz/xz"
)

const (
	storeFormat  = "lume-model/variables"
	storeVersion = 1
)

// Compression identifies how a variable store is encoded on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionXZ   Compression = "xz"
)

// CompressionFor picks the encoding from the file extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".xz":
		return CompressionXZ
	default:
		return CompressionNone
	}
}

type storedVariable struct {
	Key      string          `json:"key"`
	Variable json.RawMessage `json:"variable"`
}

type storeFile struct {
	Format  string           `json:"format"`
	Version int              `json:"version"`
	Inputs  []storedVariable `json:"input_variables"`
	Outputs []storedVariable `json:"output_variables"`
}

// SaveVariables writes inputs and outputs to path. All variable names must
// be unique across both collections. The file is compressed according to
// its extension and replaced atomically.
func SaveVariables(inputs, outputs *Collection, path string) error {
	log := logger.Logger()

	names := append(inputs.Names(), outputs.Names()...)
	if dups := slice.Duplicates(names); len(dups) > 0 {
		log.Errorf("Duplicate variable name %s. All variables must have unique names.", strings.Join(dups, ", "))
		return fmt.Errorf("%w: %s", ErrDuplicateName, strings.Join(dups, ", "))
	}
	if err := inputs.Validate(Input); err != nil {
		return fmt.Errorf("invalid input variables: %w", err)
	}
	if err := outputs.Validate(Output); err != nil {
		return fmt.Errorf("invalid output variables: %w", err)
	}

	doc := storeFile{Format: storeFormat, Version: storeVersion}
	var err error
	if doc.Inputs, err = encodeCollection(inputs); err != nil {
		return err
	}
	if doc.Outputs, err = encodeCollection(outputs); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create variable file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeCompressed(tmp, CompressionFor(path), doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write variable file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close variable file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move variable file into place: %w", err)
	}

	log.Debugf("saved %d input and %d output variables to %s", inputs.Len(), outputs.Len(), path)
	return nil
}

// LoadVariables reads a file written by SaveVariables.
func LoadVariables(path string) (*Collection, *Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open variable file: %w", err)
	}
	defer f.Close()

	var doc storeFile
	if err := readCompressed(f, CompressionFor(path), &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to read variable file %s: %w", path, err)
	}
	if doc.Format != storeFormat {
		return nil, nil, fmt.Errorf("%s is not a variable file (format %q)", path, doc.Format)
	}
	if doc.Version > storeVersion {
		return nil, nil, fmt.Errorf("variable file version %d is newer than supported version %d", doc.Version, storeVersion)
	}

	inputs, err := decodeCollection(Input, doc.Inputs)
	if err != nil {
		return nil, nil, err
	}
	outputs, err := decodeCollection(Output, doc.Outputs)
	if err != nil {
		return nil, nil, err
	}
	return inputs, outputs, nil
}

func encodeCollection(c *Collection) ([]storedVariable, error) {
	out := make([]storedVariable, 0, c.Len())
	for _, key := range c.Keys() {
		v, _ := c.Get(key)
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode variable %s: %w", key, err)
		}
		out = append(out, storedVariable{Key: key, Variable: raw})
	}
	return out, nil
}

func decodeCollection(dir Direction, stored []storedVariable) (*Collection, error) {
	c := NewCollection()
	for _, sv := range stored {
		v, err := Decode(dir, sv.Variable)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", sv.Key, err)
		}
		if err := c.Add(sv.Key, v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func writeCompressed(w io.Writer, c Compression, doc storeFile) error {
	var (
		cw  io.WriteCloser
		err error
	)
	switch c {
	case CompressionGzip:
		cw = gzip.NewWriter(w)
	case CompressionZstd:
		cw, err = zstd.NewWriter(w)
	case CompressionXZ:
		cw, err = xz.NewWriter(w)
	default:
		cw = nopWriteCloser{w}
	}
	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", c, err)
	}

	enc := json.NewEncoder(cw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}

func readCompressed(r io.Reader, c Compression, doc *storeFile) error {
	var src io.Reader
	switch c {
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		src = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		src = xr
	default:
		src = r
	}
	return json.NewDecoder(src).Decode(doc)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
