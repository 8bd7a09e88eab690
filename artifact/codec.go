package artifact

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// Compression is the compression of an artifact, derived from its file extension.
type Compression uint8

const (
	// CompressionNone indicates a plain artifact.
	CompressionNone Compression = iota
	// CompressionZSTD indicates a ".zst" artifact (best ratio for large indexes).
	CompressionZSTD
	// CompressionLZ4 indicates a ".lz4" frame artifact (fastest to decode).
	CompressionLZ4
)

// SplitCompression returns the compression implied by name and the name
// without the compression extension.
func SplitCompression(name string) (Compression, string) {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".zst", ".zstd":
		return CompressionZSTD, strings.TrimSuffix(name, path.Ext(name))
	case ".lz4":
		return CompressionLZ4, strings.TrimSuffix(name, path.Ext(name))
	default:
		return CompressionNone, name
	}
}

// NewReader decompresses r.
func NewReader(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}

// NewWriter compresses into w. Closing the writer flushes the frame but does
// not close w.
func NewWriter(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZSTD:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Format is the encoding of a document artifact.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

// DocumentFormat returns the format implied by a (decompressed) name.
// Names without a recognized extension are treated as JSON.
func DocumentFormat(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode unmarshals a JSON or YAML document into v.
func Decode(f Format, data []byte, v any) error {
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// Encode marshals v as a JSON or YAML document.
func Encode(f Format, v any) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
