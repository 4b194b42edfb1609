package assets

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// minCompressSize is the smallest artifact worth a precompressed variant.
const minCompressSize = 256

var compressibleExts = []string{".js", ".css", ".html", ".svg", ".json", ".map", ".txt"}

// Encodings lists the precompressed variants Precompress writes, in the
// order a server should prefer them.
var Encodings = []Encoding{
	{Name: "zstd", Ext: ".zst"},
	{Name: "gzip", Ext: ".gz"},
}

// Encoding pairs a content coding with its file extension.
type Encoding struct {
	Name string
	Ext  string
}

// Precompress writes .zst and .gz siblings for every compressible artifact
// under dir.
func Precompress(dir string) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	defer enc.Close()

	var original, compressed int64

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !compressible(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(data) < minCompressSize {
			return nil
		}

		zst := enc.EncodeAll(data, nil)
		if err := os.WriteFile(path+".zst", zst, 0600); err != nil {
			return err
		}

		gz, err := gzipBytes(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path+".gz", gz, 0600); err != nil {
			return err
		}

		original += int64(len(data))
		compressed += int64(len(gz))
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Int64("original_bytes", original).
		Int64("gzip_bytes", compressed).
		Msg("Precompressed assets")

	return nil
}

func compressible(path string) bool {
	return slices.Contains(compressibleExts, filepath.Ext(path))
}

func gzipBytes(data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
