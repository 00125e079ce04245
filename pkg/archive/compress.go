package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"

	"github.com/andybalholm/brotli"
)

// CompressionFormat selects the byte-stream transform wrapping a
// serialized artifact before upload.
type CompressionFormat string

const (
	CompressionNone   CompressionFormat = ""
	CompressionGzip   CompressionFormat = "gzip"
	CompressionBrotli CompressionFormat = "brotli"
	CompressionZip    CompressionFormat = "zip"
)

// CompressionPolicy mirrors the compression config group.
type CompressionPolicy struct {
	Enabled  bool
	Format   CompressionFormat
	Level    int // 1..9, meaning is format-specific
	FileSize int // minimum uncompressed bytes required before compressing
}

// Extension returns the file-name suffix this format appends, e.g.
// "gz" for gzip (no leading dot), "" when no compression is configured.
func (f CompressionFormat) Extension() string {
	switch f {
	case CompressionGzip:
		return "gz"
	case CompressionBrotli:
		return "br"
	case CompressionZip:
		return "zip"
	default:
		return ""
	}
}

// Compress applies p to data, honoring the FileSize threshold (treated
// as a minimum uncompressed-byte count, per spec's DESIGN NOTE). It
// returns the original bytes, unmodified, and an empty extension when
// compression is disabled or data falls below the threshold.
func Compress(data []byte, p CompressionPolicy) (out []byte, ext string, err error) {
	if !p.Enabled || p.Format == CompressionNone {
		return data, "", nil
	}
	if p.FileSize > 0 && len(data) < p.FileSize {
		return data, "", nil
	}

	switch p.Format {
	case CompressionGzip:
		var buf bytes.Buffer
		level := p.Level
		if level <= 0 {
			level = gzip.DefaultCompression
		}
		gz, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, "", fmt.Errorf("archive: gzip writer: %w", err)
		}
		if _, err := gz.Write(data); err != nil {
			return nil, "", fmt.Errorf("archive: gzip write: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, "", fmt.Errorf("archive: gzip close: %w", err)
		}
		return buf.Bytes(), CompressionGzip.Extension(), nil

	case CompressionBrotli:
		var buf bytes.Buffer
		quality := p.Level
		if quality <= 0 {
			quality = 6
		}
		bw := brotli.NewWriterLevel(&buf, quality)
		if _, err := bw.Write(data); err != nil {
			return nil, "", fmt.Errorf("archive: brotli write: %w", err)
		}
		if err := bw.Close(); err != nil {
			return nil, "", fmt.Errorf("archive: brotli close: %w", err)
		}
		return buf.Bytes(), CompressionBrotli.Extension(), nil

	case CompressionZip:
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("artifact")
		if err != nil {
			return nil, "", fmt.Errorf("archive: zip entry: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, "", fmt.Errorf("archive: zip write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, "", fmt.Errorf("archive: zip close: %w", err)
		}
		return buf.Bytes(), CompressionZip.Extension(), nil

	default:
		return nil, "", fmt.Errorf("archive: unsupported compression format %q", p.Format)
	}
}

// ContentType derives the MIME type for a serialized artifact, adjusted
// for the compression wrapper applied (if any).
func ContentType(fileFormat string, compression CompressionFormat) string {
	switch compression {
	case CompressionGzip:
		return "application/gzip"
	case CompressionBrotli:
		return "application/x-brotli"
	case CompressionZip:
		return "application/zip"
	}
	if fileFormat == "csv" {
		return "text/csv"
	}
	return "application/json"
}
