package archive

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func TestCompressDisabledPassesThroughUnchanged(t *testing.T) {
	data := []byte(`{"a":1}`)
	out, ext, err := Compress(data, CompressionPolicy{Enabled: false, Format: CompressionGzip})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if ext != "" || !bytes.Equal(out, data) {
		t.Errorf("Compress() = (%q, %q), want (%q, \"\")", out, ext, data)
	}
}

func TestCompressBelowFileSizeThresholdSkipsCompression(t *testing.T) {
	data := []byte("short")
	out, ext, err := Compress(data, CompressionPolicy{Enabled: true, Format: CompressionGzip, FileSize: 1024})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if ext != "" || !bytes.Equal(out, data) {
		t.Errorf("Compress() = (%q, %q), want passthrough below threshold", out, ext)
	}
}

func TestCompressGzipRoundTrips(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox "), 50)
	out, ext, err := Compress(data, CompressionPolicy{Enabled: true, Format: CompressionGzip})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if ext != "gz" {
		t.Errorf("Compress() ext = %q, want gz", ext)
	}
	r, err := gzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	defer r.Close()
	decoded, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("gzip read error = %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("decompressed = %q, want %q", decoded, data)
	}
}

func TestCompressBrotliProducesSmallerOutputForRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 100)
	out, ext, err := Compress(data, CompressionPolicy{Enabled: true, Format: CompressionBrotli})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if ext != "br" {
		t.Errorf("Compress() ext = %q, want br", ext)
	}
	if len(out) >= len(data) {
		t.Errorf("brotli output len = %d, want smaller than input len %d", len(out), len(data))
	}
}

func TestCompressZipWrapsSingleEntry(t *testing.T) {
	data := []byte(`id,name` + "\n" + `1,alice`)
	out, ext, err := Compress(data, CompressionPolicy{Enabled: true, Format: CompressionZip})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if ext != "zip" {
		t.Errorf("Compress() ext = %q, want zip", ext)
	}
	if len(out) == 0 {
		t.Error("expected non-empty zip output")
	}
}

func TestCompressUnsupportedFormatErrors(t *testing.T) {
	_, _, err := Compress([]byte("x"), CompressionPolicy{Enabled: true, Format: "unknown"})
	if err == nil {
		t.Error("Compress() error = nil, want error for unsupported format")
	}
}

func TestContentTypeByCompressionOverridesFileFormat(t *testing.T) {
	cases := []struct {
		fileFormat  string
		compression CompressionFormat
		want        string
	}{
		{"json", CompressionNone, "application/json"},
		{"csv", CompressionNone, "text/csv"},
		{"csv", CompressionGzip, "application/gzip"},
		{"json", CompressionBrotli, "application/x-brotli"},
		{"csv", CompressionZip, "application/zip"},
	}
	for _, c := range cases {
		got := ContentType(c.fileFormat, c.compression)
		if got != c.want {
			t.Errorf("ContentType(%q, %q) = %q, want %q", c.fileFormat, c.compression, got, c.want)
		}
	}
}
