package engine

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
)

func TestSerializeJSONEmptyWindowProducesEmptyArray(t *testing.T) {
	out, err := Serialize(nil, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}
}

func TestSerializeJSONRoundTripPreservesFieldNames(t *testing.T) {
	records := []map[string]interface{}{
		{"method": "GET", "path": "/v1/widgets", "response_status": float64(200)},
	}
	out, err := Serialize(records, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["method"] != "GET" || decoded[0]["path"] != "/v1/widgets" {
		t.Fatalf("round trip did not preserve fields: %+v", decoded)
	}
}

func TestSerializeCSVHeaderIsStableSortedUnionOfKeys(t *testing.T) {
	records := []map[string]interface{}{
		{"b": "2", "a": "1"},
		{"c": "3", "a": "1"},
	}
	out, err := Serialize(records, "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if lines[0] != "a,b,c" {
		t.Fatalf("expected header 'a,b,c', got %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
}

func TestSerializeCSVStringifiesNestedValues(t *testing.T) {
	records := []map[string]interface{}{
		{"body": map[string]interface{}{"user": "a"}},
	}
	out, err := Serialize(records, "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != `{"user":"a"}` {
		t.Fatalf("expected nested value JSON-stringified, got %q", out)
	}
}

func TestSerializeRejectsUnsupportedFormat(t *testing.T) {
	_, err := Serialize(nil, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindSerialization {
		t.Fatalf("expected KindSerialization, got %v", err)
	}
}
