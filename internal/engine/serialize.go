package engine

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
)

// Serialize renders records (already masked) as either a JSON array or
// a CSV table, per format ("json" | "csv"). An empty batch still
// produces a well-formed artifact: an empty JSON array, or for CSV a
// single empty header line, since no columns can be derived.
func Serialize(records []map[string]interface{}, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return serializeJSON(records)
	case "csv":
		return serializeCSV(records)
	default:
		return nil, newErr(KindSerialization, "serialize", fmt.Errorf("unsupported file format %q", format))
	}
}

func serializeJSON(records []map[string]interface{}) ([]byte, error) {
	if records == nil {
		records = []map[string]interface{}{}
	}
	out, err := json.Marshal(records)
	if err != nil {
		return nil, newErr(KindSerialization, "serialize.json", err)
	}
	return out, nil
}

// serializeCSV writes a header row equal to the stable-sorted union of
// every top-level key seen across records, then one row per record with
// nested values stringified as JSON.
func serializeCSV(records []map[string]interface{}) ([]byte, error) {
	columns := unionColumns(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, newErr(KindSerialization, "serialize.csv", err)
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = stringifyCell(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, newErr(KindSerialization, "serialize.csv", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, newErr(KindSerialization, "serialize.csv", err)
	}
	return buf.Bytes(), nil
}

func unionColumns(records []map[string]interface{}) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			set[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

func stringifyCell(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
