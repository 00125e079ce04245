package masking

import (
	"reflect"
	"testing"
)

func TestMaskIdempotent(t *testing.T) {
	eng, _, err := New(Policy{
		Enabled:        true,
		PreserveLength: true,
		MaskingChar:    '*',
		CustomFields:   []string{"password"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := map[string]interface{}{
		"user":     "a",
		"password": "abcdef",
	}
	once := eng.Mask(input)
	twice := eng.Mask(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("masking not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestMaskCustomFieldPreserveLength(t *testing.T) {
	eng, _, err := New(Policy{
		Enabled:        true,
		PreserveLength: true,
		MaskingChar:    '*',
		CustomFields:   []string{"password"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := map[string]interface{}{
		"user":     "a",
		"password": "abcdef",
	}
	out := eng.MaskRecord(rec)
	if out["password"] != "******" {
		t.Fatalf("got %v", out["password"])
	}
	if out["user"] != "a" {
		t.Fatalf("unrelated field mutated: %v", out["user"])
	}
}

func TestMaskDefaultTokenWhenNotPreserveLength(t *testing.T) {
	eng, _, err := New(Policy{
		Enabled:      true,
		CustomFields: []string{"ssn"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := eng.MaskRecord(map[string]interface{}{"ssn": "123-45-6789"})
	if out["ssn"] != "[MASKED]" {
		t.Fatalf("got %v", out["ssn"])
	}
}

func TestMaskShowLastChars(t *testing.T) {
	eng, _, err := New(Policy{
		Enabled:       true,
		CustomFields:  []string{"token"},
		ShowLastChars: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := eng.MaskRecord(map[string]interface{}{"token": "sk-ant-abcd1234"})
	if out["token"] != "[MASKED]1234" {
		t.Fatalf("got %v", out["token"])
	}
}

func TestMaskExemptWinsOverCustom(t *testing.T) {
	eng, warnings, err := New(Policy{
		Enabled:      true,
		CustomFields: []string{"email"},
		ExemptFields: []string{"email"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a warning for overlapping field")
	}
	out := eng.MaskRecord(map[string]interface{}{"email": "a@b.com"})
	if out["email"] != "a@b.com" {
		t.Fatalf("exempt field was masked: %v", out["email"])
	}
}

func TestMaskBuiltinEmailPattern(t *testing.T) {
	eng, _, err := New(Policy{Enabled: true, MaskEmails: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := eng.MaskRecord(map[string]interface{}{"note": "contact me at a@b.com please"})
	if out["note"] == "contact me at a@b.com please" {
		t.Fatalf("email was not redacted: %v", out["note"])
	}
}

func TestMaskStructurePreserving(t *testing.T) {
	eng, _, err := New(Policy{Enabled: true, CustomFields: []string{"password"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := map[string]interface{}{
		"count":   3,
		"active":  true,
		"nested":  map[string]interface{}{"password": "x"},
		"history": []interface{}{"a", "b"},
	}
	out := eng.MaskRecord(input)
	if out["count"] != 3 || out["active"] != true {
		t.Fatalf("scalar passthrough failed: %v", out)
	}
	nested, ok := out["nested"].(map[string]interface{})
	if !ok {
		t.Fatalf("nested map shape changed: %v", out["nested"])
	}
	if nested["password"] == "x" {
		t.Fatalf("nested custom field was not masked")
	}
	hist, ok := out["history"].([]interface{})
	if !ok || len(hist) != 2 {
		t.Fatalf("slice shape changed: %v", out["history"])
	}
}

func TestMaskDisabledPassesThrough(t *testing.T) {
	eng, _, err := New(Policy{Enabled: false, CustomFields: []string{"password"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := map[string]interface{}{"password": "abcdef"}
	out := eng.MaskRecord(rec)
	if out["password"] != "abcdef" {
		t.Fatalf("disabled policy mutated value: %v", out["password"])
	}
}

func TestNewRejectsNegativeShowLastChars(t *testing.T) {
	if _, _, err := New(Policy{ShowLastChars: -1}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewRejectsInvalidCustomPattern(t *testing.T) {
	if _, _, err := New(Policy{CustomPatterns: map[string]string{"bad": "(["}}); err == nil {
		t.Fatal("expected validation error for invalid regex")
	}
}
