package models_test

import (
	"encoding/json"
	"testing"

	"bitbucket.org/mmdatafocus/sonar_removals/models"
)

func TestFlexID_DecodesStringAndNumber(t *testing.T) {
	var payload struct {
		A models.FlexID `json:"a"`
		B models.FlexID `json:"b"`
		C models.FlexID `json:"c"`
		D models.FlexID `json:"d"`
	}
	raw := `{"a": "42", "b": 42, "c": null, "d": "  7 "}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "42" {
		t.Errorf("string id: expected 42, got %q", payload.A)
	}
	if payload.B != "42" {
		t.Errorf("numeric id: expected 42, got %q", payload.B)
	}
	if !payload.C.IsZero() {
		t.Errorf("null id: expected no-value marker, got %q", payload.C)
	}
	if payload.D != "7" {
		t.Errorf("padded id: expected trimmed 7, got %q", payload.D)
	}
}

func TestFlexID_StringAndNumberAgree(t *testing.T) {
	// The whole point: the same id from two sources lands on one canonical key.
	var fromString, fromNumber models.FlexID
	if err := json.Unmarshal([]byte(`"1001"`), &fromString); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(`1001`), &fromNumber); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fromString != fromNumber {
		t.Fatalf("expected canonical keys to match, got %q vs %q", fromString, fromNumber)
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := models.NormalizeKey("  abc "); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := models.NormalizeKey("   "); got != "" {
		t.Errorf("whitespace-only input must collapse to the no-value marker, got %q", got)
	}
}
