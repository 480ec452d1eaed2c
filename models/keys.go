package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// The API is inconsistent about id types: the same id can come back as a JSON
// number from one query and a string from another. Every join key is therefore
// normalized to one canonical string form at the ingestion boundary, before
// any comparison or grouping. The empty string is the canonical "no value"
// marker and never collides with a real key.

// FlexID decodes an identifier that may arrive as a string, a number or null.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(NormalizeKey(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string {
	return string(f)
}

// IsZero reports the canonical no-value marker.
func (f FlexID) IsZero() bool {
	return f == ""
}

// NormalizeKey trims a raw key into canonical form. Whitespace-only input
// collapses to the no-value marker.
func NormalizeKey(s string) string {
	return strings.TrimSpace(s)
}
