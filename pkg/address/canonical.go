// Package address turns the address shapes we receive (free-form strings, scanned
// OCR fields, stored records) into one canonical form and derives the match key
// used to detect duplicates.
package address

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	errs "address-reconciliation/pkg/errors"
)

// Canonical is the decomposed street/city/state/zip form of an address.
type Canonical struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// RawInput is one of FreeForm, Scanned or StoredRecord.
type RawInput interface {
	rawInput()
}

// FreeForm is a single comma-delimited address string.
type FreeForm string

// Scanned is the structured shape produced by the scanning/OCR pipeline.
type Scanned struct {
	Street string `json:"street"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// StoredRecord is the shape kept by the record store: one combined address
// field plus optional separate city/state/zip columns.
type StoredRecord struct {
	LegalAddress      string `json:"legal_address,omitempty"`
	NormalizedAddress string `json:"normalized_address,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	Zip               string `json:"zip,omitempty"`
}

func (FreeForm) rawInput()     {}
func (Scanned) rawInput()      {}
func (StoredRecord) rawInput() {}

// trailing "MI 48201" style state+zip on the last segment of a combined field;
// a ZIP+4 extension is matched but dropped
var stateZipRe = regexp.MustCompile(`(?i)\b([a-z]{2})\s*(\d{5})(?:-\d{4})?\s*$`)

// Canonicalize parses in into a Canonical address. The boolean is false when
// the input is nil or carries no usable street text; that is not an error.
func Canonicalize(in RawInput) (Canonical, bool) {
	var c Canonical
	switch v := in.(type) {
	case nil:
		return Canonical{}, false
	case FreeForm:
		c = fromFreeForm(string(v))
	case Scanned:
		c = Canonical{
			Street: strings.TrimSpace(v.Street),
			City:   strings.TrimSpace(v.City),
			State:  strings.TrimSpace(v.State),
			Zip:    strings.TrimSpace(v.Zip),
		}
	case StoredRecord:
		c = fromStoredRecord(v)
	default:
		return Canonical{}, false
	}

	if c.Street == "" {
		return Canonical{}, false
	}
	return c, true
}

// fromFreeForm keeps everything after the street as one combined city field.
// It deliberately does not split state/zip out of it.
func fromFreeForm(s string) Canonical {
	s = strings.TrimSpace(s)
	if s == "" {
		return Canonical{}
	}
	parts := splitTrim(s)
	if strings.Join(parts, "") == "" {
		return Canonical{}
	}
	if len(parts) >= 3 {
		return Canonical{
			Street: parts[0],
			City:   strings.Join(parts[1:], ", "),
		}
	}
	return Canonical{Street: s}
}

func fromStoredRecord(r StoredRecord) Canonical {
	combined := strings.TrimSpace(r.LegalAddress)
	if combined == "" {
		combined = strings.TrimSpace(r.NormalizedAddress)
	}

	var c Canonical
	if combined != "" {
		parts := splitTrim(combined)
		c.Street = parts[0]

		if len(parts) > 1 {
			last := parts[len(parts)-1]
			if m := stateZipRe.FindStringSubmatchIndex(last); m != nil {
				c.State = last[m[2]:m[3]]
				c.Zip = last[m[4]:m[5]]
				c.City = strings.TrimSpace(last[:m[0]] + last[m[1]:])
				if c.City == "" && len(parts) >= 3 {
					c.City = parts[len(parts)-2]
				}
			}
		}
	}

	// explicit columns only fill what parsing left empty
	if c.City == "" {
		c.City = strings.TrimSpace(r.City)
	}
	if c.State == "" {
		c.State = strings.TrimSpace(r.State)
	}
	if c.Zip == "" {
		c.Zip = strings.TrimSpace(r.Zip)
	}
	return c
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// String renders the canonical address on one line, skipping empty parts.
func (c Canonical) String() string {
	var parts []string
	for _, p := range []string{c.Street, c.City, strings.TrimSpace(c.State + " " + c.Zip)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// DecodeRawInput picks the input shape from JSON: a string is FreeForm, an
// object with a "street" key is Scanned, any other object is a StoredRecord.
// A JSON null decodes to a nil RawInput.
func DecodeRawInput(data json.RawMessage) (RawInput, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errs.NewValidation("address.DecodeRawInput", "invalid address string", err)
		}
		return FreeForm(s), nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, errs.NewValidation("address.DecodeRawInput", "invalid address object", err)
		}
		if _, ok := probe["street"]; ok {
			var sc Scanned
			if err := json.Unmarshal(data, &sc); err != nil {
				return nil, errs.NewValidation("address.DecodeRawInput", "invalid scanned address", err)
			}
			return sc, nil
		}
		var rec StoredRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errs.NewValidation("address.DecodeRawInput", "invalid stored address", err)
		}
		return rec, nil
	default:
		return nil, errs.NewValidation("address.DecodeRawInput", fmt.Sprintf("unsupported address JSON starting with %q", trimmed[0]), nil)
	}
}
