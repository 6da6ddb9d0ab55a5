package address

import (
	"encoding/json"
	"testing"
)

func TestCanonicalize_FreeForm(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Canonical
		wantOK bool
	}{
		{
			name:   "three segments keeps tail as city",
			input:  "123 Main Street, Detroit, MI 48201",
			want:   Canonical{Street: "123 Main Street", City: "Detroit, MI 48201"},
			wantOK: true,
		},
		{
			name:   "four segments joins tail",
			input:  " 9 Elm Ct ,  Apt 4 , Ann Arbor , MI 48104 ",
			want:   Canonical{Street: "9 Elm Ct", City: "Apt 4, Ann Arbor, MI 48104"},
			wantOK: true,
		},
		{
			name:   "two segments is all street",
			input:  "77 Lake Rd, Toledo",
			want:   Canonical{Street: "77 Lake Rd, Toledo"},
			wantOK: true,
		},
		{
			name:   "single segment trimmed",
			input:  "   500 Oak Ave  ",
			want:   Canonical{Street: "500 Oak Ave"},
			wantOK: true,
		},
		{name: "empty string", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "single comma", input: ",", wantOK: false},
		{name: "only commas", input: ",,,", wantOK: false},
		{name: "empty street with tail", input: " , Detroit, MI", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Canonicalize(FreeForm(tt.input))
			if ok != tt.wantOK {
				t.Fatalf("Canonicalize(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Scanned(t *testing.T) {
	got, ok := Canonicalize(Scanned{Street: " 123 Main St ", City: "Detroit ", State: " MI", Zip: "48201"})
	if !ok {
		t.Fatal("expected scanned address to canonicalize")
	}
	want := Canonical{Street: "123 Main St", City: "Detroit", State: "MI", Zip: "48201"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	got, ok = Canonicalize(Scanned{Street: "88 Pine Dr"})
	if !ok || got != (Canonical{Street: "88 Pine Dr"}) {
		t.Errorf("missing fields should default to empty, got %+v ok=%v", got, ok)
	}

	if _, ok := Canonicalize(Scanned{Street: "  ", City: "Detroit"}); ok {
		t.Error("scanned address without street should be absent")
	}
}

func TestCanonicalize_StoredRecord(t *testing.T) {
	tests := []struct {
		name   string
		input  StoredRecord
		want   Canonical
		wantOK bool
	}{
		{
			name:   "city falls back to second-to-last segment",
			input:  StoredRecord{LegalAddress: "123 Main Street, Detroit, MI 48201"},
			want:   Canonical{Street: "123 Main Street", City: "Detroit", State: "MI", Zip: "48201"},
			wantOK: true,
		},
		{
			name:   "city shares segment with state and zip",
			input:  StoredRecord{LegalAddress: "450 Elm Rd, Dayton oh 45402"},
			want:   Canonical{Street: "450 Elm Rd", City: "Dayton", State: "oh", Zip: "45402"},
			wantOK: true,
		},
		{
			name:   "zip plus four keeps five digits",
			input:  StoredRecord{LegalAddress: "1 Court Pl, Lansing, MI 48933-1234"},
			want:   Canonical{Street: "1 Court Pl", City: "Lansing", State: "MI", Zip: "48933"},
			wantOK: true,
		},
		{
			name:   "legal address preferred over normalized",
			input:  StoredRecord{LegalAddress: "10 First St, Flint, MI 48502", NormalizedAddress: "99 Other Ave, Troy, MI 48083"},
			want:   Canonical{Street: "10 First St", City: "Flint", State: "MI", Zip: "48502"},
			wantOK: true,
		},
		{
			name:   "normalized address used when legal missing",
			input:  StoredRecord{NormalizedAddress: "99 Other Ave, Troy, MI 48083"},
			want:   Canonical{Street: "99 Other Ave", City: "Troy", State: "MI", Zip: "48083"},
			wantOK: true,
		},
		{
			name:   "no pattern falls back to explicit fields",
			input:  StoredRecord{LegalAddress: "12 Birch Ln, Novi", City: "Novi", State: "MI", Zip: "48375"},
			want:   Canonical{Street: "12 Birch Ln", City: "Novi", State: "MI", Zip: "48375"},
			wantOK: true,
		},
		{
			name:   "parsed values win over explicit fields",
			input:  StoredRecord{LegalAddress: "5 Oak St, Detroit, MI 48201", City: "Wrong", State: "OH", Zip: "00000"},
			want:   Canonical{Street: "5 Oak St", City: "Detroit", State: "MI", Zip: "48201"},
			wantOK: true,
		},
		{
			name:   "two segments with bare state zip leaves city to explicit field",
			input:  StoredRecord{LegalAddress: "5 Oak St, MI 48201", City: "Detroit"},
			want:   Canonical{Street: "5 Oak St", City: "Detroit", State: "MI", Zip: "48201"},
			wantOK: true,
		},
		{
			name:   "single segment uses explicit fields",
			input:  StoredRecord{LegalAddress: "5 Oak St", City: "Detroit", State: "MI", Zip: "48201"},
			want:   Canonical{Street: "5 Oak St", City: "Detroit", State: "MI", Zip: "48201"},
			wantOK: true,
		},
		{
			name:   "no combined field is absent",
			input:  StoredRecord{City: "Detroit", State: "MI", Zip: "48201"},
			wantOK: false,
		},
		{
			name:   "combined field of commas is absent",
			input:  StoredRecord{LegalAddress: ",,"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Canonicalize(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Nil(t *testing.T) {
	if c, ok := Canonicalize(nil); ok || c != (Canonical{}) {
		t.Errorf("nil input should be absent, got %+v ok=%v", c, ok)
	}
}

func TestCanonical_String(t *testing.T) {
	c := Canonical{Street: "123 Main St", City: "Detroit", State: "MI", Zip: "48201"}
	if got := c.String(); got != "123 Main St, Detroit, MI 48201" {
		t.Errorf("String() = %q", got)
	}
	if got := (Canonical{Street: "123 Main St"}).String(); got != "123 Main St" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecodeRawInput(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    RawInput
		wantErr bool
	}{
		{"string is free form", `"123 Main St, Detroit, MI"`, FreeForm("123 Main St, Detroit, MI"), false},
		{"street key is scanned", `{"street":"1 A St","zip":"48201"}`, Scanned{Street: "1 A St", Zip: "48201"}, false},
		{"empty street key still scanned", `{"street":""}`, Scanned{}, false},
		{"legal address is stored", `{"legal_address":"1 A St, Detroit, MI 48201","city":"Detroit"}`, StoredRecord{LegalAddress: "1 A St, Detroit, MI 48201", City: "Detroit"}, false},
		{"null is absent", `null`, nil, false},
		{"empty is absent", ``, nil, false},
		{"number rejected", `42`, nil, true},
		{"array rejected", `["a"]`, nil, true},
		{"broken object rejected", `{"street":`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRawInput(json.RawMessage(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}
