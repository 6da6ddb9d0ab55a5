package address

import (
	"strings"
	"testing"
)

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name     string
		addr     Canonical
		expected string
	}{
		{
			name:     "scanned detroit address",
			addr:     Canonical{Street: "123 Main St", City: "Detroit", State: "MI", Zip: "48201"},
			expected: "123mainst-detroit-mi-48201",
		},
		{
			name:     "street designator folded",
			addr:     Canonical{Street: "123 Main Street", City: "Detroit", State: "MI", Zip: "48201"},
			expected: "123mainst-detroit-mi-48201",
		},
		{
			name:     "punctuation and spaces removed",
			addr:     Canonical{Street: "  1200 N. Woodward Ave., #4 ", City: "Royal Oak", State: "mi", Zip: "48067"},
			expected: "1200nwoodwardave4-royaloak-mi-48067",
		},
		{
			name:     "city keeps letters only",
			addr:     Canonical{Street: "1 A St", City: "St. Clair Shores 2", State: "MI", Zip: "48080"},
			expected: "1ast-stclairshores-mi-48080",
		},
		{
			name:     "full michigan collapses",
			addr:     Canonical{Street: "1 A St", City: "Flint", State: "Michigan", Zip: "48502"},
			expected: "1ast-flint-mi-48502",
		},
		{
			name:     "full ohio collapses",
			addr:     Canonical{Street: "1 A St", City: "Toledo", State: "ohio", Zip: "43604"},
			expected: "1ast-toledo-oh-43604",
		},
		{
			name:     "other full state names pass through",
			addr:     Canonical{Street: "1 A St", City: "Gary", State: "Indiana", Zip: "46402"},
			expected: "1ast-gary-indiana-46402",
		},
		{
			name:     "zip plus four truncated",
			addr:     Canonical{Street: "1 A St", City: "Troy", State: "MI", Zip: "48083-1234"},
			expected: "1ast-troy-mi-48083",
		},
		{
			name:     "empty tail",
			addr:     Canonical{Street: "500 Oak Ave"},
			expected: "500oakave---",
		},
		{
			name:     "designators inside names are folded too",
			addr:     Canonical{Street: "14 Wayland Drive", City: "Novi", State: "MI", Zip: "48375"},
			expected: "14waylanddr-novi-mi-48375",
		},
		{
			name:     "every designator",
			addr:     Canonical{Street: "Avenue Boulevard Road Lane Court Place Circle Apartment Suite Unit Way"},
			expected: "aveblvdrdlnctplciraptsteunitway---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchKey(tt.addr); got != tt.expected {
				t.Errorf("MatchKey(%+v) = %q, want %q", tt.addr, got, tt.expected)
			}
		})
	}
}

func TestMatchKey_StoredAndScannedAgree(t *testing.T) {
	stored, ok := Canonicalize(StoredRecord{LegalAddress: "123 Main Street, Detroit, MI 48201"})
	if !ok {
		t.Fatal("stored record should canonicalize")
	}
	scanned, ok := Canonicalize(Scanned{Street: "123 Main St", City: "Detroit", State: "MI", Zip: "48201"})
	if !ok {
		t.Fatal("scanned record should canonicalize")
	}

	want := "123mainst-detroit-mi-48201"
	if got := MatchKey(stored); got != want {
		t.Errorf("stored key = %q, want %q", got, want)
	}
	if got := MatchKey(scanned); got != want {
		t.Errorf("scanned key = %q, want %q", got, want)
	}
}

func TestMatchKey_AbbreviationFolding(t *testing.T) {
	long := MatchKey(Canonical{Street: "456 Oak Avenue", City: "Dearborn", State: "MI", Zip: "48124"})
	short := MatchKey(Canonical{Street: "456 Oak Ave", City: "Dearborn", State: "MI", Zip: "48124"})
	if long != short {
		t.Errorf("expected equal keys, got %q and %q", long, short)
	}
}

func TestMatchKey_StableUnderCaseAndWhitespace(t *testing.T) {
	base := Scanned{Street: "789 Cherry Lane", City: "Grand Rapids", State: "MI", Zip: "49503"}
	variants := []Scanned{
		{Street: "789 CHERRY LANE", City: "GRAND RAPIDS", State: "mi", Zip: "49503"},
		{Street: "  789   cherry   lane ", City: " grand  rapids ", State: " Mi ", Zip: " 49503 "},
		{Street: "789 Cherry Ln", City: "GrandRapids", State: "MI", Zip: "49503"},
	}

	c, _ := Canonicalize(base)
	want := MatchKey(c)
	if want != MatchKey(c) {
		t.Fatal("MatchKey is not deterministic")
	}
	for _, v := range variants {
		vc, ok := Canonicalize(v)
		if !ok {
			t.Fatalf("variant %+v did not canonicalize", v)
		}
		if got := MatchKey(vc); got != want {
			t.Errorf("variant %+v key = %q, want %q", v, got, want)
		}
	}
}

func TestMatchKey_NeverEmptyForPresentAddress(t *testing.T) {
	inputs := []RawInput{
		FreeForm("x"),
		FreeForm("!!!"),
		Scanned{Street: "#"},
		StoredRecord{NormalizedAddress: "-, -, -"},
	}
	for _, in := range inputs {
		c, ok := Canonicalize(in)
		if !ok {
			continue
		}
		key := MatchKey(c)
		if key == "" || strings.Count(key, "-") < 3 {
			t.Errorf("MatchKey(%+v) = %q, want a four-segment key", c, key)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	key := "123mainst-detroit-mi-48201"
	street, city, state, zip, ok := KeyParts(key)
	if !ok || street != "123mainst" || city != "detroit" || state != "mi" || zip != "48201" {
		t.Errorf("KeyParts(%q) = %q %q %q %q %v", key, street, city, state, zip, ok)
	}
	if _, _, _, _, ok := KeyParts("not-a-key"); ok {
		t.Error("KeyParts should reject three segments")
	}
	if got := KeySuffix(key); got != "-detroit-mi-48201" {
		t.Errorf("KeySuffix = %q", got)
	}
	if got := KeySuffix("nodash"); got != "" {
		t.Errorf("KeySuffix without separator = %q", got)
	}
}

func TestStreetSimilarity(t *testing.T) {
	a := "123mainst-detroit-mi-48201"
	if got := StreetSimilarity(a, a); got != 1.0 {
		t.Errorf("identical keys similarity = %v", got)
	}
	if got := StreetSimilarity(a, "123mainst-troy-mi-48083"); got != 0 {
		t.Errorf("different tails similarity = %v, want 0", got)
	}
	if got := StreetSimilarity(a, "132mainst-detroit-mi-48201"); got <= 0.7 || got >= 1 {
		t.Errorf("transposed digits similarity = %v, want high but below 1", got)
	}
	if got := StreetSimilarity("bad", a); got != 0 {
		t.Errorf("malformed key similarity = %v, want 0", got)
	}
}

func TestStreetSimilarity_StateWithSeparator(t *testing.T) {
	a := MatchKey(Canonical{Street: "12 Main St", City: "Detroit", State: "M-I", Zip: "48201"})
	b := MatchKey(Canonical{Street: "12 Mian St", City: "Detroit", State: "M-I", Zip: "48201"})
	if a != "12mainst-detroit-M-I-48201" {
		t.Fatalf("MatchKey = %q", a)
	}
	if got := StreetSimilarity(a, b); got <= 0.7 || got >= 1 {
		t.Errorf("similarity = %v, want high but below 1", got)
	}
	street, city, state, zip, ok := KeyParts(a)
	if !ok || street != "12mainst" || city != "detroit" || state != "M-I" || zip != "48201" {
		t.Errorf("KeyParts(%q) = %q %q %q %q %v", a, street, city, state, zip, ok)
	}
}

func BenchmarkMatchKey(b *testing.B) {
	c := Canonical{Street: "1200 North Woodward Avenue Suite 400", City: "Royal Oak", State: "Michigan", Zip: "48067-1234"}
	for i := 0; i < b.N; i++ {
		MatchKey(c)
	}
}

func BenchmarkCanonicalize_StoredRecord(b *testing.B) {
	r := StoredRecord{LegalAddress: "1200 North Woodward Avenue, Royal Oak, MI 48067"}
	for i := 0; i < b.N; i++ {
		Canonicalize(r)
	}
}
