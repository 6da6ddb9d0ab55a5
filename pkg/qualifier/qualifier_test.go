package qualifier

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	detroit, err := time.LoadLocation("America/Detroit")
	if err != nil {
		detroit = time.FixedZone("EST", -5*3600)
	}

	// 2024-06-01 is a Saturday, 2024-06-04 a Tuesday
	tests := []struct {
		name     string
		ts       time.Time
		expected Qualifier
	}{
		{"saturday just before noon", time.Date(2024, 6, 1, 11, 59, 0, 0, time.UTC), AMWeekend},
		{"saturday noon", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), PMWeekend},
		{"sunday midnight", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), AMWeekend},
		{"sunday late evening", time.Date(2024, 6, 2, 23, 59, 59, 0, time.UTC), PMWeekend},
		{"tuesday morning", time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC), AM},
		{"tuesday afternoon", time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC), PM},
		{"monday midnight", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), AM},
		{"friday just before midnight", time.Date(2024, 6, 7, 23, 59, 0, 0, time.UTC), PM},
		{"local zone is used", time.Date(2024, 6, 4, 9, 0, 0, 0, detroit), AM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ts); got != tt.expected {
				t.Errorf("Classify(%s) = %q, want %q", tt.ts, got, tt.expected)
			}
		})
	}
}

func TestClassify_CallerZone(t *testing.T) {
	// Saturday 02:00 UTC is still Friday evening five hours west.
	utc := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)
	if got := Classify(utc); got != AMWeekend {
		t.Fatalf("utc classify = %q", got)
	}
	west := utc.In(time.FixedZone("UTC-5", -5*3600))
	if got := Classify(west); got != PM {
		t.Errorf("shifted classify = %q, want %q", got, PM)
	}
}

func TestClassify_Total(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h++ {
		q := Classify(start.Add(time.Duration(h) * time.Hour))
		if !q.Produced() {
			t.Fatalf("hour %d produced unexpected qualifier %q", h, q)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"am", "AM"},
		{"pm", "PM"},
		{"am_weekend", "AM WEEKEND"},
		{"pm_weekend", "PM WEEKEND"},
		{"weekend", "WEEKEND"},
		{"ntc", "NTC"},
		{"holiday", "HOLIDAY"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Label(tt.raw); got != tt.expected {
				t.Errorf("Label(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}

	if AMWeekend.Label() != "AM WEEKEND" {
		t.Errorf("method Label = %q", AMWeekend.Label())
	}
}

func TestProduced(t *testing.T) {
	for _, q := range All() {
		want := q != Weekend && q != NTC
		if q.Produced() != want {
			t.Errorf("%q.Produced() = %v, want %v", q, q.Produced(), want)
		}
	}
}
