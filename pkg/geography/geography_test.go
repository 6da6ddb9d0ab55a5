package geography

import (
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func TestDistanceFeet_SamePoint(t *testing.T) {
	points := []GeoPoint{
		{42.3314, -83.0458},
		{0, 0},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		p := p
		if d, ok := DistanceFeet(&p, &p); !ok || d != 0 {
			t.Errorf("DistanceFeet(%v, %v) = %d, %v; want 0, true", p, p, d, ok)
		}
	}
}

func TestDistanceFeet_Known(t *testing.T) {
	tests := []struct {
		name    string
		a, b    GeoPoint
		want    int
		tolerPc float64
	}{
		{
			// one degree of latitude is R*pi/180 feet
			name:    "one degree latitude",
			a:       GeoPoint{42, -83},
			b:       GeoPoint{43, -83},
			want:    int(math.Round(EarthRadiusFeet * math.Pi / 180)),
			tolerPc: 0,
		},
		{
			name:    "detroit to ann arbor",
			a:       GeoPoint{42.3314, -83.0458},
			b:       GeoPoint{42.2808, -83.7430},
			want:    189000,
			tolerPc: 0.01,
		},
		{
			name:    "across the equator",
			a:       GeoPoint{-0.5, 10},
			b:       GeoPoint{0.5, 10},
			want:    int(math.Round(EarthRadiusFeet * math.Pi / 180)),
			tolerPc: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DistanceFeet(&tt.a, &tt.b)
			if !ok {
				t.Fatal("expected a distance")
			}
			diff := math.Abs(float64(got - tt.want))
			if diff > float64(tt.want)*tt.tolerPc+1 {
				t.Errorf("DistanceFeet = %d, want %d (±%.0f%%)", got, tt.want, tt.tolerPc*100)
			}
		})
	}
}

func TestDistanceFeet_Symmetric(t *testing.T) {
	pairs := [][2]GeoPoint{
		{{42.3314, -83.0458}, {42.3320, -83.0470}},
		{{41.6528, -83.5379}, {39.9612, -82.9988}},
		{{10, 170}, {-10, -170}},
	}
	for _, p := range pairs {
		ab, _ := DistanceFeet(&p[0], &p[1])
		ba, _ := DistanceFeet(&p[1], &p[0])
		if ab != ba {
			t.Errorf("asymmetric distance %d vs %d for %v", ab, ba, p)
		}
	}
}

func TestDistanceFeet_Monotonic(t *testing.T) {
	origin := GeoPoint{42.0, -83.0}
	prev := -1
	for i := 1; i <= 10; i++ {
		p := GeoPoint{42.0 + float64(i)*0.001, -83.0}
		d, _ := DistanceFeet(&origin, &p)
		if d <= prev {
			t.Fatalf("distance not increasing at step %d: %d <= %d", i, d, prev)
		}
		prev = d
	}
}

func TestDistanceFeet_MissingFix(t *testing.T) {
	p := &GeoPoint{42.3314, -83.0458}
	if _, ok := DistanceFeet(nil, p); ok {
		t.Error("nil first point should not yield a distance")
	}
	if _, ok := DistanceFeet(p, nil); ok {
		t.Error("nil second point should not yield a distance")
	}
	if _, ok := DistanceFeet(&GeoPoint{math.NaN(), 1}, p); ok {
		t.Error("NaN latitude should not yield a distance")
	}
	if Distance(nil, p) != nil {
		t.Error("Distance should be nil without a fix")
	}
	if d := Distance(p, p); d == nil || *d != 0 {
		t.Errorf("Distance(p, p) = %v", d)
	}
}

func TestNewPoint(t *testing.T) {
	if NewPoint(nil, f64(1)) != nil || NewPoint(f64(1), nil) != nil {
		t.Error("missing coordinate should produce nil point")
	}
	if NewPoint(f64(math.Inf(1)), f64(1)) != nil {
		t.Error("infinite coordinate should produce nil point")
	}
	p := NewPoint(f64(0), f64(0))
	if p == nil || p.Latitude != 0 || p.Longitude != 0 {
		t.Errorf("0,0 should be a real point, got %v", p)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		name     string
		feet     *int
		expected string
	}{
		{"unknown", nil, "Unknown"},
		{"zero", intp(0), "0 ft"},
		{"short", intp(50), "50 ft"},
		{"just under hundred", intp(99), "99 ft"},
		{"hundred", intp(100), "100 ft"},
		{"thousands separator", intp(2500), "2,500 ft"},
		{"just under a mile", intp(5279), "5,279 ft"},
		{"one mile", intp(5280), "1.0 mi"},
		{"two miles", intp(10560), "2.0 mi"},
		{"fractional miles", intp(7920), "1.5 mi"},
		{"long haul", intp(1056000), "200.0 mi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDistance(tt.feet); got != tt.expected {
				t.Errorf("FormatDistance() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func BenchmarkDistanceFeet(b *testing.B) {
	a := &GeoPoint{42.3314, -83.0458}
	c := &GeoPoint{42.2808, -83.7430}
	for i := 0; i < b.N; i++ {
		DistanceFeet(a, c)
	}
}

func BenchmarkFormatDistance(b *testing.B) {
	d := 2500
	for i := 0; i < b.N; i++ {
		FormatDistance(&d)
	}
}

func TestPointInput(t *testing.T) {
	lat, lng := 42.3314, -83.0458
	tests := []struct {
		name string
		in   *PointInput
		want *GeoPoint
	}{
		{"nil input", nil, nil},
		{"empty", &PointInput{}, nil},
		{"missing longitude", &PointInput{Latitude: &lat}, nil},
		{"missing latitude", &PointInput{Longitude: &lng}, nil},
		{"complete", &PointInput{Latitude: &lat, Longitude: &lng}, &GeoPoint{Latitude: lat, Longitude: lng}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Point()
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Point() = %v, want %v", got, tt.want)
			}
		})
	}
}
