// Package geography measures how far apart two coordinate fixes are and renders
// that distance for people. It is used to corroborate (or dispute) match key
// collisions between addresses.
package geography

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// EarthRadiusFeet is the mean Earth radius used by the haversine formula.
	EarthRadiusFeet = 20902231.0
	// FeetPerMile converts feet to statute miles.
	FeetPerMile = 5280
)

// GeoPoint is a coordinate fix in decimal degrees. A missing fix is a nil
// *GeoPoint; 0,0 is a real position.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint builds a point from optional coordinates. It returns nil unless both
// are present and finite.
func NewPoint(lat, lng *float64) *GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	p := &GeoPoint{Latitude: *lat, Longitude: *lng}
	if !p.valid() {
		return nil
	}
	return p
}

// PointInput is a fix as callers send it over the wire, where either
// coordinate may be left out.
type PointInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Point is nil for a nil input or one missing a coordinate.
func (in *PointInput) Point() *GeoPoint {
	if in == nil {
		return nil
	}
	return NewPoint(in.Latitude, in.Longitude)
}

func (p *GeoPoint) valid() bool {
	if p == nil {
		return false
	}
	for _, v := range [...]float64{p.Latitude, p.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// DistanceFeet returns the great-circle distance between a and b rounded to
// the nearest foot. ok is false when either fix is missing.
func DistanceFeet(a, b *GeoPoint) (feet int, ok bool) {
	if !a.valid() || !b.valid() {
		return 0, false
	}

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return int(math.Round(EarthRadiusFeet * c)), true
}

// Distance is DistanceFeet as a nullable value, the shape JSON callers want.
func Distance(a, b *GeoPoint) *int {
	feet, ok := DistanceFeet(a, b)
	if !ok {
		return nil
	}
	return &feet
}

var printer = message.NewPrinter(language.English)

// FormatDistance renders a distance for display: feet below a mile (with
// thousands separators from 100 ft up), miles with one decimal from a mile up.
func FormatDistance(feet *int) string {
	if feet == nil {
		return "Unknown"
	}
	f := *feet
	switch {
	case f < 100:
		return fmt.Sprintf("%d ft", f)
	case f < FeetPerMile:
		return printer.Sprintf("%d ft", f)
	default:
		return fmt.Sprintf("%.1f mi", float64(f)/FeetPerMile)
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
