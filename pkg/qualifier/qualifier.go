// Package qualifier stamps service attempts with a scheduling qualifier
// (weekday or weekend, morning or afternoon) used by reporting and billing.
package qualifier

import (
	"strings"
	"time"
)

// Qualifier is the scheduling class of a service attempt.
type Qualifier string

const (
	AM        Qualifier = "am"
	PM        Qualifier = "pm"
	AMWeekend Qualifier = "am_weekend"
	PMWeekend Qualifier = "pm_weekend"

	// Weekend and NTC are legacy values found on older attempts. Classify
	// never produces them; they exist so Label can render old data.
	Weekend Qualifier = "weekend"
	NTC     Qualifier = "ntc"
)

// Classify returns the qualifier for t, read in t's own location. Callers
// that care about the server's versus the attempt's time zone must convert
// first with t.In.
func Classify(t time.Time) Qualifier {
	wd := t.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	morning := t.Hour() < 12

	switch {
	case weekend && morning:
		return AMWeekend
	case weekend:
		return PMWeekend
	case morning:
		return AM
	default:
		return PM
	}
}

// Produced reports whether q is one of the four values Classify returns.
func (q Qualifier) Produced() bool {
	switch q {
	case AM, PM, AMWeekend, PMWeekend:
		return true
	}
	return false
}

// Label renders a qualifier for display. Unknown values come back
// upper-cased; an empty value stays empty.
func Label(raw string) string {
	switch Qualifier(raw) {
	case AM:
		return "AM"
	case PM:
		return "PM"
	case AMWeekend:
		return "AM WEEKEND"
	case PMWeekend:
		return "PM WEEKEND"
	case Weekend:
		return "WEEKEND"
	case NTC:
		return "NTC"
	}
	return strings.ToUpper(raw)
}

// Label is the display form of q.
func (q Qualifier) Label() string { return Label(string(q)) }

// All lists every qualifier Label knows about, produced ones first.
func All() []Qualifier {
	return []Qualifier{AM, PM, AMWeekend, PMWeekend, Weekend, NTC}
}
