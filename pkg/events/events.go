// Package events records service attempts against a job and summarizes them
// by scheduling qualifier for reporting and billing.
package events

import (
	"encoding/json"
	"sort"
	"time"

	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/qualifier"
)

const TypeAttemptRecorded = "job.attempt.recorded"

// AttemptRecorded is appended each time a server tries to serve a job.
// Position is where the attempt was made; DistanceFeet is how far that was
// from the job address, nil when either fix is missing.
type AttemptRecorded struct {
	JobID        string              `json:"job_id"`
	AttemptedAt  time.Time           `json:"attempted_at"`
	Qualifier    qualifier.Qualifier `json:"qualifier"`
	Position     *geography.GeoPoint `json:"position,omitempty"`
	DistanceFeet *int                `json:"distance_feet"`
	Note         string              `json:"note,omitempty"`
}

func (e AttemptRecorded) Type() string                 { return TypeAttemptRecorded }
func (e AttemptRecorded) MarshalData() ([]byte, error) { return json.Marshal(e) }

// NewAttempt stamps an attempt made at `at` with its qualifier and its
// distance from the job address.
func NewAttempt(jobID string, at time.Time, position, jobAddress *geography.GeoPoint, note string) AttemptRecorded {
	return AttemptRecorded{
		JobID:        jobID,
		AttemptedAt:  at,
		Qualifier:    qualifier.Classify(at),
		Position:     position,
		DistanceFeet: geography.Distance(position, jobAddress),
		Note:         note,
	}
}

// StoredAttempt is a durable attempt. Seq is monotonic per table.
type StoredAttempt struct {
	Seq int64 `json:"seq"`
	AttemptRecorded
}

// Summary counts attempts per qualifier.
type Summary struct {
	JobID    string                      `json:"job_id"`
	Total    int                         `json:"total"`
	Counts   map[qualifier.Qualifier]int `json:"counts"`
	First    *time.Time                  `json:"first_attempt,omitempty"`
	Last     *time.Time                  `json:"last_attempt,omitempty"`
	Farthest *int                        `json:"farthest_feet,omitempty"`
}

// Summarize folds attempts into per-qualifier counts. Legacy qualifiers on
// old rows are counted under their own value.
func Summarize(attempts []StoredAttempt) Summary {
	s := Summary{Counts: make(map[qualifier.Qualifier]int)}
	for _, a := range attempts {
		if s.JobID == "" {
			s.JobID = a.JobID
		}
		s.Total++
		s.Counts[a.Qualifier]++

		at := a.AttemptedAt
		if s.First == nil || at.Before(*s.First) {
			s.First = &at
		}
		if s.Last == nil || at.After(*s.Last) {
			s.Last = &at
		}
		if a.DistanceFeet != nil && (s.Farthest == nil || *a.DistanceFeet > *s.Farthest) {
			d := *a.DistanceFeet
			s.Farthest = &d
		}
	}
	return s
}

// Weekend is the number of attempts made on Saturday or Sunday.
func (s Summary) Weekend() int {
	return s.Counts[qualifier.AMWeekend] + s.Counts[qualifier.PMWeekend] + s.Counts[qualifier.Weekend]
}

// Missing returns the required qualifiers that have no attempt yet, in the
// order given.
func (s Summary) Missing(required ...qualifier.Qualifier) []qualifier.Qualifier {
	var out []qualifier.Qualifier
	for _, q := range required {
		if s.Counts[q] == 0 {
			out = append(out, q)
		}
	}
	return out
}

// Labels renders the counts with display labels, sorted by label.
func (s Summary) Labels() []LabelCount {
	out := make([]LabelCount, 0, len(s.Counts))
	for q, n := range s.Counts {
		out = append(out, LabelCount{Qualifier: q, Label: q.Label(), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

type LabelCount struct {
	Qualifier qualifier.Qualifier `json:"qualifier"`
	Label     string              `json:"label"`
	Count     int                 `json:"count"`
}
