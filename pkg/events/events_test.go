package events

import (
	"reflect"
	"testing"
	"time"

	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/qualifier"
)

func intp(v int) *int { return &v }

func TestNewAttempt(t *testing.T) {
	job := &geography.GeoPoint{Latitude: 42.3314, Longitude: -83.0458}
	here := &geography.GeoPoint{Latitude: 42.3314, Longitude: -83.0458}
	sat := time.Date(2024, 6, 1, 11, 59, 0, 0, time.UTC)

	a := NewAttempt("J-100", sat, here, job, "no answer")
	if a.Qualifier != qualifier.AMWeekend {
		t.Errorf("Qualifier = %q, want am_weekend", a.Qualifier)
	}
	if a.DistanceFeet == nil || *a.DistanceFeet != 0 {
		t.Errorf("DistanceFeet = %v, want 0", a.DistanceFeet)
	}

	noFix := NewAttempt("J-100", sat, nil, job, "")
	if noFix.DistanceFeet != nil {
		t.Errorf("missing position should give nil distance, got %d", *noFix.DistanceFeet)
	}
}

func TestSummarize(t *testing.T) {
	tue9 := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	tue13 := time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC)
	sat12 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	attempts := []StoredAttempt{
		{Seq: 1, AttemptRecorded: AttemptRecorded{JobID: "J-1", AttemptedAt: tue9, Qualifier: qualifier.AM, DistanceFeet: intp(40)}},
		{Seq: 2, AttemptRecorded: AttemptRecorded{JobID: "J-1", AttemptedAt: tue13, Qualifier: qualifier.PM}},
		{Seq: 3, AttemptRecorded: AttemptRecorded{JobID: "J-1", AttemptedAt: sat12, Qualifier: qualifier.PMWeekend, DistanceFeet: intp(900)}},
		{Seq: 4, AttemptRecorded: AttemptRecorded{JobID: "J-1", AttemptedAt: tue13, Qualifier: qualifier.PM}},
		{Seq: 5, AttemptRecorded: AttemptRecorded{JobID: "J-1", AttemptedAt: sat12, Qualifier: qualifier.Weekend}},
	}

	s := Summarize(attempts)
	if s.JobID != "J-1" || s.Total != 5 {
		t.Errorf("JobID/Total = %q/%d", s.JobID, s.Total)
	}
	want := map[qualifier.Qualifier]int{
		qualifier.AM:        1,
		qualifier.PM:        2,
		qualifier.PMWeekend: 1,
		qualifier.Weekend:   1,
	}
	if !reflect.DeepEqual(s.Counts, want) {
		t.Errorf("Counts = %v, want %v", s.Counts, want)
	}
	if s.Weekend() != 2 {
		t.Errorf("Weekend = %d, want 2", s.Weekend())
	}
	if s.First == nil || !s.First.Equal(sat12) || s.Last == nil || !s.Last.Equal(tue13) {
		t.Errorf("First/Last = %v/%v", s.First, s.Last)
	}
	if s.Farthest == nil || *s.Farthest != 900 {
		t.Errorf("Farthest = %v, want 900", s.Farthest)
	}

	missing := s.Missing(qualifier.AM, qualifier.PM, qualifier.AMWeekend)
	if !reflect.DeepEqual(missing, []qualifier.Qualifier{qualifier.AMWeekend}) {
		t.Errorf("Missing = %v", missing)
	}

	labels := s.Labels()
	if len(labels) != 4 || labels[0].Label != "AM" || labels[3].Label != "WEEKEND" {
		t.Errorf("Labels = %+v", labels)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.First != nil || s.Last != nil || s.Farthest != nil {
		t.Errorf("empty summary = %+v", s)
	}
	if s.Counts == nil {
		t.Error("Counts should be an empty map, not nil")
	}
}
