// Package matching reconciles an incoming address against stored records:
// exact match-key hits, near matches in the same city/state/zip, and a
// proximity verdict for each. It reports candidates and never merges records.
package matching

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"address-reconciliation/internal/constants"
	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/models"
	"address-reconciliation/pkg/address"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/metrics"
)

type Status string

const (
	StatusUnkeyable Status = "unkeyable"
	StatusNoMatch   Status = "no_match"
	StatusMatch     Status = "match"
	StatusNearMatch Status = "near_match"
)

// Verdict is what the coordinates say about one candidate.
type Verdict string

const (
	VerdictCorroborated Verdict = "corroborated"
	VerdictDisputed     Verdict = "disputed"
	VerdictUnverified   Verdict = "unverified"
)

// Request is one address to reconcile. Position is where the address was
// observed; nil when unknown.
type Request struct {
	Input    address.RawInput
	Position *geography.GeoPoint
}

type Candidate struct {
	Record       models.AddressRecord `json:"record"`
	Exact        bool                 `json:"exact"`
	Similarity   float64              `json:"similarity"`
	DistanceFeet *int                 `json:"distance_feet"`
	Distance     string               `json:"distance"`
	Verdict      Verdict              `json:"verdict"`
}

type Result struct {
	Status     Status             `json:"status"`
	Canonical  *address.Canonical `json:"canonical"`
	MatchKey   *string            `json:"match_key"`
	Candidates []Candidate        `json:"candidates"`
}

var (
	mOutcomes = metrics.Default.CounterVec("reconcile_outcomes_total",
		"Reconciliation results by status", "status")
	mVerdicts = metrics.Default.CounterVec("reconcile_verdicts_total",
		"Candidate proximity verdicts", "verdict")
	mLatency = metrics.Default.Histogram("reconcile_duration_seconds",
		"Time to reconcile one address", nil)
	mAbsent = metrics.Default.Counter("canonicalize_absent_total",
		"Inputs that produced no canonical address")
)

type Service struct {
	repo        domain.AddressRepository
	rules       atomic.Pointer[Rules]
	concurrency atomic.Int64
	log         *logging.ComponentLogger
}

func NewService(repo domain.AddressRepository, rules Rules, concurrency int, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	s := &Service{repo: repo, log: log.WithComponent("matching")}
	_ = s.SetRules(rules)
	s.SetConcurrency(concurrency)
	return s
}

// SetRules swaps the rules used by subsequent calls. Invalid rules are
// ignored and the error returned.
func (s *Service) SetRules(r Rules) error {
	if err := r.Validate(); err != nil {
		if s.rules.Load() == nil {
			d := DefaultRules()
			s.rules.Store(&d)
		}
		return err
	}
	s.rules.Store(&r)
	return nil
}

func (s *Service) Rules() Rules { return *s.rules.Load() }

// SetConcurrency bounds ReconcileBatch fan-out; n <= 0 uses the default.
func (s *Service) SetConcurrency(n int) {
	if n <= 0 {
		n = constants.ReconcileConcurrencyDefault
	}
	s.concurrency.Store(int64(n))
}

// Reconcile canonicalizes req.Input and reports every stored record that
// shares its match key followed by near matches. Exact candidates come
// first, oldest record first.
func (s *Service) Reconcile(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	defer func() { mLatency.Observe(time.Since(start).Seconds()) }()

	canon, ok := address.Canonicalize(req.Input)
	if !ok {
		mAbsent.Inc()
		mOutcomes.WithLabelValues(string(StatusUnkeyable)).Inc()
		return Result{Status: StatusUnkeyable, Candidates: []Candidate{}}, nil
	}
	key := address.MatchKey(canon)
	rules := s.Rules()

	exact, err := s.repo.FindByMatchKeyCtx(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("find by match key: %w", err)
	}

	res := Result{Canonical: &canon, MatchKey: &key, Candidates: []Candidate{}}
	for _, rec := range exact {
		res.Candidates = append(res.Candidates, judge(rec, true, 1, req.Position, rules))
	}

	near, err := s.nearMatches(ctx, key, req.Position, rules)
	if err != nil {
		return Result{}, err
	}
	res.Candidates = append(res.Candidates, near...)

	switch {
	case len(exact) > 0:
		res.Status = StatusMatch
	case len(near) > 0:
		res.Status = StatusNearMatch
	default:
		res.Status = StatusNoMatch
	}

	for _, c := range res.Candidates {
		mVerdicts.WithLabelValues(string(c.Verdict)).Inc()
	}
	mOutcomes.WithLabelValues(string(res.Status)).Inc()
	s.log.WithContext(ctx).Debug("Reconciled address",
		logging.String("match_key", key),
		logging.String("status", string(res.Status)),
		logging.Int("candidates", len(res.Candidates)))
	return res, nil
}

// nearMatches lists records in the same city/state/zip whose street segment
// is similar enough, most similar first.
func (s *Service) nearMatches(ctx context.Context, key string, pos *geography.GeoPoint, rules Rules) ([]Candidate, error) {
	suffix := address.KeySuffix(key)
	recs, err := s.repo.FindByKeySuffixCtx(ctx, suffix, constants.NearMatchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("find by key suffix: %w", err)
	}
	var out []Candidate
	for _, rec := range recs {
		if rec.MatchKey == key {
			continue
		}
		sim := address.StreetSimilarity(key, rec.MatchKey)
		if sim < rules.NearMatchSimilarity {
			continue
		}
		out = append(out, judge(rec, false, sim, pos, rules))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

func judge(rec models.AddressRecord, exact bool, sim float64, pos *geography.GeoPoint, rules Rules) Candidate {
	d := geography.Distance(pos, rec.Position())
	c := Candidate{
		Record:       rec,
		Exact:        exact,
		Similarity:   sim,
		DistanceFeet: d,
		Distance:     geography.FormatDistance(d),
	}
	switch {
	case d == nil:
		c.Verdict = VerdictUnverified
	case *d <= rules.CorroborateWithinFeet:
		c.Verdict = VerdictCorroborated
	default:
		c.Verdict = VerdictDisputed
	}
	return c
}

// ReconcileBatch reconciles reqs concurrently and returns results in input
// order. The first store error cancels the rest.
func (s *Service) ReconcileBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) > constants.ReconcileBatchMaxItems {
		return nil, errs.NewValidation("matching.ReconcileBatch",
			fmt.Sprintf("batch of %d exceeds limit of %d", len(reqs), constants.ReconcileBatchMaxItems), nil)
	}
	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(s.concurrency.Load()))
	for i := range reqs {
		i := i
		g.Go(func() error {
			r, err := s.Reconcile(gctx, reqs[i])
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
