package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"address-reconciliation/internal/location"
	"address-reconciliation/internal/models"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/events"
	"address-reconciliation/pkg/qualifier"
)

// MemoryRepo implements domain.Repository in memory with the same derivation
// and ordering rules as the MySQL store.
type MemoryRepo struct {
	Mu       sync.Mutex
	records  []models.AddressRecord
	attempts []events.StoredAttempt
	nextID   int64
	nextSeq  int64

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (m *MemoryRepo) SaveAddressRecordCtx(ctx context.Context, rec *models.AddressRecord) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if rec == nil {
		return errs.NewValidation("testutil.SaveAddressRecordCtx", "record is nil", nil)
	}
	if _, ok := rec.Derive(); !ok {
		return errs.NewValidation("testutil.SaveAddressRecordCtx", "address has no usable street", nil)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, *rec)
	return nil
}

func (m *MemoryRepo) GetAddressRecordCtx(ctx context.Context, id int64) (*models.AddressRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.records {
		if r.ID == id {
			rr := r
			return &rr, nil
		}
	}
	return nil, errs.NewNotFound("testutil.GetAddressRecordCtx", "address record", strconv.FormatInt(id, 10))
}

func (m *MemoryRepo) FindByMatchKeyCtx(ctx context.Context, key string) ([]models.AddressRecord, error) {
	return m.filter(func(r models.AddressRecord) bool { return key != "" && r.MatchKey == key }, 0)
}

func (m *MemoryRepo) FindByKeySuffixCtx(ctx context.Context, suffix string, limit int) ([]models.AddressRecord, error) {
	return m.filter(func(r models.AddressRecord) bool { return suffix != "" && r.KeySuffix == suffix }, limit)
}

func (m *MemoryRepo) filter(keep func(models.AddressRecord) bool, limit int) ([]models.AddressRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.AddressRecord{}
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryRepo) Append(ctx context.Context, attempts ...events.AttemptRecorded) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, a := range attempts {
		if a.JobID == "" {
			return errs.NewValidation("testutil.Append", "job id is required", nil)
		}
	}
	for _, a := range attempts {
		if a.Qualifier == "" {
			a.Qualifier = qualifier.Classify(a.AttemptedAt)
		}
		m.nextSeq++
		m.attempts = append(m.attempts, events.StoredAttempt{Seq: m.nextSeq, AttemptRecorded: a})
	}
	return nil
}

func (m *MemoryRepo) ListByJob(ctx context.Context, jobID string) ([]events.StoredAttempt, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []events.StoredAttempt{}
	for _, a := range m.attempts {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Records returns a copy of every stored record.
func (m *MemoryRepo) Records() []models.AddressRecord {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.AddressRecord(nil), m.records...)
}

// MockProvider implements location.Provider with a canned answer.
type MockProvider struct {
	Mu    sync.Mutex
	Pos   *location.Position
	Err   error
	Delay time.Duration
	Calls int
}

func (m *MockProvider) CurrentPosition(ctx context.Context) (*location.Position, error) {
	m.Mu.Lock()
	m.Calls++
	pos, err, delay := m.Pos, m.Err, m.Delay
	m.Mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, nil
	}
	p := *pos
	return &p, nil
}

// MockChat implements scanner.ChatCompleter, answering every request with Content.
type MockChat struct {
	Mu      sync.Mutex
	Content string
	Err     error
	Calls   int
}

func (m *MockChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return openai.ChatCompletionResponse{}, m.Err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.Content}}},
	}, nil
}
