package consultation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a process-local Repository used by tests of packages that
// consume consultations.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Consultation
	Now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[uuid.UUID]*Consultation), Now: time.Now}
}

func (m *MemoryRepo) Create(_ context.Context, c *Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, other := range m.items {
		if other.PatientID == c.PatientID && other.ConsultationNumber > max {
			max = other.ConsultationNumber
		}
	}
	c.ID = uuid.New()
	c.ConsultationNumber = max + 1
	c.CreatedAt = m.Now()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Consultation
	for _, c := range m.items {
		if c.PatientID == patientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConsultationNumber > out[j].ConsultationNumber })
	return out, nil
}

func (m *MemoryRepo) Conclude(_ context.Context, id uuid.UUID) (*Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.IsConcluded() {
		return nil, ErrAlreadyConcluded
	}
	now := m.Now()
	c.Status = StatusConcluded
	c.ConcludedAt = &now
	cp := *c
	return &cp, nil
}
