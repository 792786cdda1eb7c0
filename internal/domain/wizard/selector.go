package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
)

// ConsultationProvider is the consultation store as seen by the wizard.
type ConsultationProvider interface {
	ListConsultations(ctx context.Context, patientID uuid.UUID) ([]*consultation.Consultation, error)
	CreateConsultation(ctx context.Context, patientID uuid.UUID, createdBy string) (*consultation.Consultation, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

// SelectionListener follows the selector. It is called without the
// selector's lock held.
type SelectionListener interface {
	// SelectionStarted fires before the provider is asked for a consultation.
	SelectionStarted()
	// SelectionSettled fires once the selection finishes. changed is false
	// when the attempt failed and active is the previous selection.
	SelectionSettled(active *consultation.Consultation, changed bool)
}

// Selector resolves the active consultation for one patient.
type Selector struct {
	patientID uuid.UUID
	actor     string
	provider  ConsultationProvider
	listener  SelectionListener

	op      sync.Mutex
	mu      sync.Mutex
	active  *consultation.Consultation
	loading bool
}

func NewSelector(patientID uuid.UUID, actor string, provider ConsultationProvider, listener SelectionListener) *Selector {
	return &Selector{patientID: patientID, actor: actor, provider: provider, listener: listener}
}

// Active returns a copy of the active consultation, or nil.
func (s *Selector) Active() *consultation.Consultation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	c := *s.active
	return &c
}

func (s *Selector) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// List returns the patient's consultations, newest first.
func (s *Selector) List(ctx context.Context) ([]*consultation.Consultation, error) {
	return s.provider.ListConsultations(ctx, s.patientID)
}

// Select makes the consultation active. A consultation of another patient
// is rejected and the previous selection stays active.
func (s *Selector) Select(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.begin()
	c, err := s.provider.GetConsultation(ctx, id)
	if err == nil && c.PatientID != s.patientID {
		err = fmt.Errorf("%w: %s", ErrConsultationMismatch, id)
	}
	return s.finish(c, err)
}

// CreateAndSelect opens a new consultation for the patient and selects it.
func (s *Selector) CreateAndSelect(ctx context.Context) (*consultation.Consultation, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.begin()
	c, err := s.provider.CreateConsultation(ctx, s.patientID, s.actor)
	return s.finish(c, err)
}

func (s *Selector) begin() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.SelectionStarted()
	}
}

func (s *Selector) finish(c *consultation.Consultation, err error) (*consultation.Consultation, error) {
	s.mu.Lock()
	s.loading = false
	if err == nil {
		cp := *c
		s.active = &cp
	}
	var active *consultation.Consultation
	if s.active != nil {
		cp := *s.active
		active = &cp
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.SelectionSettled(active, err == nil)
	}
	if err != nil {
		return nil, err
	}
	return active, nil
}
