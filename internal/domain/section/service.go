package section

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
)

// ConsultationLookup resolves a consultation so access can be checked
// against the patient in the URL.
type ConsultationLookup interface {
	GetConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

// Service reads and writes persisted sections outside a wizard session.
type Service struct {
	store         Store
	consultations ConsultationLookup
}

func NewService(store Store, consultations ConsultationLookup) *Service {
	return &Service{store: store, consultations: consultations}
}

func (s *Service) checkOwner(ctx context.Context, patientID, consultationID uuid.UUID) error {
	if s.consultations == nil {
		return nil
	}
	c, err := s.consultations.GetConsultation(ctx, consultationID)
	if err != nil {
		return err
	}
	if c.PatientID != patientID {
		return ErrPatientMismatch
	}
	return nil
}

// GetSection returns the saved record, or an empty record with a zero
// UpdatedAt when the section was never saved.
func (s *Service) GetSection(ctx context.Context, patientID, consultationID uuid.UUID, kind Kind) (*Record, error) {
	if _, ok := Lookup(kind); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := s.checkOwner(ctx, patientID, consultationID); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, patientID, consultationID, kind)
	if errors.Is(err, ErrNotFound) {
		return &Record{PatientID: patientID, ConsultationID: consultationID, Kind: kind, Data: json.RawMessage(`{}`)}, nil
	}
	return rec, err
}

func (s *Service) PutSection(ctx context.Context, patientID, consultationID uuid.UUID, kind Kind, data json.RawMessage, actor string) (*Record, error) {
	d, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := s.checkOwner(ctx, patientID, consultationID); err != nil {
		return nil, err
	}
	normalized, err := d.Normalize(data)
	if err != nil {
		return nil, err
	}
	rec := &Record{PatientID: patientID, ConsultationID: consultationID, Kind: kind, Data: normalized, UpdatedBy: actor}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return rec, nil
}
