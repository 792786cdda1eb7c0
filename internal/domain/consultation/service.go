package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/patient"
)

// PatientLookup confirms a patient exists before a consultation is opened.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) CreateConsultation(ctx context.Context, patientID uuid.UUID, createdBy string) (*Consultation, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if s.patients != nil {
		if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
			return nil, fmt.Errorf("lookup patient %s: %w", patientID, err)
		}
	}
	c := &Consultation{PatientID: patientID, Status: StatusDraft}
	if createdBy != "" {
		c.CreatedBy = &createdBy
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListConsultations(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListConcluded keeps the newest-first order of ListConsultations.
func (s *Service) ListConcluded(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	all, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]*Consultation, 0, len(all))
	for _, c := range all {
		if c.IsConcluded() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) ConcludeConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.Conclude(ctx, id)
}
