package consultation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("consultation not found")
	ErrAlreadyConcluded = errors.New("consultation already concluded")
)

type Repository interface {
	// Create assigns ID, ConsultationNumber (max+1 for the patient) and CreatedAt.
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	// ListByPatient returns the patient's consultations, newest number first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error)
	// Conclude moves a draft to concluded; ErrAlreadyConcluded otherwise.
	Conclude(ctx context.Context, id uuid.UUID) (*Consultation, error)
}
