package section

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is one persisted section, unique per (patient, consultation, kind).
type Record struct {
	PatientID      uuid.UUID       `json:"patient_id"`
	ConsultationID uuid.UUID       `json:"consultation_id"`
	Kind           Kind            `json:"kind"`
	Data           json.RawMessage `json:"data"`
	UpdatedBy      string          `json:"updated_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Store persists raw section records. Get returns ErrNotFound when the
// section has never been saved; Put overwrites.
type Store interface {
	Get(ctx context.Context, patientID, consultationID uuid.UUID, kind Kind) (*Record, error)
	Put(ctx context.Context, rec *Record) error
}
