package consultation

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     = "draft"
	StatusConcluded = "concluded"
)

// Consultation is one visit of a patient and the join key for section data.
// ConsultationNumber is a 1-based ordinal per patient.
type Consultation struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	ConsultationNumber int        `db:"consultation_number" json:"consultation_number"`
	Status             string     `db:"status" json:"status"`
	CreatedBy          *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	ConcludedAt        *time.Time `db:"concluded_at" json:"concluded_at,omitempty"`
}

func (c *Consultation) IsConcluded() bool { return c.Status == StatusConcluded }
