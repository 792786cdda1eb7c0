package section

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutribox/nutribox/internal/platform/db"
)

type storePG struct {
	pool *pgxpool.Pool
}

// NewPGStore keeps records in the section_record jsonb table.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) Get(ctx context.Context, patientID, consultationID uuid.UUID, kind Kind) (*Record, error) {
	rec := Record{PatientID: patientID, ConsultationID: consultationID, Kind: kind}
	var updatedBy *string
	err := s.pool.QueryRow(ctx, `
		SELECT data, updated_by, created_at, updated_at FROM section_record
		WHERE patient_id = $1 AND consultation_id = $2 AND kind = $3`,
		patientID, consultationID, string(kind),
	).Scan(&rec.Data, &updatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s section: %w", kind, err)
	}
	if updatedBy != nil {
		rec.UpdatedBy = *updatedBy
	}
	return &rec, nil
}

func (s *storePG) Put(ctx context.Context, rec *Record) error {
	var updatedBy *string
	if rec.UpdatedBy != "" {
		updatedBy = &rec.UpdatedBy
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO section_record (patient_id, consultation_id, kind, data, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_id, consultation_id, kind) DO UPDATE
			SET data = EXCLUDED.data, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING created_at, updated_at`,
		rec.PatientID, rec.ConsultationID, string(rec.Kind), []byte(rec.Data), updatedBy,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put %s section: %w", rec.Kind, err)
	}
	return nil
}
