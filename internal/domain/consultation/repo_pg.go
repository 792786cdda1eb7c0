package consultation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutribox/nutribox/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const consultationCols = `id, patient_id, consultation_number, status, created_by, created_at, concluded_at`

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	// two concurrent creates for one patient race on the number; the unique
	// constraint rejects the loser and we retry once
	for attempt := 0; ; attempt++ {
		c.ID = uuid.New()
		err := r.pool.QueryRow(ctx, `
			INSERT INTO consultation (id, patient_id, consultation_number, status, created_by)
			SELECT $1, $2, COALESCE(MAX(consultation_number), 0) + 1, $3, $4
			FROM consultation WHERE patient_id = $2
			RETURNING consultation_number, created_at`,
			c.ID, c.PatientID, c.Status, c.CreatedBy,
		).Scan(&c.ConsultationNumber, &c.CreatedAt)
		var pgErr *pgconn.PgError
		if err != nil && errors.As(err, &pgErr) && pgErr.Code == "23505" && attempt == 0 {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert consultation: %w", err)
		}
		return nil
	}
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := scanConsultation(r.pool.QueryRow(ctx, `SELECT `+consultationCols+` FROM consultation WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+consultationCols+` FROM consultation
		WHERE patient_id = $1 ORDER BY consultation_number DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) Conclude(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := scanConsultation(r.pool.QueryRow(ctx, `
		UPDATE consultation SET status = 'concluded', concluded_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+consultationCols, id))
	if !db.IsNoRows(err) {
		return c, err
	}
	// either missing or not a draft
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyConcluded
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.PatientID, &c.ConsultationNumber, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.ConcludedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
