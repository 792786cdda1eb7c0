package section

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Provider is the typed load/save contract for one section kind.
type Provider[T any] struct {
	store  Store
	schema *Schema[T]
}

func NewProvider[T any](store Store, schema *Schema[T]) *Provider[T] {
	return &Provider[T]{store: store, schema: schema}
}

// Load returns nil without error when the section was never saved.
func (p *Provider[T]) Load(ctx context.Context, patientID, consultationID uuid.UUID) (*T, error) {
	rec, err := p.store.Get(ctx, patientID, consultationID, p.schema.kind)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s section: %w", p.schema.kind, err)
	}
	return &v, nil
}

// Save writes the full record under its persisted names.
func (p *Provider[T]) Save(ctx context.Context, patientID, consultationID uuid.UUID, v *T, actor string) error {
	if err := p.schema.Check(v); err != nil {
		return err
	}
	data, err := json.Marshal(p.schema.prune(v))
	if err != nil {
		return fmt.Errorf("encode %s section: %w", p.schema.kind, err)
	}
	return p.store.Put(ctx, &Record{
		PatientID:      patientID,
		ConsultationID: consultationID,
		Kind:           p.schema.kind,
		Data:           data,
		UpdatedBy:      actor,
	})
}
