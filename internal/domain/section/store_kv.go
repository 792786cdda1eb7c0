package section

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/platform/kvstore"
)

type storeKV struct {
	kv  kvstore.Store
	now func() time.Time
}

// NewKVStore keeps records as JSON documents under
// section:<kind>:<patient>:<consultation>.
func NewKVStore(kv kvstore.Store) Store {
	return &storeKV{kv: kv, now: time.Now}
}

func recordKey(patientID, consultationID uuid.UUID, kind Kind) string {
	return fmt.Sprintf("section:%s:%s:%s", kind, patientID, consultationID)
}

func (s *storeKV) Get(ctx context.Context, patientID, consultationID uuid.UUID, kind Kind) (*Record, error) {
	raw, err := s.kv.Load(ctx, recordKey(patientID, consultationID, kind))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s section: %w", kind, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s section: %w", kind, err)
	}
	return &rec, nil
}

func (s *storeKV) Put(ctx context.Context, rec *Record) error {
	key := recordKey(rec.PatientID, rec.ConsultationID, rec.Kind)
	now := s.now().UTC()
	rec.CreatedAt = now
	if prev, err := s.Get(ctx, rec.PatientID, rec.ConsultationID, rec.Kind); err == nil {
		rec.CreatedAt = prev.CreatedAt
	}
	rec.UpdatedAt = now

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s section: %w", rec.Kind, err)
	}
	if err := s.kv.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("put %s section: %w", rec.Kind, err)
	}
	return nil
}
