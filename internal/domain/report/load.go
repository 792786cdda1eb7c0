package report

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/section"
)

// ConsultationLookup is the consultation store as seen by reports.
type ConsultationLookup interface {
	GetConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
	ListConcluded(ctx context.Context, patientID uuid.UUID) ([]*consultation.Consultation, error)
}

// SectionError reports one section that failed to load.
type SectionError struct {
	Kind           section.Kind `json:"kind"`
	ConsultationID uuid.UUID    `json:"consultation_id"`
	Message        string       `json:"message"`
}

type Service struct {
	sections      section.Store
	consultations ConsultationLookup
	logger        zerolog.Logger
}

func NewService(sections section.Store, consultations ConsultationLookup, logger zerolog.Logger) *Service {
	return &Service{sections: sections, consultations: consultations, logger: logger}
}

type loaded struct {
	values  section.Values
	updated time.Time
}

// sectionSet is every saved section of one consultation.
type sectionSet struct {
	consultationID uuid.UUID
	found          map[section.Kind]loaded
	errs           map[section.Kind]error
}

func newSectionSet(cid uuid.UUID) *sectionSet {
	return &sectionSet{consultationID: cid, found: make(map[section.Kind]loaded), errs: make(map[section.Kind]error)}
}

// loadSets loads every section of every consultation in parallel. A failed
// load is recorded for its section and never cancels the others.
func (s *Service) loadSets(ctx context.Context, patientID uuid.UUID, consultationIDs ...uuid.UUID) []*sectionSet {
	sets := make([]*sectionSet, len(consultationIDs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, cid := range consultationIDs {
		cid := cid
		set := newSectionSet(cid)
		sets[i] = set
		for _, d := range section.All() {
			d := d
			g.Go(func() error {
				rec, err := s.sections.Get(gctx, patientID, cid, d.Kind())
				if errors.Is(err, section.ErrNotFound) {
					return nil
				}
				var vals section.Values
				if err == nil {
					vals, err = d.Decode(rec.Data)
				}
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.Warn().Err(err).
						Str("kind", string(d.Kind())).
						Str("patient_id", patientID.String()).
						Str("consultation_id", cid.String()).
						Msg("report section load failed")
					set.errs[d.Kind()] = err
					return nil
				}
				set.found[d.Kind()] = loaded{values: vals, updated: rec.UpdatedAt}
				return nil
			})
		}
	}
	_ = g.Wait()
	return sets
}

func (set *sectionSet) sectionErrors() []SectionError {
	var out []SectionError
	for _, d := range section.All() {
		if err, ok := set.errs[d.Kind()]; ok {
			out = append(out, SectionError{Kind: d.Kind(), ConsultationID: set.consultationID, Message: err.Error()})
		}
	}
	return out
}

// Render formats a field value for display.
func Render(v section.FieldValue) string {
	switch {
	case v.Text != "":
		return v.Text
	case len(v.Notes) > 0:
		keys := make([]string, 0, len(v.Notes))
		for k := range v.Notes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.Notes[k])
		}
		return strings.Join(parts, "; ")
	default:
		return strings.Join(v.Items, ", ")
	}
}
