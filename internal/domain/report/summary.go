package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/section"
)

type SummaryField struct {
	Field string             `json:"field"`
	Label string             `json:"label"`
	Value section.FieldValue `json:"value"`
	Text  string             `json:"text"`
}

type SectionSummary struct {
	Kind      section.Kind   `json:"kind"`
	Title     string         `json:"title"`
	Step      string         `json:"step"`
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    []SummaryField `json:"fields"`
}

// Summary is every filled section of one consultation. Empty is set when
// no section holds data.
type Summary struct {
	PatientID    uuid.UUID                  `json:"patient_id"`
	Consultation *consultation.Consultation `json:"consultation"`
	Empty        bool                       `json:"empty"`
	Message      string                     `json:"message,omitempty"`
	Sections     []SectionSummary           `json:"sections"`
	Errors       []SectionError             `json:"errors,omitempty"`
}

const emptySummaryMessage = "No section has been filled for this consultation yet."

func (s *Service) consultationFor(ctx context.Context, patientID, id uuid.UUID) (*consultation.Consultation, error) {
	c, err := s.consultations.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.PatientID != patientID {
		return nil, fmt.Errorf("%w: %s", section.ErrPatientMismatch, id)
	}
	return c, nil
}

func (s *Service) Summary(ctx context.Context, patientID, consultationID uuid.UUID) (*Summary, error) {
	c, err := s.consultationFor(ctx, patientID, consultationID)
	if err != nil {
		return nil, err
	}
	set := s.loadSets(ctx, patientID, consultationID)[0]

	out := &Summary{PatientID: patientID, Consultation: c, Sections: []SectionSummary{}, Errors: set.sectionErrors()}
	for _, d := range section.All() {
		l, ok := set.found[d.Kind()]
		if !ok {
			continue
		}
		ss := SectionSummary{Kind: d.Kind(), Title: d.Title(), Step: d.Step(), UpdatedAt: l.updated}
		for _, f := range d.Fields() {
			v := l.values[f.Persisted]
			if v.IsEmpty() {
				continue
			}
			ss.Fields = append(ss.Fields, SummaryField{Field: f.Persisted, Label: f.Label, Value: v, Text: Render(v)})
		}
		if len(ss.Fields) > 0 {
			out.Sections = append(out.Sections, ss)
		}
	}
	if len(out.Sections) == 0 {
		out.Empty = true
		out.Message = emptySummaryMessage
	}
	return out, nil
}
