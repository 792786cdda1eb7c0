package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/section"
)

var (
	ErrIncompleteSelection = errors.New("both consultations must be chosen, or neither")
	ErrSameConsultation    = errors.New("cannot compare a consultation with itself")
	ErrNotConcluded        = errors.New("only concluded consultations can be compared")
)

type ComparisonStatus string

const (
	ComparisonReady        ComparisonStatus = "ready"
	ComparisonInsufficient ComparisonStatus = "insufficient_consultations"
)

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionEqual Direction = "equal"
)

type Outcome string

const (
	OutcomeImprovement Outcome = "improvement"
	OutcomeRegression  Outcome = "regression"
	OutcomeStable      Outcome = "stable"
	OutcomeNeutral     Outcome = "neutral"
)

type Change string

const (
	Changed   Change = "changed"
	Unchanged Change = "unchanged"
)

const insufficientMessage = "Conclude at least two consultations to compare progress."

// FieldComparison is one field across the two consultations. Numeric
// fields carry Delta, Direction and Outcome; all others carry Change.
type FieldComparison struct {
	Field     string    `json:"field"`
	Label     string    `json:"label"`
	First     string    `json:"first"`
	Second    string    `json:"second"`
	Value1    *float64  `json:"value1,omitempty"`
	Value2    *float64  `json:"value2,omitempty"`
	Delta     *float64  `json:"delta,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Change    Change    `json:"change,omitempty"`
}

type SectionComparison struct {
	Kind   section.Kind      `json:"kind"`
	Title  string            `json:"title"`
	Fields []FieldComparison `json:"fields"`
}

type Comparison struct {
	PatientID uuid.UUID                  `json:"patient_id"`
	Status    ComparisonStatus           `json:"status"`
	Message   string                     `json:"message,omitempty"`
	Concluded int                        `json:"concluded"`
	First     *consultation.Consultation `json:"first,omitempty"`
	Second    *consultation.Consultation `json:"second,omitempty"`
	Sections  []SectionComparison        `json:"sections"`
	Errors    []SectionError             `json:"errors,omitempty"`
}

// Compare contrasts two concluded consultations, older first. Without
// explicit ids the two most recent concluded ones are used. Fewer than two
// concluded consultations yields the insufficient state and no section is
// loaded.
func (s *Service) Compare(ctx context.Context, patientID uuid.UUID, firstID, secondID *uuid.UUID) (*Comparison, error) {
	if (firstID == nil) != (secondID == nil) {
		return nil, ErrIncompleteSelection
	}
	concluded, err := s.consultations.ListConcluded(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list concluded consultations: %w", err)
	}
	out := &Comparison{PatientID: patientID, Concluded: len(concluded), Sections: []SectionComparison{}}
	if len(concluded) < 2 {
		out.Status = ComparisonInsufficient
		out.Message = insufficientMessage
		return out, nil
	}

	var first, second *consultation.Consultation
	if firstID == nil {
		second, first = concluded[0], concluded[1]
	} else {
		if *firstID == *secondID {
			return nil, ErrSameConsultation
		}
		if first, err = s.concludedFor(ctx, patientID, *firstID); err != nil {
			return nil, err
		}
		if second, err = s.concludedFor(ctx, patientID, *secondID); err != nil {
			return nil, err
		}
		if first.ConsultationNumber > second.ConsultationNumber {
			first, second = second, first
		}
	}
	out.Status = ComparisonReady
	out.First, out.Second = first, second

	sets := s.loadSets(ctx, patientID, first.ID, second.ID)
	a, b := sets[0], sets[1]
	out.Errors = append(a.sectionErrors(), b.sectionErrors()...)

	for _, d := range section.All() {
		la, okA := a.found[d.Kind()]
		lb, okB := b.found[d.Kind()]
		if !okA && !okB {
			continue
		}
		sc := SectionComparison{Kind: d.Kind(), Title: d.Title()}
		for _, f := range d.Fields() {
			if fc, ok := compareField(f, la.values[f.Persisted], lb.values[f.Persisted]); ok {
				sc.Fields = append(sc.Fields, fc)
			}
		}
		if len(sc.Fields) > 0 {
			out.Sections = append(out.Sections, sc)
		}
	}
	return out, nil
}

func (s *Service) concludedFor(ctx context.Context, patientID, id uuid.UUID) (*consultation.Consultation, error) {
	c, err := s.consultationFor(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsConcluded() {
		return nil, fmt.Errorf("%w: consultation %d", ErrNotConcluded, c.ConsultationNumber)
	}
	return c, nil
}

// compareField reports false when the field is empty on both sides, or when
// a numeric field does not parse on either side.
func compareField(f section.FieldInfo, v1, v2 section.FieldValue) (FieldComparison, bool) {
	if v1.IsEmpty() && v2.IsEmpty() {
		return FieldComparison{}, false
	}
	fc := FieldComparison{Field: f.Persisted, Label: f.Label, First: Render(v1), Second: Render(v2)}
	if f.Numeric() {
		n1, ok1 := ParseNumber(v1.Text)
		n2, ok2 := ParseNumber(v2.Text)
		if !ok1 || !ok2 {
			return FieldComparison{}, false
		}
		delta := round2(n2 - n1)
		if delta == 0 {
			delta = 0 // drop -0
		}
		fc.Value1, fc.Value2, fc.Delta = &n1, &n2, &delta
		fc.Direction = direction(n2 - n1)
		fc.Outcome = outcome(f.Polarity, fc.Direction)
		return fc, true
	}
	fc.Change = Unchanged
	if !v1.Equal(v2) {
		fc.Change = Changed
	}
	return fc, true
}

func direction(delta float64) Direction {
	switch {
	case delta > 0:
		return DirectionUp
	case delta < 0:
		return DirectionDown
	default:
		return DirectionEqual
	}
}

func outcome(p section.Polarity, d Direction) Outcome {
	if p != section.PolarityLowerIsBetter && p != section.PolarityHigherIsBetter {
		return OutcomeNeutral
	}
	switch {
	case d == DirectionEqual:
		return OutcomeStable
	case (d == DirectionDown) == (p == section.PolarityLowerIsBetter):
		return OutcomeImprovement
	default:
		return OutcomeRegression
	}
}
