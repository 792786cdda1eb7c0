// Package export renders consultation documents for download.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/patient"
	"github.com/nutribox/nutribox/internal/domain/section"
)

type Document string

const (
	DocNutritionalPlan Document = "nutritional-plan"
	DocShoppingList    Document = "shopping-list"
	DocPrescriptions   Document = "prescriptions"
	DocGoalsChecklist  Document = "goals-checklist"
)

var Documents = []Document{DocNutritionalPlan, DocShoppingList, DocPrescriptions, DocGoalsChecklist}

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrEmptyDocument   = errors.New("nothing saved for this document")
)

// Block is one titled part of a document.
type Block struct {
	Heading   string
	Text      string
	Items     []string
	Checklist bool
}

// Content is a document before it is rendered to a format.
type Content struct {
	Document     Document
	Title        string
	PatientName  string
	Consultation int
	Date         time.Time
	Blocks       []Block
}

type ConsultationLookup interface {
	GetConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	sections      section.Store
	consultations ConsultationLookup
	patients      PatientLookup
}

func NewService(sections section.Store, consultations ConsultationLookup, patients PatientLookup) *Service {
	return &Service{sections: sections, consultations: consultations, patients: patients}
}

// Build gathers the data of one document.
func (s *Service) Build(ctx context.Context, patientID, consultationID uuid.UUID, doc Document) (*Content, error) {
	c, err := s.consultations.GetConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.PatientID != patientID {
		return nil, fmt.Errorf("%w: %s", section.ErrPatientMismatch, consultationID)
	}
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	content := &Content{Document: doc, PatientName: p.Name, Consultation: c.ConsultationNumber, Date: c.CreatedAt}
	if c.ConcludedAt != nil {
		content.Date = *c.ConcludedAt
	}

	switch doc {
	case DocNutritionalPlan, DocShoppingList:
		plan, err := section.NewProvider(s.sections, section.NutritionalPlanSchema).Load(ctx, patientID, consultationID)
		if err != nil {
			return nil, err
		}
		if doc == DocNutritionalPlan {
			content.Title = "Nutritional Plan"
			content.Blocks = planBlocks(plan)
		} else {
			content.Title = "Shopping List"
			content.Blocks = shoppingBlocks(plan)
		}
	case DocPrescriptions:
		plan, err := section.NewProvider(s.sections, section.NutritionalPlanSchema).Load(ctx, patientID, consultationID)
		if err != nil {
			return nil, err
		}
		history, err := section.NewProvider(s.sections, section.ClinicalHistorySchema).Load(ctx, patientID, consultationID)
		if err != nil {
			return nil, err
		}
		content.Title = "Prescriptions"
		content.Blocks = prescriptionBlocks(plan, history)
	case DocGoalsChecklist:
		goals, err := section.NewProvider(s.sections, section.GoalsSchema).Load(ctx, patientID, consultationID)
		if err != nil {
			return nil, err
		}
		content.Title = "Goals Checklist"
		content.Blocks = goalBlocks(goals)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}
	if len(content.Blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc)
	}
	return content, nil
}

func textBlock(heading, text string) (Block, bool) {
	text = strings.TrimSpace(text)
	return Block{Heading: heading, Text: text}, text != ""
}

func planBlocks(p *section.NutritionalPlan) []Block {
	if p == nil {
		return nil
	}
	var out []Block
	for _, m := range []struct{ heading, text string }{
		{"Breakfast", p.Breakfast},
		{"Morning snack", p.MorningSnack},
		{"Lunch", p.Lunch},
		{"Afternoon snack", p.AfternoonSnack},
		{"Dinner", p.Dinner},
		{"Supper", p.Supper},
	} {
		if b, ok := textBlock(m.heading, m.text); ok {
			out = append(out, b)
		}
	}
	if items := listItems(p.Guidelines); len(items) > 0 {
		out = append(out, Block{Heading: "Guidelines", Items: items})
	}
	return out
}

func shoppingBlocks(p *section.NutritionalPlan) []Block {
	if p == nil {
		return nil
	}
	items := listItems(p.ShoppingList)
	if len(items) == 0 {
		return nil
	}
	return []Block{{Heading: "Items", Items: items, Checklist: true}}
}

func prescriptionBlocks(p *section.NutritionalPlan, h *section.ClinicalHistory) []Block {
	var out []Block
	if p != nil {
		if b, ok := textBlock("Prescription", p.Prescriptions); ok {
			out = append(out, b)
		}
	}
	if h != nil {
		if b, ok := textBlock("Current supplements", h.Supplements); ok {
			out = append(out, b)
		}
		if b, ok := textBlock("Current medications", h.Medications); ok {
			out = append(out, b)
		}
	}
	return out
}

func goalBlocks(g *section.Goals) []Block {
	if g == nil || len(g.Goals) == 0 {
		return nil
	}
	items := make([]string, 0, len(g.Goals))
	for _, goal := range g.Goals {
		item := humanize(goal)
		if note := strings.TrimSpace(g.GoalNotes[goal]); note != "" {
			item += ": " + note
		}
		items = append(items, item)
	}
	out := []Block{{Heading: "Goals", Items: items, Checklist: true}}
	if b, ok := textBlock("Deadline", g.Deadline); ok {
		out = append(out, b)
	}
	if b, ok := textBlock("Notes", g.Notes); ok {
		out = append(out, b)
	}
	return out
}

// listItems splits multi-line text into items, dropping list markers.
func listItems(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func humanize(token string) string {
	s := strings.ReplaceAll(token, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
