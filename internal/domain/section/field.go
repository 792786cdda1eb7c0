package section

import (
	"fmt"
	"slices"
	"sort"
)

// Kind names one section type. The value doubles as the storage key.
type Kind string

const (
	KindClinicalHistory            Kind = "clinical_history"
	KindPhysicalAssessment         Kind = "physical_assessment"
	KindEmotionalAssessment        Kind = "emotional_assessment"
	KindBehavioralAssessment       Kind = "behavioral_assessment"
	KindWellnessAssessment         Kind = "wellness_assessment"
	KindNutritionalStructure       Kind = "nutritional_structure"
	KindNutritionalPersonalization Kind = "nutritional_personalization"
	KindNutritionalPlan            Kind = "nutritional_plan"
	KindGoals                      Kind = "goals"
)

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldChoice FieldType = "choice"
	FieldMulti  FieldType = "multi"
	FieldNotes  FieldType = "notes"
)

// Polarity tells comparison how to read a numeric change. The zero value
// marks a qualitative field.
type Polarity string

const (
	PolarityNone           Polarity = ""
	PolarityNeutral        Polarity = "neutral"
	PolarityLowerIsBetter  Polarity = "lower_is_better"
	PolarityHigherIsBetter Polarity = "higher_is_better"
)

// FieldInfo is the accessor-free description of a field.
type FieldInfo struct {
	Local     string    `json:"local"`
	Persisted string    `json:"persisted"`
	Label     string    `json:"label"`
	Type      FieldType `json:"type"`
	Options   []string  `json:"options,omitempty"`
	Cap       int       `json:"cap,omitempty"`
	NotesFor  string    `json:"notes_for,omitempty"`
	Polarity  Polarity  `json:"polarity,omitempty"`
}

func (fi FieldInfo) Numeric() bool { return fi.Polarity != PolarityNone }

func (fi FieldInfo) hasOption(v string) bool { return slices.Contains(fi.Options, v) }

// FieldValue is a field's content independent of its record type.
type FieldValue struct {
	Text  string            `json:"text,omitempty"`
	Items []string          `json:"items,omitempty"`
	Notes map[string]string `json:"notes,omitempty"`
}

func (v FieldValue) IsEmpty() bool {
	return v.Text == "" && len(v.Items) == 0 && len(v.Notes) == 0
}

// Equal compares item sets without regard to order.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Text != o.Text || len(v.Items) != len(o.Items) || len(v.Notes) != len(o.Notes) {
		return false
	}
	a, b := slices.Clone(v.Items), slices.Clone(o.Items)
	sort.Strings(a)
	sort.Strings(b)
	if !slices.Equal(a, b) {
		return false
	}
	for k, n := range v.Notes {
		if o.Notes[k] != n {
			return false
		}
	}
	return true
}

// Field binds a FieldInfo to the struct member of record type T holding it.
type Field[T any] struct {
	FieldInfo
	text  func(*T) *string
	items func(*T) *[]string
	notes func(*T) *map[string]string
}

func Text[T any](local, persisted, label string, get func(*T) *string) Field[T] {
	return Field[T]{FieldInfo: FieldInfo{Local: local, Persisted: persisted, Label: label, Type: FieldText}, text: get}
}

// Numeric is a free-text field whose content comparison parses as a number.
func Numeric[T any](local, persisted, label string, pol Polarity, get func(*T) *string) Field[T] {
	f := Text(local, persisted, label, get)
	f.Polarity = pol
	return f
}

func Choice[T any](local, persisted, label string, options []string, get func(*T) *string) Field[T] {
	return Field[T]{FieldInfo: FieldInfo{Local: local, Persisted: persisted, Label: label, Type: FieldChoice, Options: options}, text: get}
}

// Multi is a multi-select; cap 0 means unlimited.
func Multi[T any](local, persisted, label string, options []string, cap int, get func(*T) *[]string) Field[T] {
	return Field[T]{FieldInfo: FieldInfo{Local: local, Persisted: persisted, Label: label, Type: FieldMulti, Options: options, Cap: cap}, items: get}
}

// Notes holds one free-text note per selected item of the multi field named
// by notesFor (its local name).
func Notes[T any](local, persisted, label, notesFor string, get func(*T) *map[string]string) Field[T] {
	return Field[T]{FieldInfo: FieldInfo{Local: local, Persisted: persisted, Label: label, Type: FieldNotes, NotesFor: notesFor}, notes: get}
}

func (f Field[T]) value(r *T) FieldValue {
	switch f.Type {
	case FieldText, FieldChoice:
		return FieldValue{Text: *f.text(r)}
	case FieldMulti:
		return FieldValue{Items: slices.Clone(*f.items(r))}
	case FieldNotes:
		src := *f.notes(r)
		if len(src) == 0 {
			return FieldValue{}
		}
		out := make(map[string]string, len(src))
		for k, v := range src {
			out[k] = v
		}
		return FieldValue{Notes: out}
	}
	return FieldValue{}
}

// check reports whether r holds a legal value for f.
func (f Field[T]) check(r *T) error {
	switch f.Type {
	case FieldChoice:
		if v := *f.text(r); v != "" && !f.hasOption(v) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidOption, f.Persisted, v)
		}
	case FieldMulti:
		sel := *f.items(r)
		seen := make(map[string]bool, len(sel))
		for _, it := range sel {
			if !f.hasOption(it) {
				return fmt.Errorf("%w: %s=%q", ErrInvalidOption, f.Persisted, it)
			}
			if seen[it] {
				return fmt.Errorf("%w: %s lists %q twice", ErrInvalidOption, f.Persisted, it)
			}
			seen[it] = true
		}
		if f.Cap > 0 && len(sel) > f.Cap {
			return fmt.Errorf("%w: %s allows at most %d", ErrCapExceeded, f.Persisted, f.Cap)
		}
	}
	return nil
}
