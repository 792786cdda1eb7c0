package section

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Values maps persisted field names to their content.
type Values map[string]FieldValue

// Descriptor is the type-erased view of a Schema used wherever the concrete
// record type does not matter (registry, aggregation, HTTP).
type Descriptor interface {
	Kind() Kind
	Title() string
	Step() string
	Fields() []FieldInfo
	// Decode parses a persisted record into Values.
	Decode(raw json.RawMessage) (Values, error)
	// Normalize validates a persisted record and returns its canonical
	// encoding, with notes of unselected items removed.
	Normalize(raw json.RawMessage) (json.RawMessage, error)
	NewEditor(store Store, opts EditorOptions) Editor
}

// Schema describes record type T: its kind, wizard position and field table.
type Schema[T any] struct {
	kind    Kind
	title   string
	step    string
	fields  []Field[T]
	byLocal map[string]int
}

// NewSchema panics on an inconsistent field table; schemas are package
// level values so this fires at init.
func NewSchema[T any](kind Kind, title, step string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{kind: kind, title: title, step: step, fields: fields, byLocal: make(map[string]int, len(fields))}
	persisted := make(map[string]bool, len(fields))
	for i, f := range fields {
		if _, dup := s.byLocal[f.Local]; dup {
			panic(fmt.Sprintf("section %s: duplicate field %s", kind, f.Local))
		}
		if persisted[f.Persisted] {
			panic(fmt.Sprintf("section %s: duplicate persisted name %s", kind, f.Persisted))
		}
		s.byLocal[f.Local] = i
		persisted[f.Persisted] = true
	}
	for _, f := range fields {
		if f.Type != FieldNotes {
			continue
		}
		target, ok := s.field(f.NotesFor)
		if !ok || target.Type != FieldMulti {
			panic(fmt.Sprintf("section %s: notes field %s refers to %q which is not a multi field", kind, f.Local, f.NotesFor))
		}
	}
	return s
}

func (s *Schema[T]) Kind() Kind    { return s.kind }
func (s *Schema[T]) Title() string { return s.title }
func (s *Schema[T]) Step() string  { return s.step }

func (s *Schema[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.FieldInfo
	}
	return out
}

func (s *Schema[T]) field(local string) (Field[T], bool) {
	i, ok := s.byLocal[local]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

// notesFor returns the notes field attached to the multi field local.
func (s *Schema[T]) notesFor(local string) (Field[T], bool) {
	for _, f := range s.fields {
		if f.Type == FieldNotes && f.NotesFor == local {
			return f, true
		}
	}
	return Field[T]{}, false
}

// Values flattens r by persisted name.
func (s *Schema[T]) Values(r *T) Values {
	out := make(Values, len(s.fields))
	for _, f := range s.fields {
		out[f.Persisted] = f.value(r)
	}
	return out
}

// Check validates every field of r.
func (s *Schema[T]) Check(r *T) error {
	var errs []error
	for _, f := range s.fields {
		if err := f.check(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// prune returns a copy of r fit for persistence: notes are limited to the
// selected items of their multi field and empty notes are dropped.
func (s *Schema[T]) prune(r *T) *T {
	out := s.clone(r)
	for _, f := range s.fields {
		if f.Type != FieldNotes {
			continue
		}
		target, _ := s.field(f.NotesFor)
		selected := make(map[string]bool)
		for _, it := range *target.items(out) {
			selected[it] = true
		}
		notes := f.notes(out)
		kept := make(map[string]string)
		for item, note := range *notes {
			if selected[item] && note != "" {
				kept[item] = note
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		*notes = kept
	}
	return out
}

// clone deep-copies r through its JSON form; records hold only strings,
// string slices and string maps.
func (s *Schema[T]) clone(r *T) *T {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("section %s: marshal record: %v", s.kind, err))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("section %s: unmarshal record: %v", s.kind, err))
	}
	return &out
}

// decode strictly parses a persisted record; unknown keys are rejected.
func (s *Schema[T]) decode(raw json.RawMessage) (*T, error) {
	var r T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &r, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, s.kind, err)
	}
	return &r, nil
}

func (s *Schema[T]) Decode(raw json.RawMessage) (Values, error) {
	var r T
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.kind, err)
	}
	return s.Values(&r), nil
}

func (s *Schema[T]) Normalize(raw json.RawMessage) (json.RawMessage, error) {
	r, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if err := s.Check(r); err != nil {
		return nil, err
	}
	return json.Marshal(s.prune(r))
}

func (s *Schema[T]) NewEditor(store Store, opts EditorOptions) Editor {
	return NewEditor(s, NewProvider(store, s), opts)
}
