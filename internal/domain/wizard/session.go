package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/section"
)

type ChangeOp string

const (
	OpSet    ChangeOp = "set"
	OpToggle ChangeOp = "toggle"
	OpNote   ChangeOp = "note"
)

// Change is one edit to a section's local state.
type Change struct {
	Op    ChangeOp `json:"op" validate:"required,oneof=set toggle note"`
	Field string   `json:"field" validate:"required"`
	Value string   `json:"value"`
	Item  string   `json:"item,omitempty"`
}

// SessionView is the wizard state a client renders around the current
// section.
type SessionView struct {
	ID           uuid.UUID                  `json:"id"`
	PatientID    uuid.UUID                  `json:"patient_id"`
	CoachID      string                     `json:"coach_id"`
	Consultation *consultation.Consultation `json:"consultation,omitempty"`
	Loading      bool                       `json:"loading"`
	State        State                      `json:"state"`
	CanNext      bool                       `json:"can_next"`
	CanPrevious  bool                       `json:"can_previous"`
	Section      section.Kind               `json:"section,omitempty"`
	Steps        []Step                     `json:"steps"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// Session is one coach's wizard over one patient. Navigator state and
// editors live only here.
type Session struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	CoachID   string
	CreatedAt time.Time

	nav      *Navigator
	selector *Selector

	mu      sync.Mutex
	state   State
	editors map[section.Kind]section.Editor
	pending []<-chan struct{}
	closed  bool
}

func newSession(patientID uuid.UUID, coachID string, nav *Navigator, provider ConsultationProvider, editors []section.Editor) *Session {
	s := &Session{
		ID:        uuid.New(),
		PatientID: patientID,
		CoachID:   coachID,
		CreatedAt: time.Now().UTC(),
		nav:       nav,
		state:     nav.Initial(),
		editors:   make(map[section.Kind]section.Editor, len(editors)),
	}
	s.selector = NewSelector(patientID, coachID, provider, s)
	for _, ed := range editors {
		s.editors[ed.Kind()] = ed
		s.pending = append(s.pending, ed.Bind(patientID, nil))
	}
	return s
}

func (s *Session) SelectionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ed := range s.editors {
		ed.MarkLoading()
	}
}

func (s *Session) SelectionSettled(active *consultation.Consultation, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if changed {
		s.state = s.nav.Initial()
	}
	var cid *uuid.UUID
	if active != nil {
		id := active.ID
		cid = &id
	}
	s.pending = s.pending[:0]
	for _, ed := range s.editors {
		s.pending = append(s.pending, ed.Bind(s.PatientID, cid))
	}
}

// Wait blocks until every editor has settled its latest load.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	pending := append([]<-chan struct{}(nil), s.pending...)
	s.mu.Unlock()
	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	kind, _ := s.nav.Flow().SectionAt(state.Step, state.SubStep)
	return SessionView{
		ID:           s.ID,
		PatientID:    s.PatientID,
		CoachID:      s.CoachID,
		Consultation: s.selector.Active(),
		Loading:      s.selector.Loading(),
		State:        state,
		CanNext:      s.nav.CanNext(state),
		CanPrevious:  s.nav.CanPrevious(state),
		Section:      kind,
		Steps:        s.nav.Flow().Steps,
		CreatedAt:    s.CreatedAt,
	}
}

func (s *Session) move(fn func(State) (State, error)) (SessionView, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SessionView{}, ErrSessionClosed
	}
	next, err := fn(s.state)
	if err == nil {
		s.state = next
	}
	s.mu.Unlock()
	return s.View(), err
}

func (s *Session) Next() (SessionView, error) {
	return s.move(s.nav.Next)
}

func (s *Session) Previous() (SessionView, error) {
	return s.move(func(st State) (State, error) { return s.nav.Previous(st), nil })
}

func (s *Session) JumpToStep(step int) (SessionView, error) {
	return s.move(func(st State) (State, error) { return s.nav.JumpToStep(st, step) })
}

func (s *Session) JumpToSubStep(token string) (SessionView, error) {
	return s.move(func(st State) (State, error) { return s.nav.JumpToSubStep(st, token) })
}

func (s *Session) Consultations(ctx context.Context) ([]*consultation.Consultation, error) {
	return s.selector.List(ctx)
}

// SelectConsultation makes id active, resets navigation and rebinds every
// editor to the new consultation.
func (s *Session) SelectConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	return s.selector.Select(ctx, id)
}

func (s *Session) CreateConsultation(ctx context.Context) (*consultation.Consultation, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	return s.selector.CreateAndSelect(ctx)
}

func (s *Session) ActiveConsultation() *consultation.Consultation {
	return s.selector.Active()
}

func (s *Session) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) Editor(kind section.Kind) (section.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	ed, ok := s.editors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", section.ErrUnknownKind, kind)
	}
	return ed, nil
}

// CurrentSection returns the editor for the navigator's position.
func (s *Session) CurrentSection() (section.Editor, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	kind, ok := s.nav.Flow().SectionAt(state.Step, state.SubStep)
	if !ok {
		return nil, ErrNoSectionHere
	}
	return s.Editor(kind)
}

// Apply runs changes in order and stops at the first rejected one; earlier
// changes stay applied.
func (s *Session) Apply(kind section.Kind, changes []Change) (section.View, error) {
	ed, err := s.Editor(kind)
	if err != nil {
		return section.View{}, err
	}
	for i, ch := range changes {
		var err error
		switch ch.Op {
		case OpSet:
			err = ed.SetField(ch.Field, ch.Value)
		case OpToggle:
			err = ed.Toggle(ch.Field, ch.Value)
		case OpNote:
			err = ed.SetNote(ch.Field, ch.Item, ch.Value)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownChange, ch.Op)
		}
		if err != nil {
			return ed.View(), fmt.Errorf("change %d: %w", i, err)
		}
	}
	return ed.View(), nil
}

func (s *Session) SaveSection(ctx context.Context, kind section.Kind) (section.View, error) {
	ed, err := s.Editor(kind)
	if err != nil {
		return section.View{}, err
	}
	err = ed.Save(ctx)
	return ed.View(), err
}

// Fill loads a persisted-form record into a section's local state.
func (s *Session) Fill(kind section.Kind, data json.RawMessage) (section.View, error) {
	ed, err := s.Editor(kind)
	if err != nil {
		return section.View{}, err
	}
	if err := ed.Fill(data); err != nil {
		return ed.View(), err
	}
	return ed.View(), nil
}

// Close closes every editor, cancelling their in-flight loads.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ed := range s.editors {
		ed.Close()
	}
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
