package section

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// NotePolicy decides what happens to an item's note when it is deselected.
// Either way the note is hidden and never persisted while unselected.
type NotePolicy string

const (
	NotesPreserve NotePolicy = "preserve"
	NotesDiscard  NotePolicy = "discard"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

const noConsultationMessage = "Select or create a consultation before saving."

// View is what a client renders for one section editor.
type View struct {
	Kind           Kind        `json:"kind"`
	Title          string      `json:"title"`
	Step           string      `json:"step"`
	Status         Status      `json:"status"`
	ConsultationID *uuid.UUID  `json:"consultation_id,omitempty"`
	SaveEnabled    bool        `json:"save_enabled"`
	Dirty          bool        `json:"dirty"`
	Notice         *Notice     `json:"notice,omitempty"`
	Fields         []FieldView `json:"fields,omitempty"`
}

type FieldView struct {
	FieldInfo
	Value    string            `json:"value,omitempty"`
	Selected []string          `json:"selected,omitempty"`
	Disabled []string          `json:"disabled,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Editor edits one section for the active (patient, consultation) pair.
// Mutations touch local state only; Save persists it.
type Editor interface {
	Kind() Kind
	// Bind cancels any in-flight load and loads the section for the pair.
	// A nil consultation leaves empty defaults with save disabled. The
	// returned channel is closed once the load has settled or been dropped.
	Bind(patientID uuid.UUID, consultationID *uuid.UUID) <-chan struct{}
	// MarkLoading cancels any in-flight load and shows the loading view
	// until the next Bind.
	MarkLoading()
	View() View
	SetField(local, value string) error
	Toggle(local, option string) error
	SetNote(local, item, text string) error
	// Fill replaces local state with a persisted-form record.
	Fill(data json.RawMessage) error
	// Snapshot is local state in persisted form.
	Snapshot() json.RawMessage
	Save(ctx context.Context) error
	Close()
}

type EditorOptions struct {
	Logger      zerolog.Logger
	NotePolicy  NotePolicy
	Actor       string
	LoadTimeout time.Duration
}

type editor[T any] struct {
	schema   *Schema[T]
	provider *Provider[T]
	opts     EditorOptions

	mu             sync.Mutex
	life           context.Context
	closeLife      context.CancelFunc
	cancelLoad     context.CancelFunc
	gen            uint64
	closed         bool
	status         Status
	patientID      uuid.UUID
	consultationID *uuid.UUID
	local          T
	dirty          bool
	notice         *Notice
}

func NewEditor[T any](schema *Schema[T], provider *Provider[T], opts EditorOptions) Editor {
	if opts.NotePolicy == "" {
		opts.NotePolicy = NotesPreserve
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	life, cancel := context.WithCancel(context.Background())
	return &editor[T]{
		schema:    schema,
		provider:  provider,
		opts:      opts,
		life:      life,
		closeLife: cancel,
		status:    StatusReady,
	}
}

func (e *editor[T]) Kind() Kind { return e.schema.kind }

// invalidate drops any in-flight load. Caller holds mu.
func (e *editor[T]) invalidate() {
	e.gen++
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
}

func (e *editor[T]) MarkLoading() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.invalidate()
	e.status = StatusLoading
}

func (e *editor[T]) Bind(patientID uuid.UUID, consultationID *uuid.UUID) <-chan struct{} {
	done := make(chan struct{})

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(done)
		return done
	}
	e.invalidate()
	e.patientID = patientID
	e.consultationID = nil
	if consultationID != nil {
		cid := *consultationID
		e.consultationID = &cid
	}
	var zero T
	e.local = zero
	e.dirty = false
	e.notice = nil

	if e.consultationID == nil {
		e.status = StatusReady
		e.mu.Unlock()
		close(done)
		return done
	}

	e.status = StatusLoading
	gen := e.gen
	cid := *e.consultationID
	ctx, cancel := context.WithTimeout(e.life, e.opts.LoadTimeout)
	e.cancelLoad = cancel
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		rec, err := e.provider.Load(ctx, patientID, cid)
		e.settle(gen, rec, err)
	}()
	return done
}

func (e *editor[T]) settle(gen uint64, rec *T, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen {
		return
	}
	e.status = StatusReady
	e.cancelLoad = nil
	switch {
	case err != nil:
		e.opts.Logger.Warn().Err(err).
			Str("kind", string(e.schema.kind)).
			Str("patient_id", e.patientID.String()).
			Str("consultation_id", e.consultationID.String()).
			Msg("section load failed")
		e.notice = &Notice{Level: NoticeWarning, Message: fmt.Sprintf("Could not load saved %s data; starting from empty fields.", e.schema.title)}
	case rec != nil:
		e.local = *rec
	}
}

func (e *editor[T]) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		Kind:   e.schema.kind,
		Title:  e.schema.title,
		Step:   e.schema.step,
		Status: e.status,
		Dirty:  e.dirty,
		Notice: e.notice,
	}
	if e.consultationID != nil {
		cid := *e.consultationID
		v.ConsultationID = &cid
	}
	if e.status == StatusLoading {
		return v
	}
	if e.consultationID == nil {
		v.Notice = &Notice{Level: NoticeWarning, Message: noConsultationMessage}
	}
	v.SaveEnabled = e.consultationID != nil && !e.closed

	for _, f := range e.schema.fields {
		fv := FieldView{FieldInfo: f.FieldInfo}
		switch f.Type {
		case FieldText, FieldChoice:
			fv.Value = *f.text(&e.local)
		case FieldMulti:
			sel := *f.items(&e.local)
			fv.Selected = slices.Clone(sel)
			if f.Cap > 0 && len(sel) >= f.Cap {
				for _, opt := range f.Options {
					if !slices.Contains(sel, opt) {
						fv.Disabled = append(fv.Disabled, opt)
					}
				}
			}
		case FieldNotes:
			target, _ := e.schema.field(f.NotesFor)
			sel := *target.items(&e.local)
			for item, note := range *f.notes(&e.local) {
				if slices.Contains(sel, item) {
					if fv.Notes == nil {
						fv.Notes = make(map[string]string)
					}
					fv.Notes[item] = note
				}
			}
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

// editable locks mu and reports whether local state may change.
func (e *editor[T]) editable() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if e.status == StatusLoading {
		e.mu.Unlock()
		return ErrLoading
	}
	return nil
}

func (e *editor[T]) touched() {
	e.dirty = true
	if e.notice != nil && e.notice.Level == NoticeSuccess {
		e.notice = nil
	}
}

func (e *editor[T]) SetField(local, value string) error {
	if err := e.editable(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	f, ok := e.schema.field(local)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.schema.kind, local)
	}
	switch f.Type {
	case FieldText:
	case FieldChoice:
		if value != "" && !f.hasOption(value) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidOption, local, value)
		}
	default:
		return fmt.Errorf("%w: %s is a %s field", ErrWrongFieldType, local, f.Type)
	}
	*f.text(&e.local) = value
	e.touched()
	return nil
}

// Toggle flips option in a multi field. At the cap, selecting another
// option is ignored; deselecting always works.
func (e *editor[T]) Toggle(local, option string) error {
	if err := e.editable(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	f, ok := e.schema.field(local)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.schema.kind, local)
	}
	if f.Type != FieldMulti {
		return fmt.Errorf("%w: %s is a %s field", ErrWrongFieldType, local, f.Type)
	}
	if !f.hasOption(option) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidOption, local, option)
	}

	sel := f.items(&e.local)
	if i := slices.Index(*sel, option); i >= 0 {
		*sel = slices.Delete(slices.Clone(*sel), i, i+1)
		if nf, ok := e.schema.notesFor(local); ok && e.opts.NotePolicy == NotesDiscard {
			delete(*nf.notes(&e.local), option)
		}
		e.touched()
		return nil
	}
	if f.Cap > 0 && len(*sel) >= f.Cap {
		return nil
	}
	*sel = append(slices.Clone(*sel), option)
	e.touched()
	return nil
}

func (e *editor[T]) SetNote(local, item, text string) error {
	if err := e.editable(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	f, ok := e.schema.field(local)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.schema.kind, local)
	}
	if f.Type != FieldNotes {
		return fmt.Errorf("%w: %s is a %s field", ErrWrongFieldType, local, f.Type)
	}
	target, _ := e.schema.field(f.NotesFor)
	if !slices.Contains(*target.items(&e.local), item) {
		return fmt.Errorf("%w: %s", ErrItemNotSelected, item)
	}

	notes := f.notes(&e.local)
	if text == "" {
		delete(*notes, item)
	} else {
		if *notes == nil {
			*notes = make(map[string]string)
		}
		(*notes)[item] = text
	}
	e.touched()
	return nil
}

func (e *editor[T]) Fill(data json.RawMessage) error {
	r, err := e.schema.decode(data)
	if err != nil {
		return err
	}
	if err := e.schema.Check(r); err != nil {
		return err
	}
	if err := e.editable(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.local = *r
	e.touched()
	return nil
}

func (e *editor[T]) Snapshot() json.RawMessage {
	e.mu.Lock()
	r := e.schema.prune(&e.local)
	e.mu.Unlock()
	data, _ := json.Marshal(r)
	return data
}

// Save writes local state. Without a consultation it returns
// ErrNoConsultation; a store failure keeps local state and wraps
// ErrSaveFailed.
func (e *editor[T]) Save(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrEditorClosed
	case e.consultationID == nil:
		e.mu.Unlock()
		return ErrNoConsultation
	case e.status == StatusLoading:
		e.mu.Unlock()
		return ErrLoading
	}
	gen := e.gen
	pid, cid := e.patientID, *e.consultationID
	snapshot := e.schema.clone(&e.local)
	e.mu.Unlock()

	err := e.provider.Save(ctx, pid, cid, snapshot, e.opts.Actor)

	e.mu.Lock()
	defer e.mu.Unlock()
	stale := e.closed || gen != e.gen
	if err != nil {
		e.opts.Logger.Error().Err(err).
			Str("kind", string(e.schema.kind)).
			Str("patient_id", pid.String()).
			Str("consultation_id", cid.String()).
			Msg("section save failed")
		if !stale {
			e.notice = &Notice{Level: NoticeError, Message: fmt.Sprintf("Could not save %s. Your changes are kept; try again.", e.schema.title)}
		}
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if !stale {
		e.dirty = false
		e.notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("%s saved.", e.schema.title)}
	}
	return nil
}

func (e *editor[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.invalidate()
	e.closeLife()
}
