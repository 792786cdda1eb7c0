package wizard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nutribox/nutribox/internal/domain/patient"
	"github.com/nutribox/nutribox/internal/domain/section"
)

// PatientLookup confirms the patient exists before a session starts.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Config struct {
	Navigator     *Navigator
	Sessions      *SessionStore
	Consultations ConsultationProvider
	Patients      PatientLookup
	Sections      section.Store
	Templates     *TemplateLibrary
	NotePolicy    section.NotePolicy
	Logger        zerolog.Logger
}

type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.Navigator == nil {
		cfg.Navigator = NewNavigator(DefaultFlow())
	}
	return &Service{cfg: cfg}
}

// Start opens a session for the patient with no consultation selected.
func (s *Service) Start(ctx context.Context, patientID uuid.UUID, coachID string) (*Session, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if s.cfg.Patients != nil {
		if _, err := s.cfg.Patients.GetPatient(ctx, patientID); err != nil {
			return nil, fmt.Errorf("lookup patient %s: %w", patientID, err)
		}
	}

	opts := section.EditorOptions{
		Logger:     s.cfg.Logger,
		NotePolicy: s.cfg.NotePolicy,
		Actor:      coachID,
	}
	descriptors := section.All()
	editors := make([]section.Editor, 0, len(descriptors))
	for _, d := range descriptors {
		editors = append(editors, d.NewEditor(s.cfg.Sections, opts))
	}
	sess := newSession(patientID, coachID, s.cfg.Navigator, s.cfg.Consultations, editors)
	s.cfg.Sessions.Put(sess)

	s.cfg.Logger.Info().
		Str("session_id", sess.ID.String()).
		Str("patient_id", patientID.String()).
		Str("coach_id", coachID).
		Msg("wizard session started")
	return sess, nil
}

func (s *Service) Get(id uuid.UUID) (*Session, error) {
	return s.cfg.Sessions.Get(id)
}

// End closes the session and its editors.
func (s *Service) End(id uuid.UUID) error {
	return s.cfg.Sessions.Delete(id)
}

// GeneratePlan drafts the plan from the saved structure and
// personalization sections and loads it into the plan editor for review.
func (s *Service) GeneratePlan(ctx context.Context, id uuid.UUID) (section.View, error) {
	sess, err := s.cfg.Sessions.Get(id)
	if err != nil {
		return section.View{}, err
	}
	active := sess.ActiveConsultation()
	if active == nil {
		return section.View{}, section.ErrNoConsultation
	}

	var (
		structure *section.NutritionalStructure
		pers      *section.NutritionalPersonalization
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		structure, err = section.NewProvider(s.cfg.Sections, section.NutritionalStructureSchema).Load(gctx, sess.PatientID, active.ID)
		return err
	})
	g.Go(func() error {
		var err error
		pers, err = section.NewProvider(s.cfg.Sections, section.NutritionalPersonalizationSchema).Load(gctx, sess.PatientID, active.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return section.View{}, fmt.Errorf("load plan inputs: %w", err)
	}

	plan := DraftPlan(structure, pers)
	data, err := json.Marshal(plan)
	if err != nil {
		return section.View{}, fmt.Errorf("encode plan: %w", err)
	}
	return sess.Fill(section.KindNutritionalPlan, data)
}

// SaveTemplate stores the plan editor's local state as a named template.
func (s *Service) SaveTemplate(ctx context.Context, id uuid.UUID, name string) (*Template, error) {
	sess, err := s.cfg.Sessions.Get(id)
	if err != nil {
		return nil, err
	}
	ed, err := sess.Editor(section.KindNutritionalPlan)
	if err != nil {
		return nil, err
	}
	return s.cfg.Templates.Save(ctx, name, ed.Snapshot(), sess.CoachID)
}

// ApplyTemplate replaces the plan editor's local state with a template.
func (s *Service) ApplyTemplate(ctx context.Context, id uuid.UUID, name string) (section.View, error) {
	sess, err := s.cfg.Sessions.Get(id)
	if err != nil {
		return section.View{}, err
	}
	t, err := s.cfg.Templates.Get(ctx, name)
	if err != nil {
		return section.View{}, err
	}
	return sess.Fill(section.KindNutritionalPlan, t.Plan)
}

func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	return s.cfg.Templates.List(ctx)
}

func (s *Service) DeleteTemplate(ctx context.Context, name string) error {
	return s.cfg.Templates.Delete(ctx, name)
}
