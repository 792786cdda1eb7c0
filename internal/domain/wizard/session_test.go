package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/patient"
	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/platform/kvstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

// -- Fakes --

type fakePatients map[uuid.UUID]bool

func (f fakePatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if !f[id] {
		return nil, patient.ErrNotFound
	}
	return &patient.Patient{ID: id, Name: "Test Patient"}, nil
}

// gatedProvider holds GetConsultation until release is closed.
type gatedProvider struct {
	ConsultationProvider
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) GetConsultation(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	close(g.entered)
	<-g.release
	return g.ConsultationProvider.GetConsultation(ctx, id)
}

type testEnv struct {
	svc           *Service
	sessions      *SessionStore
	consultations *consultation.Service
	sections      section.Store
	templates     *TemplateLibrary
	patientID     uuid.UUID
}

func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions:      NewSessionStore(time.Hour),
		consultations: consultation.NewService(consultation.NewMemoryRepo(), nil),
		sections:      section.NewKVStore(kvstore.NewMemory()),
		templates:     NewTemplateLibrary(kvstore.NewMemory()),
		patientID:     uuid.New(),
	}
	cfg := Config{
		Sessions:      env.sessions,
		Consultations: env.consultations,
		Patients:      fakePatients{env.patientID: true},
		Sections:      env.sections,
		Templates:     env.templates,
		Logger:        zerolog.Nop(),
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	env.sessions = cfg.Sessions
	env.svc = NewService(cfg)
	t.Cleanup(env.sessions.Flush)
	return env
}

func (env *testEnv) start(t *testing.T) *Session {
	t.Helper()
	sess, err := env.svc.Start(context.Background(), env.patientID, "coach-1")
	require.NoError(t, err)
	require.NoError(t, sess.Wait(context.Background()))
	return sess
}

func (env *testEnv) selectNew(t *testing.T, sess *Session) *consultation.Consultation {
	t.Helper()
	c, err := sess.CreateConsultation(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Wait(context.Background()))
	return c
}

func field(t *testing.T, v section.View, local string) section.FieldView {
	t.Helper()
	for _, f := range v.Fields {
		if f.Local == local {
			return f
		}
	}
	t.Fatalf("field %s not in view of %s", local, v.Kind)
	return section.FieldView{}
}

func sectionView(t *testing.T, sess *Session, kind section.Kind) section.View {
	t.Helper()
	ed, err := sess.Editor(kind)
	require.NoError(t, err)
	return ed.View()
}

// -- Tests --

func TestService_StartRequiresKnownPatient(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Start(context.Background(), uuid.New(), "coach-1")
	assert.ErrorIs(t, err, patient.ErrNotFound)
	assert.Equal(t, 0, env.sessions.Len())

	_, err = env.svc.Start(context.Background(), uuid.Nil, "coach-1")
	assert.Error(t, err)
}

func TestSession_NoConsultationDisablesSave(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	v := sess.View()
	assert.Nil(t, v.Consultation)
	assert.Equal(t, 1, v.State.Step)
	assert.Equal(t, section.KindClinicalHistory, v.Section)

	for _, d := range section.All() {
		sv := sectionView(t, sess, d.Kind())
		assert.Equal(t, section.StatusReady, sv.Status)
		assert.False(t, sv.SaveEnabled, d.Kind())
		require.NotNil(t, sv.Notice)
		assert.Equal(t, section.NoticeWarning, sv.Notice.Level)
	}

	_, err := sess.Apply(section.KindClinicalHistory, []Change{{Op: OpSet, Field: "mainComplaint", Value: "fatigue"}})
	require.NoError(t, err, "editing works without a consultation")

	sv, err := sess.SaveSection(context.Background(), section.KindClinicalHistory)
	assert.ErrorIs(t, err, section.ErrNoConsultation)
	assert.False(t, sv.SaveEnabled)
	assert.Equal(t, "fatigue", field(t, sv, "mainComplaint").Value)
}

func TestSession_CreateConsultationResetsNavigator(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	_, err := sess.Next()
	require.NoError(t, err)
	_, err = sess.Next()
	require.NoError(t, err)
	require.Equal(t, "2b", sess.View().State.SubStep)

	c := env.selectNew(t, sess)
	assert.Equal(t, 1, c.ConsultationNumber)

	v := sess.View()
	require.NotNil(t, v.Consultation)
	assert.Equal(t, c.ID, v.Consultation.ID)
	assert.Equal(t, 1, v.State.Step)
	assert.Empty(t, v.State.Completed)
	assert.False(t, v.Loading)

	sv := sectionView(t, sess, section.KindGoals)
	assert.True(t, sv.SaveEnabled)
	require.NotNil(t, sv.ConsultationID)
	assert.Equal(t, c.ID, *sv.ConsultationID)
}

func TestSession_SelectLoadsSavedSections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c, err := env.consultations.CreateConsultation(ctx, env.patientID, "coach-1")
	require.NoError(t, err)
	err = section.NewProvider(env.sections, section.ClinicalHistorySchema).
		Save(ctx, env.patientID, c.ID, &section.ClinicalHistory{MainComplaint: "bloating"}, "coach-1")
	require.NoError(t, err)

	sess := env.start(t)
	_, err = sess.SelectConsultation(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, sess.Wait(ctx))

	sv := sectionView(t, sess, section.KindClinicalHistory)
	assert.Equal(t, "bloating", field(t, sv, "mainComplaint").Value)
	assert.Empty(t, field(t, sectionView(t, sess, section.KindGoals), "deadline").Value)
}

func TestSession_SelectingDiscardsUnsavedEdits(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	first := env.selectNew(t, sess)

	_, err := sess.Apply(section.KindWellnessAssessment, []Change{{Op: OpSet, Field: "sleepHours", Value: "7"}})
	require.NoError(t, err)

	env.selectNew(t, sess)
	assert.Empty(t, field(t, sectionView(t, sess, section.KindWellnessAssessment), "sleepHours").Value)

	_, err = sess.SelectConsultation(context.Background(), first.ID)
	require.NoError(t, err)
	require.NoError(t, sess.Wait(context.Background()))
	assert.Empty(t, field(t, sectionView(t, sess, section.KindWellnessAssessment), "sleepHours").Value,
		"unsaved edits are not persisted")
}

func TestSession_SelectRejectsOtherPatientsConsultation(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	mine := env.selectNew(t, sess)

	other, err := env.consultations.CreateConsultation(context.Background(), uuid.New(), "coach-2")
	require.NoError(t, err)

	_, err = sess.SelectConsultation(context.Background(), other.ID)
	assert.ErrorIs(t, err, ErrConsultationMismatch)
	require.NoError(t, sess.Wait(context.Background()))

	v := sess.View()
	require.NotNil(t, v.Consultation)
	assert.Equal(t, mine.ID, v.Consultation.ID)
	assert.False(t, v.Loading)
	assert.True(t, sectionView(t, sess, section.KindGoals).SaveEnabled)
}

func TestSession_SelectUnknownConsultation(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	_, err := sess.SelectConsultation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, consultation.ErrNotFound)
	require.NoError(t, sess.Wait(context.Background()))
	assert.Nil(t, sess.View().Consultation)
	assert.Equal(t, section.StatusReady, sectionView(t, sess, section.KindGoals).Status)
}

func TestSession_LoadingWhileSelecting(t *testing.T) {
	gate := &gatedProvider{entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, func(cfg *Config) {
		gate.ConsultationProvider = cfg.Consultations
		cfg.Consultations = gate
	})
	c, err := env.consultations.CreateConsultation(context.Background(), env.patientID, "coach-1")
	require.NoError(t, err)
	sess := env.start(t)

	done := make(chan error, 1)
	go func() {
		_, err := sess.SelectConsultation(context.Background(), c.ID)
		done <- err
	}()
	<-gate.entered

	assert.True(t, sess.View().Loading)
	sv := sectionView(t, sess, section.KindPhysicalAssessment)
	assert.Equal(t, section.StatusLoading, sv.Status)
	assert.False(t, sv.SaveEnabled)
	assert.Empty(t, sv.Fields)

	close(gate.release)
	require.NoError(t, <-done)
	require.NoError(t, sess.Wait(context.Background()))
	assert.False(t, sess.View().Loading)
	assert.Equal(t, section.StatusReady, sectionView(t, sess, section.KindPhysicalAssessment).Status)
}

func TestSession_ApplyAndSave(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	c := env.selectNew(t, sess)

	sv, err := sess.Apply(section.KindEmotionalAssessment, []Change{
		{Op: OpSet, Field: "stressLevel", Value: "high"},
		{Op: OpToggle, Field: "limitations", Value: "anxiety"},
		{Op: OpToggle, Field: "limitations", Value: "insomnia"},
		{Op: OpNote, Field: "limitationNotes", Item: "anxiety", Value: "worse at night"},
	})
	require.NoError(t, err)
	assert.True(t, sv.Dirty)

	sv, err = sess.SaveSection(context.Background(), section.KindEmotionalAssessment)
	require.NoError(t, err)
	assert.False(t, sv.Dirty)
	require.NotNil(t, sv.Notice)
	assert.Equal(t, section.NoticeSuccess, sv.Notice.Level)

	rec, err := env.sections.Get(context.Background(), env.patientID, c.ID, section.KindEmotionalAssessment)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(rec.Data, &saved))
	assert.Equal(t, "high", saved["stress_level"])
	assert.Equal(t, []any{"anxiety", "insomnia"}, saved["limitations"])
	assert.Equal(t, map[string]any{"anxiety": "worse at night"}, saved["limitation_notes"])
	assert.Equal(t, "coach-1", rec.UpdatedBy)
}

func TestSession_ApplyStopsAtFirstRejectedChange(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	sv, err := sess.Apply(section.KindBehavioralAssessment, []Change{
		{Op: OpSet, Field: "mealsPerDay", Value: "5"},
		{Op: OpSet, Field: "snacking", Value: "constantly"},
		{Op: OpSet, Field: "waterIntake", Value: "2L"},
	})
	assert.ErrorIs(t, err, section.ErrInvalidOption)
	assert.Equal(t, "5", field(t, sv, "mealsPerDay").Value)
	assert.Empty(t, field(t, sv, "waterIntake").Value)

	_, err = sess.Apply(section.KindBehavioralAssessment, []Change{{Op: "rename", Field: "notes"}})
	assert.ErrorIs(t, err, ErrUnknownChange)

	_, err = sess.Apply("vitals", nil)
	assert.ErrorIs(t, err, section.ErrUnknownKind)
}

func TestSession_CurrentSectionFollowsNavigator(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	ed, err := sess.CurrentSection()
	require.NoError(t, err)
	assert.Equal(t, section.KindClinicalHistory, ed.Kind())

	_, err = sess.JumpToStep(3)
	require.NoError(t, err)
	_, err = sess.JumpToSubStep("3c")
	require.NoError(t, err)
	ed, err = sess.CurrentSection()
	require.NoError(t, err)
	assert.Equal(t, section.KindNutritionalPlan, ed.Kind())

	_, err = sess.JumpToStep(5)
	require.NoError(t, err)
	_, err = sess.CurrentSection()
	assert.ErrorIs(t, err, ErrNoSectionHere)
}

func TestSession_NextBlockedByValidator(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Navigator = NewNavigator(DefaultFlow(), WithValidator(1, func(State) (bool, string) {
			return false, "fill the main complaint"
		}))
	})
	sess := env.start(t)

	v, err := sess.Next()
	var blocked *StepBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, 1, v.State.Step)
}

func TestSession_CloseRejectsFurtherUse(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	sess.Close()

	assert.True(t, sess.Closed())
	_, err := sess.Next()
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = sess.Editor(section.KindGoals)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = sess.CreateConsultation(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestService_End(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	require.NoError(t, env.svc.End(sess.ID))
	assert.True(t, sess.Closed())
	_, err := env.svc.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, env.svc.End(sess.ID), ErrSessionNotFound)
}

func TestSessionStore_EvictionClosesEditors(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	env := newTestEnv(t, func(cfg *Config) { cfg.Sessions = store })
	sess := env.start(t)
	ed, err := sess.Editor(section.KindGoals)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	store.Sweep()

	assert.True(t, sess.Closed())
	assert.ErrorIs(t, ed.Toggle("goals", "sleep"), section.ErrEditorClosed)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_GetRefreshesExpiry(t *testing.T) {
	store := NewSessionStore(80 * time.Millisecond)
	env := newTestEnv(t, func(cfg *Config) { cfg.Sessions = store })
	sess := env.start(t)

	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		_, err := store.Get(sess.ID)
		require.NoError(t, err)
	}
	assert.False(t, sess.Closed())
}

func TestSessionStore_GetDropsClosedSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	env := newTestEnv(t, func(cfg *Config) { cfg.Sessions = store })
	sess := env.start(t)

	// closed by an eviction that ran between lookup and refresh
	sess.Close()

	_, err := store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, store.Len())
}
