package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/patient"
	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/platform/kvstore"
)

// -- Mock Patients --

type mockPatients map[uuid.UUID]*patient.Patient

func (m mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type exportEnv struct {
	svc     *Service
	store   section.Store
	pid     uuid.UUID
	visit   *consultation.Consultation
	handler *Handler
}

func newExportEnv(t *testing.T) *exportEnv {
	t.Helper()
	store := section.NewKVStore(kvstore.NewMemory())
	consultations := consultation.NewService(consultation.NewMemoryRepo(), nil)
	pid := uuid.New()
	visit, err := consultations.CreateConsultation(context.Background(), pid, "coach-1")
	require.NoError(t, err)
	svc := NewService(store, consultations, mockPatients{pid: {ID: pid, Name: "Maria Souza"}})
	return &exportEnv{svc: svc, store: store, pid: pid, visit: visit, handler: NewHandler(svc)}
}

func savePlan(t *testing.T, env *exportEnv, plan *section.NutritionalPlan) {
	t.Helper()
	require.NoError(t, section.NewProvider(env.store, section.NutritionalPlanSchema).
		Save(context.Background(), env.pid, env.visit.ID, plan, "coach-1"))
}

// -- Tests --

func TestBuild_NutritionalPlan(t *testing.T) {
	env := newExportEnv(t)
	savePlan(t, env, &section.NutritionalPlan{
		Breakfast:  "Oats with banana",
		Dinner:     "Grilled chicken <script>alert(1)</script>",
		Guidelines: "Drink 2L of water\n- No sugary drinks",
	})

	c, err := env.svc.Build(context.Background(), env.pid, env.visit.ID, DocNutritionalPlan)
	require.NoError(t, err)
	assert.Equal(t, "Nutritional Plan", c.Title)
	assert.Equal(t, "Maria Souza", c.PatientName)
	require.Len(t, c.Blocks, 3)
	assert.Equal(t, "Breakfast", c.Blocks[0].Heading)
	assert.Equal(t, []string{"Drink 2L of water", "No sugary drinks"}, c.Blocks[2].Items)

	var buf bytes.Buffer
	require.NoError(t, c.RenderHTML(&buf))
	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<style>")
	assert.Contains(t, html, "<h1>Nutritional Plan</h1>")
	assert.Contains(t, html, "Oats with banana")
	assert.Contains(t, html, "<li>No sugary drinks</li>")
	assert.NotContains(t, html, "<script>")
}

func TestBuild_ChecklistDocuments(t *testing.T) {
	env := newExportEnv(t)
	savePlan(t, env, &section.NutritionalPlan{ShoppingList: "- oats\n- eggs"})
	require.NoError(t, section.NewProvider(env.store, section.GoalsSchema).Save(context.Background(), env.pid, env.visit.ID,
		&section.Goals{Goals: []string{"weight_loss", "sleep"}, GoalNotes: map[string]string{"sleep": "8h per night"}, Deadline: "2026-12-01"}, "coach-1"))

	shopping, err := env.svc.Build(context.Background(), env.pid, env.visit.ID, DocShoppingList)
	require.NoError(t, err)
	md := shopping.Markdown()
	assert.Contains(t, md, "- [ ] oats\n- [ ] eggs\n")

	goals, err := env.svc.Build(context.Background(), env.pid, env.visit.ID, DocGoalsChecklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"Weight loss", "Sleep: 8h per night"}, goals.Blocks[0].Items)
	assert.Equal(t, "2026-12-01", goals.Blocks[1].Text)

	var buf bytes.Buffer
	require.NoError(t, goals.RenderHTML(&buf))
	assert.Contains(t, buf.String(), `type="checkbox"`)
}

func TestBuild_Prescriptions(t *testing.T) {
	env := newExportEnv(t)
	savePlan(t, env, &section.NutritionalPlan{Prescriptions: "Vitamin D 2000 IU daily"})
	require.NoError(t, section.NewProvider(env.store, section.ClinicalHistorySchema).Save(context.Background(), env.pid, env.visit.ID,
		&section.ClinicalHistory{Supplements: "Omega 3"}, "coach-1"))

	c, err := env.svc.Build(context.Background(), env.pid, env.visit.ID, DocPrescriptions)
	require.NoError(t, err)
	require.Len(t, c.Blocks, 2)
	assert.Equal(t, "Vitamin D 2000 IU daily", c.Blocks[0].Text)
	assert.Equal(t, "Current supplements", c.Blocks[1].Heading)
}

func TestBuild_Errors(t *testing.T) {
	env := newExportEnv(t)
	ctx := context.Background()

	_, err := env.svc.Build(ctx, env.pid, env.visit.ID, DocNutritionalPlan)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = env.svc.Build(ctx, env.pid, env.visit.ID, "invoice")
	assert.ErrorIs(t, err, ErrUnknownDocument)

	_, err = env.svc.Build(ctx, uuid.New(), env.visit.ID, DocNutritionalPlan)
	assert.ErrorIs(t, err, section.ErrPatientMismatch)

	_, err = env.svc.Build(ctx, env.pid, uuid.New(), DocNutritionalPlan)
	assert.ErrorIs(t, err, consultation.ErrNotFound)
}

func TestRenderPDF(t *testing.T) {
	c := &Content{
		Document:     DocGoalsChecklist,
		Title:        "Goals Checklist",
		PatientName:  "João Álvares",
		Consultation: 2,
		Blocks:       []Block{{Heading: "Goals", Items: []string{"Hydration"}, Checklist: true}},
	}
	var buf bytes.Buffer
	require.NoError(t, c.RenderPDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, "goals-checklist-2.pdf", c.Filename(FormatPDF))
}

func TestRenderHTML_SectionTextIsLiteral(t *testing.T) {
	c := &Content{
		Document:     DocPrescriptions,
		Title:        "Prescriptions",
		PatientName:  "Ana *Lima*",
		Consultation: 1,
		Blocks: []Block{
			{Heading: "Prescriptions", Text: "Magnesium <Mg> 200mg at night\n# take with water\n    keep cool"},
			{Heading: "Notes", Items: []string{"1. first_dose & [ref](x)"}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, c.RenderHTML(&buf))
	html := buf.String()

	assert.Contains(t, html, "Magnesium &lt;Mg&gt; 200mg at night")
	assert.Contains(t, html, "# take with water")
	assert.Contains(t, html, "keep cool")
	assert.Contains(t, html, "Ana *Lima*")
	assert.Contains(t, html, "<li>1. first_dose &amp; [ref](x)</li>")
	assert.NotContains(t, html, "raw HTML omitted")
	assert.NotContains(t, html, "<h1>take with water</h1>")
	assert.NotContains(t, html, "<pre>")
	assert.NotContains(t, html, "<em>")
	assert.NotContains(t, html, "<a href")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)
	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func exportRequest(env *exportEnv, doc, query string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "cid", "document")
	c.SetParamValues(env.pid.String(), env.visit.ID.String(), doc)
	return c, rec
}

func TestHandler_ExportAttachment(t *testing.T) {
	env := newExportEnv(t)
	savePlan(t, env, &section.NutritionalPlan{Lunch: "Rice and beans"})

	c, rec := exportRequest(env, "nutritional-plan", "")
	require.NoError(t, env.handler.Export(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="nutritional-plan-1.html"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "Rice and beans")

	c, rec = exportRequest(env, "nutritional-plan", "?format=pdf")
	require.NoError(t, env.handler.Export(c))
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="nutritional-plan-1.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
}

func TestHandler_ExportErrors(t *testing.T) {
	env := newExportEnv(t)

	tests := []struct {
		name   string
		doc    string
		query  string
		status int
	}{
		{"unknown document", "invoice", "", http.StatusNotFound},
		{"nothing saved", "goals-checklist", "", http.StatusNotFound},
		{"bad format", "nutritional-plan", "?format=docx", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := exportRequest(env, tt.doc, tt.query)
			err := env.handler.Export(c)
			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected echo.HTTPError, got %T", err)
			assert.Equal(t, tt.status, httpErr.Code)
		})
	}
}
