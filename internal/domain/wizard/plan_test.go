package wizard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/platform/kvstore"
)

func TestDraftPlan_Defaults(t *testing.T) {
	got := DraftPlan(nil, nil)
	want := section.NutritionalPlan{
		Breakfast: "Protein source, whole grain and a fruit",
		Lunch:     "Lean protein, vegetables and a complex carbohydrate",
		Dinner:    "Lean protein and vegetables",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DraftPlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestDraftPlan_MealSlots(t *testing.T) {
	got := DraftPlan(&section.NutritionalStructure{
		MealsPerDay: "5 refeições",
		MealTimes:   "07:00, 10:00; 12:30\n16:00, 20:00",
	}, nil)

	assert.Equal(t, "07:00 Protein source, whole grain and a fruit", got.Breakfast)
	assert.Equal(t, "10:00 Fruit or yogurt", got.MorningSnack)
	assert.Equal(t, "12:30 Lean protein, vegetables and a complex carbohydrate", got.Lunch)
	assert.Equal(t, "16:00 Nuts, fruit or a dairy portion", got.AfternoonSnack)
	assert.Equal(t, "20:00 Lean protein and vegetables", got.Dinner)
	assert.Empty(t, got.Supper)
}

func TestDraftPlan_MealCount(t *testing.T) {
	tests := []struct {
		name      string
		structure section.NutritionalStructure
		want      int
	}{
		{"default", section.NutritionalStructure{}, 3},
		{"from meals per day", section.NutritionalStructure{MealsPerDay: "2"}, 2},
		{"from meal times", section.NutritionalStructure{MealTimes: "8h, 12h, 16h, 20h"}, 4},
		{"capped at six", section.NutritionalStructure{MealsPerDay: "9"}, 6},
		{"unparseable falls back", section.NutritionalStructure{MealsPerDay: "a few"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DraftPlan(&tt.structure, nil)
			meals := 0
			for _, slot := range []string{p.Breakfast, p.MorningSnack, p.Lunch, p.AfternoonSnack, p.Dinner, p.Supper} {
				if slot != "" {
					meals++
				}
			}
			assert.Equal(t, tt.want, meals)
		})
	}
}

func TestDraftPlan_TwoMealsAreLunchAndDinner(t *testing.T) {
	p := DraftPlan(&section.NutritionalStructure{MealsPerDay: "2"}, nil)
	assert.Empty(t, p.Breakfast)
	assert.NotEmpty(t, p.Lunch)
	assert.NotEmpty(t, p.Dinner)
}

func TestDraftPlan_GuidelinesAndShopping(t *testing.T) {
	got := DraftPlan(
		&section.NutritionalStructure{CalorieTarget: "1800 kcal", ProteinTarget: "120 g", Restrictions: "lactose"},
		&section.NutritionalPersonalization{
			FoodPreferences: "oats, eggs, bananas",
			FoodAversions:   "liver",
			CookingSkill:    "basic",
			Budget:          "low",
		},
	)

	assert.Equal(t, "Energy target: 1800 kcal\n"+
		"Protein: 120 g\n"+
		"Restrictions: lactose\n"+
		"Preferred foods: oats, eggs, bananas\n"+
		"Keep preparations simple: one-pan and batch-cooked meals.\n"+
		"Prefer seasonal produce, eggs, legumes and bulk grains.", got.Guidelines)
	assert.Equal(t, "- oats\n- eggs\n- bananas", got.ShoppingList)
	assert.Contains(t, got.Lunch, "(avoid liver)")
	assert.Empty(t, got.Prescriptions)
}

func TestDraftPlan_Deterministic(t *testing.T) {
	st := &section.NutritionalStructure{MealsPerDay: "4", FatTarget: "60 g"}
	pers := &section.NutritionalPersonalization{Routine: "night shifts"}
	assert.Equal(t, DraftPlan(st, pers), DraftPlan(st, pers))
}

func TestService_GeneratePlan(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	c := env.selectNew(t, sess)
	ctx := context.Background()

	require.NoError(t, section.NewProvider(env.sections, section.NutritionalStructureSchema).
		Save(ctx, env.patientID, c.ID, &section.NutritionalStructure{MealsPerDay: "3", CalorieTarget: "2000 kcal"}, "coach-1"))
	require.NoError(t, section.NewProvider(env.sections, section.NutritionalPersonalizationSchema).
		Save(ctx, env.patientID, c.ID, &section.NutritionalPersonalization{FoodPreferences: "rice"}, "coach-1"))

	v, err := env.svc.GeneratePlan(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, section.KindNutritionalPlan, v.Kind)
	assert.True(t, v.Dirty, "a draft is not saved until the coach saves it")
	assert.Equal(t, "Energy target: 2000 kcal\nPreferred foods: rice", field(t, v, "guidelines").Value)
	assert.Equal(t, "- rice", field(t, v, "shoppingList").Value)

	_, err = env.sections.Get(ctx, env.patientID, c.ID, section.KindNutritionalPlan)
	assert.ErrorIs(t, err, section.ErrNotFound)

	_, err = sess.SaveSection(ctx, section.KindNutritionalPlan)
	require.NoError(t, err)
	_, err = env.sections.Get(ctx, env.patientID, c.ID, section.KindNutritionalPlan)
	require.NoError(t, err)
}

func TestService_GeneratePlanWithoutSections(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)
	env.selectNew(t, sess)

	v, err := env.svc.GeneratePlan(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, field(t, v, "lunch").Value)
}

func TestService_GeneratePlanNeedsConsultation(t *testing.T) {
	env := newTestEnv(t)
	sess := env.start(t)

	_, err := env.svc.GeneratePlan(context.Background(), sess.ID)
	assert.ErrorIs(t, err, section.ErrNoConsultation)
}

// -- Templates --

func TestTemplateLibrary_RoundTrip(t *testing.T) {
	lib := NewTemplateLibrary(kvstore.NewMemory())
	ctx := context.Background()

	_, err := lib.Save(ctx, "low-carb", json.RawMessage(`{"lunch":"grilled fish","guidelines":"no sugar"}`), "coach-1")
	require.NoError(t, err)
	_, err = lib.Save(ctx, "athlete", json.RawMessage(`{"breakfast":"oats"}`), "coach-2")
	require.NoError(t, err)

	got, err := lib.Get(ctx, "low-carb")
	require.NoError(t, err)
	assert.Equal(t, "coach-1", got.CreatedBy)
	vals, err := section.NutritionalPlanSchema.Decode(got.Plan)
	require.NoError(t, err)
	assert.Equal(t, "grilled fish", vals["lunch"].Text)

	list, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "athlete", list[0].Name)
	assert.Equal(t, "low-carb", list[1].Name)

	require.NoError(t, lib.Delete(ctx, "athlete"))
	_, err = lib.Get(ctx, "athlete")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.ErrorIs(t, lib.Delete(ctx, "athlete"), ErrTemplateNotFound)
}

func TestTemplateLibrary_Rejects(t *testing.T) {
	lib := NewTemplateLibrary(kvstore.NewMemory())
	ctx := context.Background()

	for _, name := range []string{"", "Low Carb", "../x", "-lead"} {
		_, err := lib.Save(ctx, name, json.RawMessage(`{}`), "")
		assert.ErrorIs(t, err, ErrInvalidTemplateName, name)
	}
	_, err := lib.Save(ctx, "bad", json.RawMessage(`{"dessert":"cake"}`), "")
	assert.ErrorIs(t, err, section.ErrInvalidRecord)
}

func TestService_TemplateSaveAndApply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.start(t)
	_, err := author.Apply(section.KindNutritionalPlan, []Change{
		{Op: OpSet, Field: "breakfast", Value: "eggs and fruit"},
		{Op: OpSet, Field: "guidelines", Value: "drink water"},
	})
	require.NoError(t, err)
	_, err = env.svc.SaveTemplate(ctx, author.ID, "standard")
	require.NoError(t, err)

	other := env.start(t)
	env.selectNew(t, other)
	v, err := env.svc.ApplyTemplate(ctx, other.ID, "standard")
	require.NoError(t, err)
	assert.Equal(t, "eggs and fruit", field(t, v, "breakfast").Value)
	assert.Equal(t, "drink water", field(t, v, "guidelines").Value)
	assert.True(t, v.SaveEnabled)

	_, err = env.svc.ApplyTemplate(ctx, other.ID, "missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	list, err := env.svc.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "coach-1", list[0].CreatedBy)
}
