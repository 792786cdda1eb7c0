package wizard

import (
	"fmt"
	"strings"

	"github.com/nutribox/nutribox/internal/domain/report"
	"github.com/nutribox/nutribox/internal/domain/section"
)

type mealSlot struct {
	name  string
	hint  string
	field func(p *section.NutritionalPlan) *string
}

// daySlots is the order meals appear in the day.
var daySlots = []mealSlot{
	{"breakfast", "protein source, whole grain and a fruit", func(p *section.NutritionalPlan) *string { return &p.Breakfast }},
	{"morning_snack", "fruit or yogurt", func(p *section.NutritionalPlan) *string { return &p.MorningSnack }},
	{"lunch", "lean protein, vegetables and a complex carbohydrate", func(p *section.NutritionalPlan) *string { return &p.Lunch }},
	{"afternoon_snack", "nuts, fruit or a dairy portion", func(p *section.NutritionalPlan) *string { return &p.AfternoonSnack }},
	{"dinner", "lean protein and vegetables", func(p *section.NutritionalPlan) *string { return &p.Dinner }},
	{"supper", "light protein portion", func(p *section.NutritionalPlan) *string { return &p.Supper }},
}

// slotPriority is the order slots are switched on as meals_per_day grows.
var slotPriority = []string{"lunch", "dinner", "breakfast", "afternoon_snack", "morning_snack", "supper"}

const defaultMealsPerDay = 3

var cookingGuidance = map[string]string{
	"none":         "Favour ready-to-eat and no-cook options.",
	"basic":        "Keep preparations simple: one-pan and batch-cooked meals.",
	"intermediate": "Weekly batch cooking keeps the plan on track.",
	"advanced":     "Vary recipes weekly to keep the plan interesting.",
}

var budgetGuidance = map[string]string{
	"low":    "Prefer seasonal produce, eggs, legumes and bulk grains.",
	"medium": "Balance fresh produce with pantry staples.",
	"high":   "Fresh fish and specialty produce fit the budget.",
}

// DraftPlan assembles a nutritional plan from the structure and
// personalization sections. Either may be nil. The result is deterministic
// for the same input.
func DraftPlan(st *section.NutritionalStructure, pers *section.NutritionalPersonalization) section.NutritionalPlan {
	if st == nil {
		st = &section.NutritionalStructure{}
	}
	if pers == nil {
		pers = &section.NutritionalPersonalization{}
	}

	times := splitList(st.MealTimes)
	meals := defaultMealsPerDay
	if n, ok := report.ParseNumber(st.MealsPerDay); ok && n >= 1 {
		meals = int(n)
	} else if len(times) > 0 {
		meals = len(times)
	}
	if meals > len(daySlots) {
		meals = len(daySlots)
	}
	active := make(map[string]bool, meals)
	for _, name := range slotPriority[:meals] {
		active[name] = true
	}

	var plan section.NutritionalPlan
	i := 0
	for _, slot := range daySlots {
		if !active[slot.name] {
			continue
		}
		line := capitalize(slot.hint)
		if i < len(times) {
			line = times[i] + " " + line
		}
		if pers.FoodAversions != "" {
			line += " (avoid " + strings.TrimSpace(pers.FoodAversions) + ")"
		}
		*slot.field(&plan) = line
		i++
	}

	var g []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			g = append(g, fmt.Sprintf("%s: %s", label, v))
		}
	}
	add("Energy target", st.CalorieTarget)
	add("Protein", st.ProteinTarget)
	add("Carbohydrates", st.CarbTarget)
	add("Fat", st.FatTarget)
	add("Restrictions", st.Restrictions)
	add("Preferred foods", pers.FoodPreferences)
	add("Routine", pers.Routine)
	add("Cultural preferences", pers.CulturalPreferences)
	if s, ok := cookingGuidance[pers.CookingSkill]; ok {
		g = append(g, s)
	}
	if s, ok := budgetGuidance[pers.Budget]; ok {
		g = append(g, s)
	}
	plan.Guidelines = strings.Join(g, "\n")

	var shopping []string
	for _, item := range splitList(pers.FoodPreferences) {
		shopping = append(shopping, "- "+item)
	}
	plan.ShoppingList = strings.Join(shopping, "\n")
	return plan
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
