package section

var (
	intensityLevels      = []string{"low", "moderate", "high", "very_high"}
	frequencies          = []string{"never", "rarely", "sometimes", "often", "always"}
	eatingOutFrequencies = []string{"never", "monthly", "weekly", "several_per_week", "daily"}
	qualityLevels        = []string{"poor", "fair", "good", "excellent"}
	energyLevels         = []string{"low", "moderate", "high"}
	digestionStates      = []string{"poor", "irregular", "normal", "good"}
	moodStates           = []string{"low", "unstable", "stable", "good"}
	cookingSkills        = []string{"none", "basic", "intermediate", "advanced"}
	budgetLevels         = []string{"low", "medium", "high"}
	emotionalLimitations = []string{"anxiety", "compulsion", "low_self_esteem", "lack_of_time", "lack_of_motivation", "social_pressure", "emotional_hunger", "insomnia"}
	goalOptions          = []string{"weight_loss", "muscle_gain", "hydration", "sleep", "energy", "glycemic_control", "digestive_health", "eating_behavior", "physical_activity"}
)

var (
	ClinicalHistorySchema = NewSchema(KindClinicalHistory, "Clinical History", "1",
		Text("mainComplaint", "main_complaint", "Main complaint", func(r *ClinicalHistory) *string { return &r.MainComplaint }),
		Text("diseases", "diseases", "Diseases", func(r *ClinicalHistory) *string { return &r.Diseases }),
		Text("medications", "medications", "Medications", func(r *ClinicalHistory) *string { return &r.Medications }),
		Text("supplements", "supplements", "Supplements", func(r *ClinicalHistory) *string { return &r.Supplements }),
		Text("allergies", "allergies", "Allergies and intolerances", func(r *ClinicalHistory) *string { return &r.Allergies }),
		Text("surgeries", "surgeries", "Surgeries", func(r *ClinicalHistory) *string { return &r.Surgeries }),
		Text("familyHistory", "family_history", "Family history", func(r *ClinicalHistory) *string { return &r.FamilyHistory }),
		Text("labResults", "lab_results", "Lab results", func(r *ClinicalHistory) *string { return &r.LabResults }),
		Text("bowelHabits", "bowel_habits", "Bowel habits", func(r *ClinicalHistory) *string { return &r.BowelHabits }),
		Text("notes", "notes", "Notes", func(r *ClinicalHistory) *string { return &r.Notes }),
	)
	PhysicalAssessmentSchema = NewSchema(KindPhysicalAssessment, "Physical Assessment", "2a",
		Numeric("weight", "weight", "Weight (kg)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.Weight }),
		Numeric("height", "height", "Height (cm)", PolarityNeutral, func(r *PhysicalAssessment) *string { return &r.Height }),
		Numeric("bmi", "bmi", "BMI", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.BMI }),
		Numeric("bodyFat", "body_fat", "Body fat (%)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.BodyFat }),
		Numeric("waistCircumference", "waist_circumference", "Waist circumference (cm)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.WaistCircumference }),
		Numeric("hipCircumference", "hip_circumference", "Hip circumference (cm)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.HipCircumference }),
		Numeric("armCircumference", "arm_circumference", "Arm circumference (cm)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.ArmCircumference }),
		Numeric("thighCircumference", "thigh_circumference", "Thigh circumference (cm)", PolarityLowerIsBetter, func(r *PhysicalAssessment) *string { return &r.ThighCircumference }),
		Text("bloodPressure", "blood_pressure", "Blood pressure", func(r *PhysicalAssessment) *string { return &r.BloodPressure }),
		Text("notes", "notes", "Notes", func(r *PhysicalAssessment) *string { return &r.Notes }),
	)
	EmotionalAssessmentSchema = NewSchema(KindEmotionalAssessment, "Emotional Assessment", "2b",
		Choice("stressLevel", "stress_level", "Stress level", intensityLevels, func(r *EmotionalAssessment) *string { return &r.StressLevel }),
		Choice("anxietyLevel", "anxiety_level", "Anxiety level", intensityLevels, func(r *EmotionalAssessment) *string { return &r.AnxietyLevel }),
		Choice("emotionalEating", "emotional_eating", "Emotional eating", frequencies, func(r *EmotionalAssessment) *string { return &r.EmotionalEating }),
		Multi("limitations", "limitations", "Emotional limitations (up to 3)", emotionalLimitations, 3, func(r *EmotionalAssessment) *[]string { return &r.Limitations }),
		Notes("limitationNotes", "limitation_notes", "Notes per limitation", "limitations", func(r *EmotionalAssessment) *map[string]string { return &r.LimitationNotes }),
		Text("motivation", "motivation", "Motivation", func(r *EmotionalAssessment) *string { return &r.Motivation }),
		Text("notes", "notes", "Notes", func(r *EmotionalAssessment) *string { return &r.Notes }),
	)
	BehavioralAssessmentSchema = NewSchema(KindBehavioralAssessment, "Behavioral Assessment", "2c",
		Numeric("planConsistency", "plan_consistency", "Plan consistency (%)", PolarityHigherIsBetter, func(r *BehavioralAssessment) *string { return &r.PlanConsistency }),
		Numeric("activityPercentage", "activity_percentage", "Physical activity (%)", PolarityHigherIsBetter, func(r *BehavioralAssessment) *string { return &r.ActivityPercentage }),
		Numeric("mealsPerDay", "meals_per_day", "Meals per day", PolarityNeutral, func(r *BehavioralAssessment) *string { return &r.MealsPerDay }),
		Numeric("waterIntake", "water_intake", "Water intake (L/day)", PolarityNeutral, func(r *BehavioralAssessment) *string { return &r.WaterIntake }),
		Choice("eatingOutFrequency", "eating_out_frequency", "Eating out frequency", eatingOutFrequencies, func(r *BehavioralAssessment) *string { return &r.EatingOutFrequency }),
		Choice("snacking", "snacking", "Snacking between meals", frequencies, func(r *BehavioralAssessment) *string { return &r.Snacking }),
		Choice("sleepQuality", "sleep_quality", "Sleep quality", qualityLevels, func(r *BehavioralAssessment) *string { return &r.SleepQuality }),
		Text("notes", "notes", "Notes", func(r *BehavioralAssessment) *string { return &r.Notes }),
	)
	WellnessAssessmentSchema = NewSchema(KindWellnessAssessment, "Wellness Assessment", "2d",
		Choice("energyLevel", "energy_level", "Energy level", energyLevels, func(r *WellnessAssessment) *string { return &r.EnergyLevel }),
		Numeric("sleepHours", "sleep_hours", "Sleep hours", PolarityNeutral, func(r *WellnessAssessment) *string { return &r.SleepHours }),
		Choice("digestion", "digestion", "Digestion", digestionStates, func(r *WellnessAssessment) *string { return &r.Digestion }),
		Choice("mood", "mood", "Mood", moodStates, func(r *WellnessAssessment) *string { return &r.Mood }),
		Numeric("qualityOfLife", "quality_of_life", "Quality of life (0-10)", PolarityNeutral, func(r *WellnessAssessment) *string { return &r.QualityOfLife }),
		Text("notes", "notes", "Notes", func(r *WellnessAssessment) *string { return &r.Notes }),
	)
	NutritionalStructureSchema = NewSchema(KindNutritionalStructure, "Plan Structure", "3a",
		Numeric("calorieTarget", "calorie_target", "Calorie target (kcal)", PolarityNeutral, func(r *NutritionalStructure) *string { return &r.CalorieTarget }),
		Numeric("proteinTarget", "protein_target", "Protein target (g)", PolarityNeutral, func(r *NutritionalStructure) *string { return &r.ProteinTarget }),
		Numeric("carbTarget", "carb_target", "Carbohydrate target (g)", PolarityNeutral, func(r *NutritionalStructure) *string { return &r.CarbTarget }),
		Numeric("fatTarget", "fat_target", "Fat target (g)", PolarityNeutral, func(r *NutritionalStructure) *string { return &r.FatTarget }),
		Numeric("mealsPerDay", "meals_per_day", "Meals per day", PolarityNeutral, func(r *NutritionalStructure) *string { return &r.MealsPerDay }),
		Text("mealTimes", "meal_times", "Meal times", func(r *NutritionalStructure) *string { return &r.MealTimes }),
		Text("restrictions", "restrictions", "Dietary restrictions", func(r *NutritionalStructure) *string { return &r.Restrictions }),
		Text("notes", "notes", "Notes", func(r *NutritionalStructure) *string { return &r.Notes }),
	)
	NutritionalPersonalizationSchema = NewSchema(KindNutritionalPersonalization, "Plan Personalization", "3b",
		Text("foodPreferences", "food_preferences", "Food preferences", func(r *NutritionalPersonalization) *string { return &r.FoodPreferences }),
		Text("foodAversions", "food_aversions", "Food aversions", func(r *NutritionalPersonalization) *string { return &r.FoodAversions }),
		Choice("cookingSkill", "cooking_skill", "Cooking skill", cookingSkills, func(r *NutritionalPersonalization) *string { return &r.CookingSkill }),
		Choice("budget", "budget", "Food budget", budgetLevels, func(r *NutritionalPersonalization) *string { return &r.Budget }),
		Text("routine", "routine", "Daily routine", func(r *NutritionalPersonalization) *string { return &r.Routine }),
		Text("culturalPreferences", "cultural_preferences", "Cultural or religious preferences", func(r *NutritionalPersonalization) *string { return &r.CulturalPreferences }),
		Text("notes", "notes", "Notes", func(r *NutritionalPersonalization) *string { return &r.Notes }),
	)
	NutritionalPlanSchema = NewSchema(KindNutritionalPlan, "Plan Generation", "3c",
		Text("breakfast", "breakfast", "Breakfast", func(r *NutritionalPlan) *string { return &r.Breakfast }),
		Text("morningSnack", "morning_snack", "Morning snack", func(r *NutritionalPlan) *string { return &r.MorningSnack }),
		Text("lunch", "lunch", "Lunch", func(r *NutritionalPlan) *string { return &r.Lunch }),
		Text("afternoonSnack", "afternoon_snack", "Afternoon snack", func(r *NutritionalPlan) *string { return &r.AfternoonSnack }),
		Text("dinner", "dinner", "Dinner", func(r *NutritionalPlan) *string { return &r.Dinner }),
		Text("supper", "supper", "Supper", func(r *NutritionalPlan) *string { return &r.Supper }),
		Text("shoppingList", "shopping_list", "Shopping list", func(r *NutritionalPlan) *string { return &r.ShoppingList }),
		Text("prescriptions", "prescriptions", "Prescriptions", func(r *NutritionalPlan) *string { return &r.Prescriptions }),
		Text("guidelines", "guidelines", "Guidelines", func(r *NutritionalPlan) *string { return &r.Guidelines }),
	)
	GoalsSchema = NewSchema(KindGoals, "Goals", "4",
		Multi("goals", "goals", "Goals", goalOptions, 0, func(r *Goals) *[]string { return &r.Goals }),
		Notes("goalNotes", "goal_notes", "Notes per goal", "goals", func(r *Goals) *map[string]string { return &r.GoalNotes }),
		Text("deadline", "deadline", "Deadline", func(r *Goals) *string { return &r.Deadline }),
		Text("notes", "notes", "Notes", func(r *Goals) *string { return &r.Notes }),
	)
)

var registry = []Descriptor{
	ClinicalHistorySchema,
	PhysicalAssessmentSchema,
	EmotionalAssessmentSchema,
	BehavioralAssessmentSchema,
	WellnessAssessmentSchema,
	NutritionalStructureSchema,
	NutritionalPersonalizationSchema,
	NutritionalPlanSchema,
	GoalsSchema,
}

// All returns every section descriptor in wizard order.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

func Lookup(kind Kind) (Descriptor, bool) {
	for _, d := range registry {
		if d.Kind() == kind {
			return d, true
		}
	}
	return nil, false
}

// ForStep returns the section edited at a wizard position ("1", "2a", ...).
func ForStep(step string) (Descriptor, bool) {
	for _, d := range registry {
		if d.Step() == step {
			return d, true
		}
	}
	return nil, false
}
