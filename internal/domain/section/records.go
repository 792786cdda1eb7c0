package section

// Record types. JSON tags are the persisted field names.

type ClinicalHistory struct {
	MainComplaint string `json:"main_complaint"`
	Diseases      string `json:"diseases"`
	Medications   string `json:"medications"`
	Supplements   string `json:"supplements"`
	Allergies     string `json:"allergies"`
	Surgeries     string `json:"surgeries"`
	FamilyHistory string `json:"family_history"`
	LabResults    string `json:"lab_results"`
	BowelHabits   string `json:"bowel_habits"`
	Notes         string `json:"notes"`
}

type PhysicalAssessment struct {
	Weight             string `json:"weight"`
	Height             string `json:"height"`
	BMI                string `json:"bmi"`
	BodyFat            string `json:"body_fat"`
	WaistCircumference string `json:"waist_circumference"`
	HipCircumference   string `json:"hip_circumference"`
	ArmCircumference   string `json:"arm_circumference"`
	ThighCircumference string `json:"thigh_circumference"`
	BloodPressure      string `json:"blood_pressure"`
	Notes              string `json:"notes"`
}

type EmotionalAssessment struct {
	StressLevel     string            `json:"stress_level"`
	AnxietyLevel    string            `json:"anxiety_level"`
	EmotionalEating string            `json:"emotional_eating"`
	Limitations     []string          `json:"limitations,omitempty"`
	LimitationNotes map[string]string `json:"limitation_notes,omitempty"`
	Motivation      string            `json:"motivation"`
	Notes           string            `json:"notes"`
}

type BehavioralAssessment struct {
	PlanConsistency    string `json:"plan_consistency"`
	ActivityPercentage string `json:"activity_percentage"`
	MealsPerDay        string `json:"meals_per_day"`
	WaterIntake        string `json:"water_intake"`
	EatingOutFrequency string `json:"eating_out_frequency"`
	Snacking           string `json:"snacking"`
	SleepQuality       string `json:"sleep_quality"`
	Notes              string `json:"notes"`
}

type WellnessAssessment struct {
	EnergyLevel   string `json:"energy_level"`
	SleepHours    string `json:"sleep_hours"`
	Digestion     string `json:"digestion"`
	Mood          string `json:"mood"`
	QualityOfLife string `json:"quality_of_life"`
	Notes         string `json:"notes"`
}

type NutritionalStructure struct {
	CalorieTarget string `json:"calorie_target"`
	ProteinTarget string `json:"protein_target"`
	CarbTarget    string `json:"carb_target"`
	FatTarget     string `json:"fat_target"`
	MealsPerDay   string `json:"meals_per_day"`
	MealTimes     string `json:"meal_times"`
	Restrictions  string `json:"restrictions"`
	Notes         string `json:"notes"`
}

type NutritionalPersonalization struct {
	FoodPreferences     string `json:"food_preferences"`
	FoodAversions       string `json:"food_aversions"`
	CookingSkill        string `json:"cooking_skill"`
	Budget              string `json:"budget"`
	Routine             string `json:"routine"`
	CulturalPreferences string `json:"cultural_preferences"`
	Notes               string `json:"notes"`
}

type NutritionalPlan struct {
	Breakfast      string `json:"breakfast"`
	MorningSnack   string `json:"morning_snack"`
	Lunch          string `json:"lunch"`
	AfternoonSnack string `json:"afternoon_snack"`
	Dinner         string `json:"dinner"`
	Supper         string `json:"supper"`
	ShoppingList   string `json:"shopping_list"`
	Prescriptions  string `json:"prescriptions"`
	Guidelines     string `json:"guidelines"`
}

type Goals struct {
	Goals     []string          `json:"goals,omitempty"`
	GoalNotes map[string]string `json:"goal_notes,omitempty"`
	Deadline  string            `json:"deadline"`
	Notes     string            `json:"notes"`
}
