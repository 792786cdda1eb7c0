package wizard

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nutribox/nutribox/internal/domain/section"
)

// SubStep is a position inside a step, identified by a token such as "2a".
type SubStep struct {
	Token   string       `yaml:"token" json:"token"`
	Title   string       `yaml:"title" json:"title"`
	Section section.Kind `yaml:"section,omitempty" json:"section,omitempty"`
}

type Step struct {
	Number   int          `yaml:"number" json:"number"`
	Title    string       `yaml:"title" json:"title"`
	Section  section.Kind `yaml:"section,omitempty" json:"section,omitempty"`
	SubSteps []SubStep    `yaml:"substeps,omitempty" json:"substeps,omitempty"`
}

func (s Step) firstSubStep() string {
	if len(s.SubSteps) == 0 {
		return ""
	}
	return s.SubSteps[0].Token
}

func (s Step) lastSubStep() string {
	if len(s.SubSteps) == 0 {
		return ""
	}
	return s.SubSteps[len(s.SubSteps)-1].Token
}

func (s Step) subStepIndex(token string) int {
	for i, ss := range s.SubSteps {
		if ss.Token == token {
			return i
		}
	}
	return -1
}

// Flow is the ordered list of wizard steps.
type Flow struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// DefaultFlow returns the standard consultation flow.
func DefaultFlow() *Flow {
	return &Flow{Steps: []Step{
		{Number: 1, Title: "Clinical History", Section: section.KindClinicalHistory},
		{Number: 2, Title: "Assessments", SubSteps: []SubStep{
			{Token: "2a", Title: "Physical", Section: section.KindPhysicalAssessment},
			{Token: "2b", Title: "Emotional", Section: section.KindEmotionalAssessment},
			{Token: "2c", Title: "Behavioral", Section: section.KindBehavioralAssessment},
			{Token: "2d", Title: "Wellness", Section: section.KindWellnessAssessment},
		}},
		{Number: 3, Title: "Nutritional Plan", SubSteps: []SubStep{
			{Token: "3a", Title: "Structure", Section: section.KindNutritionalStructure},
			{Token: "3b", Title: "Personalization", Section: section.KindNutritionalPersonalization},
			{Token: "3c", Title: "Generation", Section: section.KindNutritionalPlan},
		}},
		{Number: 4, Title: "Goals", Section: section.KindGoals},
		{Number: 5, Title: "Prints"},
	}}
}

// LoadFlow reads a YAML flow definition from path.
func LoadFlow(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}
	return ParseFlow(data)
}

func ParseFlow(data []byte) (*Flow, error) {
	var f Flow
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flow: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that step numbers ascend, that sub-step tokens are unique
// and prefixed with their step number, and that referenced sections exist.
func (f *Flow) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow has no steps")
	}
	tokens := make(map[string]bool)
	checkSection := func(where string, kind section.Kind) error {
		if kind == "" {
			return nil
		}
		if _, ok := section.Lookup(kind); !ok {
			return fmt.Errorf("%s: unknown section %q", where, kind)
		}
		return nil
	}
	prev := 0
	for _, s := range f.Steps {
		if s.Number <= prev {
			return fmt.Errorf("step %d: numbers must be positive and ascending", s.Number)
		}
		prev = s.Number
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("step %d: title is required", s.Number)
		}
		if s.Section != "" && len(s.SubSteps) > 0 {
			return fmt.Errorf("step %d: a step with sub-steps cannot edit a section itself", s.Number)
		}
		if err := checkSection(fmt.Sprintf("step %d", s.Number), s.Section); err != nil {
			return err
		}
		prefix := strconv.Itoa(s.Number)
		for _, ss := range s.SubSteps {
			if ss.Token == "" {
				return fmt.Errorf("step %d: sub-step token is required", s.Number)
			}
			if !strings.HasPrefix(ss.Token, prefix) || len(ss.Token) == len(prefix) {
				return fmt.Errorf("sub-step %q: token must extend step number %s", ss.Token, prefix)
			}
			if tokens[ss.Token] {
				return fmt.Errorf("sub-step %q: duplicate token", ss.Token)
			}
			tokens[ss.Token] = true
			if err := checkSection(fmt.Sprintf("sub-step %q", ss.Token), ss.Section); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Flow) index(number int) int {
	for i, s := range f.Steps {
		if s.Number == number {
			return i
		}
	}
	return -1
}

// Step returns the step with the given number.
func (f *Flow) Step(number int) (Step, bool) {
	i := f.index(number)
	if i < 0 {
		return Step{}, false
	}
	return f.Steps[i], true
}

// SectionAt returns the section edited at the given position, if any.
func (f *Flow) SectionAt(number int, token string) (section.Kind, bool) {
	s, ok := f.Step(number)
	if !ok {
		return "", false
	}
	if token == "" {
		return s.Section, s.Section != ""
	}
	if i := s.subStepIndex(token); i >= 0 {
		kind := s.SubSteps[i].Section
		return kind, kind != ""
	}
	return "", false
}
