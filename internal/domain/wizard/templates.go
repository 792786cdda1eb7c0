package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/platform/kvstore"
)

const templatePrefix = "plan-template:"

var templateName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Template is a reusable nutritional_plan record.
type Template struct {
	Name      string          `json:"name"`
	Plan      json.RawMessage `json:"plan"`
	CreatedBy string          `json:"created_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TemplateLibrary stores standard plan templates in a key/value store.
type TemplateLibrary struct {
	kv  kvstore.Store
	now func() time.Time
}

func NewTemplateLibrary(kv kvstore.Store) *TemplateLibrary {
	return &TemplateLibrary{kv: kv, now: time.Now}
}

func checkTemplateName(name string) error {
	if !templateName.MatchString(name) {
		return fmt.Errorf("%w: %q (lowercase letters, digits, '-' and '_', up to 64)", ErrInvalidTemplateName, name)
	}
	return nil
}

// Save stores plan under name, replacing any template of the same name.
func (l *TemplateLibrary) Save(ctx context.Context, name string, plan json.RawMessage, actor string) (*Template, error) {
	if err := checkTemplateName(name); err != nil {
		return nil, err
	}
	normalized, err := section.NutritionalPlanSchema.Normalize(plan)
	if err != nil {
		return nil, err
	}
	t := &Template{Name: name, Plan: normalized, CreatedBy: actor, UpdatedAt: l.now().UTC()}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := l.kv.Save(ctx, templatePrefix+name, data); err != nil {
		return nil, fmt.Errorf("save template %s: %w", name, err)
	}
	return t, nil
}

func (l *TemplateLibrary) Get(ctx context.Context, name string) (*Template, error) {
	if err := checkTemplateName(name); err != nil {
		return nil, err
	}
	data, err := l.kv.Load(ctx, templatePrefix+name)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", name, err)
	}
	return &t, nil
}

// List returns every template sorted by name.
func (l *TemplateLibrary) List(ctx context.Context) ([]Template, error) {
	keys, err := l.kv.Keys(ctx, templatePrefix)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]Template, 0, len(keys))
	for _, k := range keys {
		t, err := l.Get(ctx, strings.TrimPrefix(k, templatePrefix))
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *TemplateLibrary) Delete(ctx context.Context, name string) error {
	if _, err := l.Get(ctx, name); err != nil {
		return err
	}
	return l.kv.Delete(ctx, templatePrefix+name)
}
