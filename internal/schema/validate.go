package schema

import (
	"fmt"
	"strings"

	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/samber/lo"
)

// Violation is one failed field constraint
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Mode selects create or update validation rules
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// Validate checks payload against the field schema and returns the accepted values in
// their canonical types. Unknown and protected keys are dropped silently. Every
// violation is collected, nothing is returned when any field fails.
func (e *Entity) Validate(payload map[string]any, mode Mode) (map[string]any, error) {
	values := make(map[string]any, len(payload))
	var violations []Violation

	for i := range e.Fields {
		f := &e.Fields[i]
		if e.IsProtected(f.Name) {
			continue
		}

		raw, present := payload[f.Name]
		if !present {
			if mode == ModeCreate && f.Required && f.Default == nil && !f.DefaultNow {
				violations = append(violations, Violation{Field: f.Name, Message: fmt.Sprintf("%s is required", f.Name)})
			}
			continue
		}

		if raw == nil || isBlank(raw) {
			if f.Required {
				violations = append(violations, Violation{Field: f.Name, Message: fmt.Sprintf("%s is required", f.Name)})
				continue
			}
			values[f.Name] = nil
			continue
		}

		v, msg := f.Coerce(raw)
		if msg != "" {
			violations = append(violations, Violation{Field: f.Name, Message: fmt.Sprintf("%s %s", f.Name, msg)})
			continue
		}
		values[f.Name] = v
	}

	if mode == ModeUpdate && len(values) == 0 && len(violations) == 0 {
		violations = append(violations, Violation{Field: "body", Message: "at least one updatable field is required"})
	}

	if len(violations) > 0 {
		return nil, NewValidationError(violations)
	}
	return values, nil
}

// ApplyDefaults fills fields left out of a create payload
func (e *Entity) ApplyDefaults(values map[string]any, now func() any) {
	for i := range e.Fields {
		f := &e.Fields[i]
		if _, ok := values[f.Name]; ok {
			continue
		}
		switch {
		case f.Default != nil:
			values[f.Name] = f.Default
		case f.DefaultNow:
			values[f.Name] = now()
		}
	}
}

// ValidateTransition checks the body of a workflow call. The returned map holds
// only the declared parameters of t, keyed by their field names.
func (e *Entity) ValidateTransition(t *Transition, body map[string]any) (map[string]any, error) {
	values := make(map[string]any)
	var violations []Violation

	if t.NotesField != "" {
		if notes, ok := body["notes"]; ok && notes != nil {
			s, isString := notes.(string)
			if !isString {
				violations = append(violations, Violation{Field: "notes", Message: "notes must be a string"})
			} else if strings.TrimSpace(s) != "" {
				values[t.NotesField] = s
			}
		}
	}

	if t.ReasonField != "" {
		reason, _ := body["reason"].(string)
		if strings.TrimSpace(reason) == "" {
			violations = append(violations, Violation{Field: "reason", Message: "reason is required"})
		} else {
			values[t.ReasonField] = reason
		}
	}

	for _, name := range t.Params {
		f, ok := e.Field(name)
		if !ok {
			continue
		}
		raw, present := body[name]
		if !present || raw == nil || isBlank(raw) {
			if lo.Contains(t.Required, name) {
				violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("%s is required", name)})
			}
			continue
		}
		v, msg := f.Coerce(raw)
		if msg != "" {
			violations = append(violations, Violation{Field: name, Message: fmt.Sprintf("%s %s", name, msg)})
			continue
		}
		values[name] = v
	}

	if len(violations) > 0 {
		return nil, NewValidationError(violations)
	}
	return values, nil
}

// NewValidationError wraps violations into the validation error returned to clients
func NewValidationError(violations []Violation) error {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return ierr.NewErrorf("validation failed for %s", strings.Join(fields, ", ")).
		WithHint("Validation failed").
		WithReportableDetails(map[string]any{
			"violations": violations,
		}).
		Mark(ierr.ErrValidation)
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
