package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateEvent checks an Event for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the event is valid.
func ValidateEvent(e *Event) error {
	var ve ValidationError

	// Name: required, single line, at most 100 characters.
	name := strings.TrimSpace(e.Name)
	switch {
	case name == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	case len([]rune(name)) > 100:
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be 100 characters or fewer"})
	case strings.ContainsAny(name, "\r\n/"):
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must not contain newlines or slashes"})
	}

	if strings.TrimSpace(e.Template) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "template", Message: "is required"})
	}

	if len(e.Slots) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "slots", Message: "must contain at least one role"})
	}
	seen := make(map[string]bool, len(e.Slots))
	for _, s := range e.Slots {
		key := strings.ToLower(s.Role)
		if seen[key] {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "slots",
				Message: fmt.Sprintf("duplicate role %q", s.Role),
			})
		}
		seen[key] = true
	}

	if e.ScheduledAt.IsZero() {
		ve.Errors = append(ve.Errors, FieldError{Field: "scheduled_at", Message: "is required"})
	}

	if len([]rune(e.Description)) > 2000 {
		ve.Errors = append(ve.Errors, FieldError{Field: "description", Message: "must be 2000 characters or fewer"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateTemplate checks that a template has a name and unique, non-empty roles.
func ValidateTemplate(t *RoleTemplate) error {
	var ve ValidationError

	if strings.TrimSpace(t.Name) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	}
	if len(t.Roles) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "roles", Message: "must contain at least one role"})
	}
	seen := make(map[string]bool, len(t.Roles))
	for _, r := range t.Roles {
		if strings.TrimSpace(r) == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: "roles", Message: "must not contain empty labels"})
			continue
		}
		key := strings.ToLower(r)
		if seen[key] {
			ve.Errors = append(ve.Errors, FieldError{Field: "roles", Message: fmt.Sprintf("duplicate role %q", r)})
		}
		seen[key] = true
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
