package storygraph

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure. Field is a path such as
// "epics[0].features[1].name".
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

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks names, orders, estimates and story types across the graph
// and its increments. It returns a *ValidationError, or nil if g is valid.
func Validate(g *Graph) error {
	var ve ValidationError
	validateEpics(&ve, "epics", g.Epics)

	incNames := make(map[string]bool)
	for i, inc := range g.Increments {
		path := fmt.Sprintf("increments[%d]", i)
		name := strings.TrimSpace(inc.Name)
		switch {
		case name == "":
			ve.add(path+".name", "is required")
		case incNames[name]:
			ve.add(path+".name", "duplicate increment %q", name)
		}
		incNames[name] = true
		if inc.Priority < 0 {
			ve.add(path+".priority", "must be non-negative, got %d", inc.Priority)
		}
		validateEpics(&ve, path+".epics", inc.Epics)
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateEpics(ve *ValidationError, path string, epics []*Epic) {
	names := make(map[string]bool)
	orders := make(map[int]string)
	for i, e := range epics {
		p := fmt.Sprintf("%s[%d]", path, i)
		checkName(ve, p, "epic", e.Name, names)
		if e.Order < 0 {
			ve.add(p+".sequential_order", "must be non-negative, got %d", e.Order)
		} else if prev, ok := orders[e.Order]; ok && e.Order > 0 {
			ve.add(p+".sequential_order", "%d already used by %q", e.Order, prev)
		}
		orders[e.Order] = e.Name
		if e.EstimatedStories != nil && *e.EstimatedStories < 0 {
			ve.add(p+".estimated_stories", "must be non-negative, got %d", *e.EstimatedStories)
		}
		validateFeatures(ve, p+".features", e.Features)
	}
}

func validateFeatures(ve *ValidationError, path string, features []*Feature) {
	names := make(map[string]bool)
	orders := make(map[int]string)
	for i, f := range features {
		p := fmt.Sprintf("%s[%d]", path, i)
		checkName(ve, p, "feature", f.Name, names)
		if f.Order < 0 {
			ve.add(p+".sequential_order", "must be non-negative, got %d", f.Order)
		} else if prev, ok := orders[f.Order]; ok && f.Order > 0 {
			ve.add(p+".sequential_order", "%d already used by %q", f.Order, prev)
		}
		orders[f.Order] = f.Name
		if f.StoryCount != nil && *f.StoryCount < 0 {
			ve.add(p+".story_count", "must be non-negative, got %d", *f.StoryCount)
		}
		validateStories(ve, p+".stories", f.Stories)
	}
}

func validateStories(ve *ValidationError, path string, stories []*Story) {
	names := make(map[string]bool)
	orders := make(map[Order]string)
	for i, s := range stories {
		p := fmt.Sprintf("%s[%d]", path, i)
		checkName(ve, p, "story", s.Name, names)
		if prev, ok := orders[s.Order]; ok && !s.Order.IsZero() {
			ve.add(p+".sequential_order", "%s already used by %q", s.Order, prev)
		}
		orders[s.Order] = s.Name
		if !s.Type.IsValid() {
			ve.add(p+".story_type", "invalid value %q", s.Type)
		}
		for j, u := range s.Users {
			if strings.TrimSpace(u) == "" {
				ve.add(fmt.Sprintf("%s.users[%d]", p, j), "is empty")
			}
		}
	}
}

func checkName(ve *ValidationError, path, kind, name string, seen map[string]bool) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		ve.add(path+".name", "is required")
	case strings.Contains(name, "|"):
		ve.add(path+".name", "must not contain '|'")
	case seen[name]:
		ve.add(path+".name", "duplicate %s %q", kind, name)
	}
	seen[name] = true
}
