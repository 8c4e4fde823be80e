package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Field describes one attribute of an entity type.
type Field struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default     string `yaml:"default,omitempty" json:"default,omitempty"`
}

// Shape is an entity type definition.
type Shape struct {
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description"`
	Instructions  string  `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Fields        []Field `yaml:"fields,omitempty" json:"fields,omitempty"`
	WhenToUse     string  `yaml:"when_to_use,omitempty" json:"when_to_use,omitempty"`
	Examples      []any   `yaml:"examples,omitempty" json:"examples,omitempty"`
	Relationships []any   `yaml:"relationships,omitempty" json:"relationships,omitempty"`

	// Schema optionally carries a JSON-Schema object. When Fields is empty
	// its "properties" and "required" entries are turned into Fields.
	Schema map[string]any `yaml:"schema,omitempty" json:"schema,omitempty"`

	// Source is the file the shape was loaded from; empty for builtins.
	Source string `yaml:"-" json:"-"`
}

// Issue is one problem found while checking attributes against a Shape.
type Issue struct {
	Field   string
	Input   any
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("  Field: '%s', Input: %#v, Error: %s", i.Field, i.Input, i.Message)
}

// Field returns the named field definition.
func (s *Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Check reports attribute problems: missing required fields, and fields
// the shape doesn't define. Missing optional fields with a default are
// filled in place. A shape without fields accepts anything.
func (s *Shape) Check(attrs map[string]string) []Issue {
	if len(s.Fields) == 0 {
		return nil
	}
	var issues []Issue
	for _, f := range s.Fields {
		v, ok := attrs[f.Name]
		if ok && v != "" {
			continue
		}
		if f.Required {
			issues = append(issues, Issue{Field: f.Name, Input: nil, Message: "field required"})
			continue
		}
		if f.Default != "" && attrs != nil {
			attrs[f.Name] = f.Default
		}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := s.Field(k); !ok {
			issues = append(issues, Issue{Field: k, Input: attrs[k], Message: "extra inputs are not permitted"})
		}
	}
	return issues
}

// normalize fills Fields from a JSON-Schema object when none were given.
func (s *Shape) normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if len(s.Fields) > 0 || s.Schema == nil {
		return
	}
	props, _ := s.Schema["properties"].(map[string]any)
	required := map[string]bool{}
	if list, ok := s.Schema["required"].([]any); ok {
		for _, r := range list {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := Field{Name: name, Required: required[name]}
		if p, ok := props[name].(map[string]any); ok {
			f.Description, _ = p["description"].(string)
			f.Type, _ = p["type"].(string)
			if d, ok := p["default"]; ok && d != nil {
				f.Default = fmt.Sprint(d)
			}
		}
		s.Fields = append(s.Fields, f)
	}
}
