package ingestion

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/schema"
)

// structuredEpisode is a json episode. Narrative, when present, is the text
// handed to the extractor; Entities are declared by the submitter and
// checked against the active schemas.
type structuredEpisode struct {
	Narrative string
	Entities  []declaredEntity
}

type declaredEntity struct {
	Name       string
	Type       string
	Attributes map[string]string
}

// parseStructured parses a json episode and validates its declared
// entities. Content that is valid JSON but not an object carries no
// declared entities.
func parseStructured(content string, shapes map[string]schema.Shape) (*structuredEpisode, error) {
	if !json.Valid([]byte(content)) {
		var probe any
		err := json.Unmarshal([]byte(content), &probe)
		return nil, fmt.Errorf("%w: %w", ErrInvalidStructuredContent,
			ai.NewValidationError("episode_body", truncate(content, 80), err.Error()))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &top); err != nil {
		return &structuredEpisode{}, nil
	}

	out := &structuredEpisode{}
	verr := &ai.ValidationError{}
	if raw, ok := top["narrative"]; ok {
		if err := json.Unmarshal(raw, &out.Narrative); err != nil {
			verr.Issues = append(verr.Issues, schema.Issue{
				Field:   "narrative",
				Input:   truncate(string(raw), 80),
				Message: "narrative must be a string",
			})
		}
	}
	raw, ok := top["entities"]
	if !ok {
		if len(verr.Issues) > 0 {
			return nil, verr
		}
		return out, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		verr.Issues = append(verr.Issues, schema.Issue{
			Field:   "entities",
			Input:   truncate(string(raw), 80),
			Message: "entities must be a list of objects",
		})
		return nil, verr
	}

	for i, item := range items {
		ent, issues := declare(item, shapes)
		for _, issue := range issues {
			issue.Field = fmt.Sprintf("entities[%d].%s", i, issue.Field)
			verr.Issues = append(verr.Issues, issue)
		}
		if len(issues) == 0 {
			out.Entities = append(out.Entities, ent)
		}
	}
	if len(verr.Issues) > 0 {
		return nil, verr
	}
	return out, nil
}

// declare turns one declared entity object into an entity, reporting
// schema violations.
func declare(item map[string]any, shapes map[string]schema.Shape) (declaredEntity, []schema.Issue) {
	typ, _ := item["type"].(string)
	if typ == "" {
		return declaredEntity{}, []schema.Issue{{Field: "type", Input: item["type"], Message: "field required"}}
	}
	shape, ok := shapes[typ]
	if !ok {
		return declaredEntity{}, []schema.Issue{{
			Field:   "type",
			Input:   typ,
			Message: "unknown entity type; expected one of: " + strings.Join(slices.Sorted(maps.Keys(shapes)), ", "),
		}}
	}

	attrs := make(map[string]string, len(item))
	for k, v := range item {
		if k == "type" {
			continue
		}
		attrs[k] = stringify(v)
	}

	name := attrs["name"]
	if name == "" {
		name = attrs["title"]
	}
	if name == "" {
		return declaredEntity{}, []schema.Issue{{Field: "name", Message: "field required"}}
	}
	if _, ok := shape.Field("name"); !ok {
		delete(attrs, "name")
	}

	if issues := shape.Check(attrs); len(issues) > 0 {
		return declaredEntity{}, issues
	}
	return declaredEntity{Name: name, Type: typ, Attributes: attrs}, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
