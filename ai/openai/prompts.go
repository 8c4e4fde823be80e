// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/schema"
)

const extractionResponseSchema = `{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "summary": {"type": "string"},
          "attributes": {"type": "object", "additionalProperties": {"type": "string"}}
        },
        "required": ["name", "type"]
      }
    },
    "facts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "relation": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
          "fact": {"type": "string"}
        },
        "required": ["source", "target", "relation", "fact"]
      }
    }
  },
  "required": ["entities", "facts"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the entities and the facts relating them from the given episode and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- An entity is a specific person, organization, place, artifact, concept or event that the episode mentions.
- Use the exact name as written in the episode. Never extract generic speakers such as "user" or "assistant".
- The "type" field must be one of: %s.
- "summary" is one sentence describing the entity using only information from the episode.
- A fact is a relationship between two extracted entities. "source" and "target" must be entity names from your "entities" list.
- "relation" is a short UPPER_SNAKE_CASE verb phrase such as WORKS_AT or PREFERS.
- "fact" restates the relationship as a complete sentence.
- Include only what is explicitly stated or clearly implied. Do not hallucinate.
- If nothing can be extracted, return {"entities": [], "facts": []}.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.
%s
Example:
Input: "Alice joined Acme last spring and prefers tea over coffee."
Output:
{
  "entities": [
    {"name":"Alice","type":"Entity","summary":"Alice joined Acme last spring."},
    {"name":"Acme","type":"Entity","summary":"Acme is the company Alice joined."},
    {"name":"tea","type":"Entity","summary":"A drink Alice prefers."}
  ],
  "facts": [
    {"source":"Alice","target":"Acme","relation":"WORKS_AT","fact":"Alice joined Acme last spring."},
    {"source":"Alice","target":"tea","relation":"PREFERS","fact":"Alice prefers tea over coffee."}
  ]
}`

// buildSystemPrompt creates the system prompt with the entity types embedded.
func buildSystemPrompt(shapes map[string]schema.Shape) string {
	names := make([]string, 0, len(shapes)+1)
	for name := range shapes {
		names = append(names, name)
	}
	slices.Sort(names)
	names = append(names, ai.GenericEntityType)

	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(names, ", "),
		describeShapes(shapes, names[:len(names)-1]))
}

// describeShapes renders the entity types the model should prefer over
// the generic type.
func describeShapes(shapes map[string]schema.Shape, names []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nEntity types (use \"" + ai.GenericEntityType + "\" when none fits):\n")
	for _, name := range names {
		s := shapes[name]
		fmt.Fprintf(&b, "\n## %s\n%s\n", s.Name, s.Description)
		if s.Instructions != "" {
			fmt.Fprintf(&b, "Instructions: %s\n", s.Instructions)
		}
		if len(s.Fields) > 0 {
			b.WriteString("Attributes:\n")
			for _, f := range s.Fields {
				req := "optional"
				if f.Required {
					req = "required"
				}
				fmt.Fprintf(&b, "- %s (%s): %s\n", f.Name, req, f.Description)
			}
		}
	}
	return b.String()
}

// buildUserPrompt wraps the episode with its metadata.
func buildUserPrompt(req ai.ExtractionRequest) string {
	var b strings.Builder
	if req.Name != "" {
		fmt.Fprintf(&b, "Episode: %s\n", req.Name)
	}
	if req.SourceDescription != "" {
		fmt.Fprintf(&b, "Source: %s\n", req.SourceDescription)
	}
	fmt.Fprintf(&b, "Format: %s\n\n", req.Format)
	b.WriteString(req.Content)
	return b.String()
}
