package ai

import (
	"google.golang.org/genai"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/schema"
)

// responseSchema converts a declarative schema into the response schema sent
// with a generation request. String maps are caller-owned and never requested.
func responseSchema(s *schema.Schema) *genai.Schema {
	return genaiField(s.Root())
}

func genaiField(f schema.Field) *genai.Schema {
	out := &genai.Schema{Description: f.Description}

	switch f.Kind {
	case schema.KindObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(f.Fields))
		for _, child := range f.Fields {
			if child.Kind == schema.KindStringMap {
				continue
			}
			out.Properties[child.Name] = genaiField(child)
			out.PropertyOrdering = append(out.PropertyOrdering, child.Name)
			if child.Required {
				out.Required = append(out.Required, child.Name)
			}
		}
	case schema.KindArray:
		out.Type = genai.TypeArray
		if f.Items != nil {
			out.Items = genaiField(*f.Items)
		}
	case schema.KindInteger:
		out.Type = genai.TypeInteger
	default:
		out.Type = genai.TypeString
		if len(f.Enum) > 0 {
			out.Format = "enum"
			out.Enum = append([]string{}, f.Enum...)
		}
	}
	return out
}
