package gemini

import (
	"strings"

	"github.com/Desarso/courserag/models"
	"google.golang.org/genai"
)

// ConvertToGeminiTool bundles FunctionDeclarations into a single genai tool.
func ConvertToGeminiTool(fds []models.FunctionDeclaration) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(fds))
	for _, fd := range fds {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  convertParameters(fd.Parameters),
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func convertParameters(p models.Parameters) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(p.Properties)),
		Required:   p.Required,
	}
	for name, raw := range p.Properties {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		schema.Properties[name] = convertProperty(prop)
	}
	return schema
}

// convertProperty maps a JSON-schema property map onto genai.Schema.
func convertProperty(prop map[string]interface{}) *genai.Schema {
	s := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := prop["description"].(string); ok {
		s.Description = d
	}
	switch enum := prop["enum"].(type) {
	case []string:
		s.Enum = enum
	case []interface{}:
		for _, v := range enum {
			if str, ok := v.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	if items, ok := prop["items"].(map[string]interface{}); ok {
		s.Items = convertProperty(items)
	}
	return s
}
