// Package common_tools provides the tools the course assistant can call and the
// registry that dispatches them.
//
// Available tools:
//   - CourseSearchTool: semantic search over course materials, with optional
//     course and lesson filters. Records the sources of its last search.
package common_tools

import (
	"context"

	"github.com/Desarso/courserag/models"
)

// Tool is anything the model can invoke by name.
type Tool interface {
	Definition() models.FunctionDeclaration
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// SourceTracker is implemented by tools that retrieve content and can cite it.
type SourceTracker interface {
	LastSources() []models.Source
	ResetSources()
}
