package common_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Desarso/courserag/models"
	"github.com/Desarso/courserag/vectorstore"
	"github.com/sirupsen/logrus"
)

const SearchToolName = "search_course_content"

// VectorStore is the part of the vector store the search tool depends on.
type VectorStore interface {
	Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (vectorstore.SearchResults, error)
	CourseLink(ctx context.Context, courseTitle string) (string, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// CourseSearchTool searches course materials and remembers what its last search cited.
type CourseSearchTool struct {
	store       VectorStore
	logger      logrus.FieldLogger
	lastSources []models.Source
}

func NewCourseSearchTool(store VectorStore, logger logrus.FieldLogger) *CourseSearchTool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CourseSearchTool{store: store, logger: logger}
}

func (t *CourseSearchTool) Definition() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute decodes model arguments and runs Search. An empty course_name or
// lesson_number is treated as absent, so the store sees a nil filter.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, courseName, lessonNumber, err := parseSearchArgs(args)
	if err != nil {
		return "", err
	}
	return t.Search(ctx, query, courseName, lessonNumber)
}

// Search runs the query with the given filters and formats the matches for the
// model. Filters reach the store as given; Execute has already mapped empty
// values to nil.
func (t *CourseSearchTool) Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (string, error) {
	results, err := t.store.Search(ctx, query, courseName, lessonNumber)
	if err != nil {
		return "", fmt.Errorf("course search failed: %w", err)
	}
	if results.Error != "" {
		return results.Error, nil
	}
	if results.IsEmpty() {
		return emptyResultMessage(courseName, lessonNumber), nil
	}
	return t.formatResults(ctx, results), nil
}

func (t *CourseSearchTool) LastSources() []models.Source {
	return t.lastSources
}

func (t *CourseSearchTool) ResetSources() {
	t.lastSources = nil
}

// formatResults renders each match under a "[course - Lesson n]" header and
// replaces the recorded sources with one entry per match.
func (t *CourseSearchTool) formatResults(ctx context.Context, results vectorstore.SearchResults) string {
	blocks := make([]string, 0, len(results.Results))
	sources := make([]models.Source, 0, len(results.Results))

	for _, r := range results.Results {
		label := r.Metadata.CourseTitle
		if label == "" {
			label = "unknown"
		}
		if r.Metadata.LessonNumber != nil {
			label = fmt.Sprintf("%s - Lesson %d", label, *r.Metadata.LessonNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, r.Content))
		sources = append(sources, models.Source{Name: label, Link: t.sourceLink(ctx, r.Metadata)})
	}

	t.lastSources = sources
	return strings.Join(blocks, "\n\n")
}

// sourceLink prefers the lesson URL and falls back to the course URL. Lookup
// failures leave the link empty.
func (t *CourseSearchTool) sourceLink(ctx context.Context, meta vectorstore.Metadata) string {
	if meta.CourseTitle == "" {
		return ""
	}
	var (
		link string
		err  error
	)
	if meta.LessonNumber != nil {
		link, err = t.store.LessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
	} else {
		link, err = t.store.CourseLink(ctx, meta.CourseTitle)
	}
	if err != nil {
		t.logger.WithError(err).WithField("course", meta.CourseTitle).Warn("Failed to look up source link")
		return ""
	}
	return link
}

func emptyResultMessage(courseName *string, lessonNumber *int) string {
	var filters strings.Builder
	if courseName != nil && *courseName != "" {
		fmt.Fprintf(&filters, " in course '%s'", *courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&filters, " in lesson %d", *lessonNumber)
	}
	return "No relevant content found" + filters.String() + "."
}

func parseSearchArgs(args map[string]interface{}) (string, *string, *int, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", nil, nil, fmt.Errorf("query is required")
	}

	var courseName *string
	switch v := args["course_name"].(type) {
	case nil:
	case string:
		if v != "" {
			courseName = &v
		}
	default:
		return "", nil, nil, fmt.Errorf("course_name must be a string, got %T", v)
	}

	lessonNumber, err := parseLessonNumber(args["lesson_number"])
	if err != nil {
		return "", nil, nil, err
	}
	return query, courseName, lessonNumber, nil
}

// parseLessonNumber accepts the numeric shapes JSON decoders and model SDKs produce.
func parseLessonNumber(v interface{}) (*int, error) {
	var n int
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int:
		n = val
	case int32:
		n = int(val)
	case int64:
		n = int(val)
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("lesson_number must be an integer, got %v", val)
		}
		n = int(val)
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("lesson_number must be an integer: %w", err)
		}
		n = int(i)
	case string:
		if val == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("lesson_number must be an integer: %w", err)
		}
		n = i
	default:
		return nil, fmt.Errorf("lesson_number must be an integer, got %T", v)
	}
	return &n, nil
}
