package models

import "time"

// Source is a citation for content that grounded an answer.
type Source struct {
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

type QueryRequest struct {
	Query      string `json:"query" binding:"required"`
	Session_ID string `json:"session_id,omitempty"`
}

type QueryResponse struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Session_ID string   `json:"session_id"`
}

type CourseStats struct {
	Total_Courses int      `json:"total_courses"`
	Course_Titles []string `json:"course_titles"`
}

// ToolTraceResponse is the API view of a recorded tool invocation.
type ToolTraceResponse struct {
	Sequence   int            `json:"sequence"`
	Tool       string         `json:"tool"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}
