package vectorstore

import (
	"context"
	"fmt"
)

// EnsureSchema creates the pgvector extension and course tables if missing.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_catalog (
			title TEXT PRIMARY KEY,
			instructor TEXT,
			course_link TEXT,
			embedding vector(%d) NOT NULL
		)`, dimensions),
		`CREATE TABLE IF NOT EXISTS course_lessons (
			course_title TEXT NOT NULL REFERENCES course_catalog(title) ON DELETE CASCADE,
			lesson_number INT NOT NULL,
			title TEXT,
			lesson_link TEXT,
			PRIMARY KEY (course_title, lesson_number)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_content (
			id BIGSERIAL PRIMARY KEY,
			course_title TEXT NOT NULL REFERENCES course_catalog(title) ON DELETE CASCADE,
			lesson_number INT,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS course_content_embedding_idx ON course_content USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS course_content_course_idx ON course_content (course_title, lesson_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
