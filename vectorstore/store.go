package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const DefaultMaxResults = 5

// Metadata describes where a retrieved chunk came from.
type Metadata struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// Result is one (snippet, metadata) pair.
type Result struct {
	Content  string
	Metadata Metadata
	Distance float64
}

// SearchResults holds ranked matches. When Error is set the Results are ignored;
// no error and no results means nothing matched.
type SearchResults struct {
	Results []Result
	Error   string
}

func (r SearchResults) IsEmpty() bool {
	return len(r.Results) == 0
}

// ErrorResults builds a result set that carries only a user-facing error.
func ErrorResults(msg string) SearchResults {
	return SearchResults{Error: msg}
}

// Config holds connection settings.
type Config struct {
	URL             string
	MaxResults      int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns default pool settings
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxResults:      DefaultMaxResults,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store performs semantic search over course content stored in Postgres with pgvector.
type Store struct {
	db         *sql.DB
	embedder   Embedder
	maxResults int
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg Config, embedder Embedder) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("vector store URL is required")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return NewStore(db, embedder, cfg.MaxResults), nil
}

func NewStore(db *sql.DB, embedder Embedder, maxResults int) *Store {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Store{db: db, embedder: embedder, maxResults: maxResults}
}

// Search finds the chunks nearest to query. courseName is resolved to a
// catalog title semantically; courseName and lessonNumber combine as an AND filter.
func (s *Store) Search(ctx context.Context, query string, courseName *string, lessonNumber *int) (SearchResults, error) {
	var courseTitle sql.NullString
	if courseName != nil && *courseName != "" {
		title, found, err := s.resolveCourseName(ctx, *courseName)
		if err != nil {
			return SearchResults{}, err
		}
		if !found {
			return ErrorResults(fmt.Sprintf("No course found matching '%s'", *courseName)), nil
		}
		courseTitle = sql.NullString{String: title, Valid: true}
	}

	var lesson sql.NullInt64
	if lessonNumber != nil {
		lesson = sql.NullInt64{Int64: int64(*lessonNumber), Valid: true}
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return SearchResults{}, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content,
			course_title,
			lesson_number,
			chunk_index,
			embedding <=> $1 AS distance
		FROM course_content
		WHERE ($2::text IS NULL OR course_title = $2)
		  AND ($3::int IS NULL OR lesson_number = $3)
		ORDER BY embedding <=> $1
		LIMIT $4
	`, pgvector.NewVector(embedding), courseTitle, lesson, s.maxResults)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search course content: %w", err)
	}
	defer rows.Close()

	var results SearchResults
	for rows.Next() {
		var r Result
		var lessonCol sql.NullInt64
		if err := rows.Scan(&r.Content, &r.Metadata.CourseTitle, &lessonCol, &r.Metadata.ChunkIndex, &r.Distance); err != nil {
			return SearchResults{}, fmt.Errorf("scan course content: %w", err)
		}
		if lessonCol.Valid {
			n := int(lessonCol.Int64)
			r.Metadata.LessonNumber = &n
		}
		results.Results = append(results.Results, r)
	}
	if err := rows.Err(); err != nil {
		return SearchResults{}, fmt.Errorf("iterate course content: %w", err)
	}
	return results, nil
}

// resolveCourseName returns the catalog title closest to name. Any non-empty
// catalog yields a match.
func (s *Store) resolveCourseName(ctx context.Context, name string) (string, bool, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("embed course name: %w", err)
	}
	var title string
	err = s.db.QueryRowContext(ctx, `
		SELECT title
		FROM course_catalog
		ORDER BY embedding <=> $1
		LIMIT 1
	`, pgvector.NewVector(embedding)).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve course name: %w", err)
	}
	return title, true, nil
}

// CourseLink returns the course URL, or "" when the course has none.
func (s *Store) CourseLink(ctx context.Context, courseTitle string) (string, error) {
	var link sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT course_link FROM course_catalog WHERE title = $1
	`, courseTitle).Scan(&link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("course link: %w", err)
	}
	return link.String, nil
}

// LessonLink returns the lesson URL, or "" when the lesson has none.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var link sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT lesson_link FROM course_lessons WHERE course_title = $1 AND lesson_number = $2
	`, courseTitle, lessonNumber).Scan(&link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lesson link: %w", err)
	}
	return link.String, nil
}

// CourseTitles lists every course in the catalog, alphabetically.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_catalog`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
