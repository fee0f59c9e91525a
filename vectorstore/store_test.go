package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

type fakeEmbedder struct {
	calls []string
	err   error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func contentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"content", "course_title", "lesson_number", "chunk_index", "distance"})
}

func TestStoreSearchUnfiltered(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, &fakeEmbedder{}, 3)
	rows := contentRows().
		AddRow("MCP lets models call tools", "Intro to MCP", 1, 0, 0.12).
		AddRow("Course overview", "Intro to MCP", nil, 3, 0.3)
	mock.ExpectQuery("SELECT content").WithArgs(sqlmock.AnyArg(), nil, nil, 3).WillReturnRows(rows)

	results, err := store.Search(context.Background(), "what is MCP", nil, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results.Error != "" || len(results.Results) != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got := results.Results[0].Metadata.LessonNumber; got == nil || *got != 1 {
		t.Fatalf("expected lesson 1, got %v", got)
	}
	if results.Results[1].Metadata.LessonNumber != nil {
		t.Fatal("expected nil lesson number for course-level chunk")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreSearchResolvesCourseAndLesson(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	embedder := &fakeEmbedder{}
	store := NewStore(db, embedder, 5)
	mock.ExpectQuery("SELECT title\\s+FROM course_catalog").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Intro to MCP"))
	mock.ExpectQuery("SELECT content").
		WithArgs(sqlmock.AnyArg(), "Intro to MCP", 2, 5).
		WillReturnRows(contentRows().AddRow("lesson two", "Intro to MCP", 2, 4, 0.05))

	course := "MCP"
	lesson := 2
	results, err := store.Search(context.Background(), "servers", &course, &lesson)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results.Results) != 1 || results.Results[0].Content != "lesson two" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(embedder.calls) != 2 || embedder.calls[0] != "MCP" || embedder.calls[1] != "servers" {
		t.Fatalf("unexpected embed calls: %v", embedder.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreSearchUnknownCourse(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, &fakeEmbedder{}, 5)
	mock.ExpectQuery("SELECT title\\s+FROM course_catalog").
		WillReturnRows(sqlmock.NewRows([]string{"title"}))

	course := "xyz"
	results, err := store.Search(context.Background(), "anything", &course, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results.Error != "No course found matching 'xyz'" {
		t.Fatalf("unexpected error message %q", results.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreSearchEmbedFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("quota exceeded")
	store := NewStore(db, &fakeEmbedder{err: boom}, 5)
	if _, err := store.Search(context.Background(), "q", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped embed error, got %v", err)
	}
}

func TestStoreLinks(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, &fakeEmbedder{}, 5)
	mock.ExpectQuery("SELECT lesson_link").
		WithArgs("Intro to MCP", 1).
		WillReturnRows(sqlmock.NewRows([]string{"lesson_link"}).AddRow("https://example.com/l1"))
	mock.ExpectQuery("SELECT course_link").
		WithArgs("Missing").
		WillReturnRows(sqlmock.NewRows([]string{"course_link"}))

	link, err := store.LessonLink(context.Background(), "Intro to MCP", 1)
	if err != nil || link != "https://example.com/l1" {
		t.Fatalf("lesson link = %q, %v", link, err)
	}
	link, err = store.CourseLink(context.Background(), "Missing")
	if err != nil || link != "" {
		t.Fatalf("course link = %q, %v", link, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreCourseAnalytics(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db, &fakeEmbedder{}, 5)
	mock.ExpectQuery("SELECT title FROM course_catalog ORDER BY title").
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("A").AddRow("B"))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	titles, err := store.CourseTitles(context.Background())
	if err != nil || len(titles) != 2 {
		t.Fatalf("titles = %v, %v", titles, err)
	}
	count, err := store.CourseCount(context.Background())
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRejectsBadDimensions(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	if err := NewStore(db, &fakeEmbedder{}, 5).EnsureSchema(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}
