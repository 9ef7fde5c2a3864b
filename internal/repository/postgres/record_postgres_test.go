package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataapi/internal/query"
	"dataapi/internal/repository"
	"dataapi/internal/schema"
)

var todoColumns = []string{"id", "content", "is_done", "priority", "owner", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*RecordPostgres, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return NewRecordPostgres(db), mock, func() { db.Close() }
}

func todoModel(t *testing.T) *schema.Model {
	t.Helper()
	m, ok := schema.Default().Model("Todo")
	require.True(t, ok)
	return m
}

func TestRecordPostgres_List(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	m := todoModel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("page without next cursor", func(t *testing.T) {
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t2", "second", false, 2, "alice", now, now).
			AddRow("t1", "first", true, 1, "alice", now.Add(-time.Hour), now)

		mock.ExpectQuery("SELECT (.+) FROM todos ORDER BY created_at DESC, id DESC LIMIT").
			WithArgs(3).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Limit: 2})

		assert.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Nil(t, page.NextCursor)
		assert.Equal(t, "second", page.Items[0]["content"])
		assert.Equal(t, int64(2), page.Items[0]["priority"])
	})

	t.Run("full page yields next cursor", func(t *testing.T) {
		ca := now.Add(-time.Minute)
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t3", "third", false, 3, "alice", now, now).
			AddRow("t2", "second", false, 2, "alice", ca, now).
			AddRow("t1", "first", true, 1, "alice", now.Add(-time.Hour), now)

		mock.ExpectQuery("SELECT (.+) FROM todos ORDER BY created_at DESC, id DESC LIMIT").
			WithArgs(3).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Limit: 2})

		assert.NoError(t, err)
		assert.Len(t, page.Items, 2)
		require.NotNil(t, page.NextCursor)
		assert.Equal(t, "t2", page.NextCursor.ID)
		assert.True(t, ca.Equal(page.NextCursor.CreatedAt))
	})

	t.Run("with filter and cursor", func(t *testing.T) {
		f, err := query.ParseFilter(json.RawMessage(`{"priority":{"gt":3}}`), m)
		require.NoError(t, err)
		cur := &query.Cursor{CreatedAt: now, ID: "t9"}

		rows := sqlmock.NewRows(todoColumns)
		mock.ExpectQuery(`SELECT (.+) FROM todos WHERE priority > \$1 AND \(created_at, id\) < \(\$2, \$3\)`).
			WithArgs(int64(3), cur.CreatedAt, cur.ID, 11).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Filter: f, Limit: 10, Cursor: cur})

		assert.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("bad row is reported, not fatal", func(t *testing.T) {
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t2", "second", "not-a-bool", 2, "alice", now, now).
			AddRow("t1", "first", true, 1, "alice", now, now)

		mock.ExpectQuery("SELECT (.+) FROM todos").
			WithArgs(3).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Limit: 2})

		assert.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Len(t, page.ScanErrors, 1)
		assert.Equal(t, "t1", page.Items[0].ID())
	})

	t.Run("bad row inside a full window keeps the cursor", func(t *testing.T) {
		ca := now.Add(-time.Minute)
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t3", "third", "not-a-bool", 3, "alice", now, now).
			AddRow("t2", "second", false, 2, "alice", ca, now)

		mock.ExpectQuery("SELECT (.+) FROM todos").
			WithArgs(2).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Limit: 1})

		assert.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, "t2", page.Items[0].ID())
		assert.Len(t, page.ScanErrors, 1)
		require.NotNil(t, page.NextCursor)
		assert.Equal(t, "t2", page.NextCursor.ID)
		assert.True(t, ca.Equal(page.NextCursor.CreatedAt))
	})

	t.Run("unscannable overflow row still signals a next page", func(t *testing.T) {
		ca := now.Add(-time.Minute)
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t2", "second", false, 2, "alice", ca, now).
			AddRow("t1", "first", "not-a-bool", 1, "alice", now.Add(-time.Hour), now)

		mock.ExpectQuery("SELECT (.+) FROM todos").
			WithArgs(2).
			WillReturnRows(rows)

		page, err := repo.List(ctx, m, repository.ListQuery{Limit: 1})

		assert.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Empty(t, page.ScanErrors)
		require.NotNil(t, page.NextCursor)
		assert.Equal(t, "t2", page.NextCursor.ID)
		assert.True(t, ca.Equal(page.NextCursor.CreatedAt))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPostgres_FindByID(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	m := todoModel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t1", "first", true, 1, "alice", now, now)

		mock.ExpectQuery(`SELECT (.+) FROM todos WHERE id = \$1`).
			WithArgs("t1").
			WillReturnRows(rows)

		rec, err := repo.FindByID(ctx, m, "t1")

		assert.NoError(t, err)
		assert.Equal(t, "t1", rec.ID())
		assert.Equal(t, "first", rec["content"])
		assert.Equal(t, true, rec["is_done"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM todos WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(todoColumns))

		rec, err := repo.FindByID(ctx, m, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, rec)
	})

	t.Run("null columns become nil", func(t *testing.T) {
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t1", nil, nil, nil, nil, now, now)

		mock.ExpectQuery(`SELECT (.+) FROM todos WHERE id = \$1`).
			WithArgs("t1").
			WillReturnRows(rows)

		rec, err := repo.FindByID(ctx, m, "t1")

		assert.NoError(t, err)
		assert.Nil(t, rec["content"])
		assert.Nil(t, rec["priority"])
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPostgres_FindRelated(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	reg := schema.Default()
	post, _ := reg.Model("Post")
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "blog_id", "title", "body", "created_at", "updated_at"}).
		AddRow("p2", "b1", "second", "...", now, now).
		AddRow("p1", "b1", "first", "...", now.Add(-time.Hour), now)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE blog_id = \$1 ORDER BY created_at DESC, id DESC`).
		WithArgs("b1").
		WillReturnRows(rows)

	recs, err := repo.FindRelated(ctx, post, "blog_id", "b1")

	assert.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0]["title"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPostgres_Create(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	m := todoModel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := map[string]any{
		"id":         "t1",
		"content":    "write tests",
		"is_done":    false,
		"priority":   int64(2),
		"owner":      "alice",
		"created_at": now,
		"updated_at": now,
	}

	rows := sqlmock.NewRows(todoColumns).
		AddRow("t1", "write tests", false, 2, "alice", now, now)

	mock.ExpectQuery("INSERT INTO todos").
		WithArgs("t1", "write tests", false, int64(2), "alice", now, now).
		WillReturnRows(rows)

	out, err := repo.Create(ctx, m, rec)

	assert.NoError(t, err)
	assert.Equal(t, "t1", out.ID())
	assert.Equal(t, "write tests", out["content"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPostgres_Update(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	m := todoModel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("sets follow schema column order", func(t *testing.T) {
		rows := sqlmock.NewRows(todoColumns).
			AddRow("t1", "updated", true, 1, "alice", now, now)

		mock.ExpectQuery(`UPDATE todos SET content = \$1, is_done = \$2, updated_at = \$3 WHERE id = \$4 RETURNING`).
			WithArgs("updated", true, now, "t1").
			WillReturnRows(rows)

		out, err := repo.Update(ctx, m, "t1", map[string]any{
			"is_done":    true,
			"content":    "updated",
			"updated_at": now,
		})

		assert.NoError(t, err)
		assert.Equal(t, "updated", out["content"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE todos SET content = \$1 WHERE id = \$2 RETURNING`).
			WithArgs("x", "missing").
			WillReturnRows(sqlmock.NewRows(todoColumns))

		_, err := repo.Update(ctx, m, "missing", map[string]any{"content": "x"})
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPostgres_Delete(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	m := todoModel(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM todos").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(ctx, m, "t1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
