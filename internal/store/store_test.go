package store

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/query"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i].Name = c
	}
	return fds
}
func (r *fakeRows) Next() bool {
	if r.i < len(r.data) {
		r.i++
		return true
	}
	return false
}
func (r *fakeRows) Scan(dest ...any) error { return errors.New("fakeRows: use Values") }
func (r *fakeRows) Values() ([]any, error) { return r.data[r.i-1], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeRow struct {
	count int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.count
	return nil
}

// fakeDB answers by table name and records every statement.
type fakeDB struct {
	tables  map[string]*fakeRows
	count   int64
	execTag string
	err     error
	sql     []string
	args    [][]any
}

func (db *fakeDB) record(sql string, args []any) {
	db.sql = append(db.sql, sql)
	db.args = append(db.args, args)
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	if db.err != nil {
		return nil, db.err
	}
	for table, rows := range db.tables {
		if strings.Contains(sql, `"`+table+`"`) {
			return &fakeRows{cols: rows.cols, data: rows.data}, nil
		}
	}
	return &fakeRows{}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	return fakeRow{count: db.count, err: db.err}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}
	return pgconn.NewCommandTag(db.execTag), nil
}

func fixture(t *testing.T) (*model.Model, *model.Model) {
	t.Helper()
	reg, err := model.NewRegistry(map[string]*model.Model{
		"Athlete": {
			Table:   "athletes",
			Columns: []string{"name", "team_id", "order", "secret"},
			Hidden:  []string{"secret"},
			Relations: map[string]*model.ModelRelation{
				"team":     {Type: model.BelongsTo, Model: "Team"},
				"sessions": {Type: model.HasMany, Model: "Session", Order: "started_at DESC"},
			},
		},
		"Team": {
			Table:   "teams",
			Columns: []string{"name", "city"},
			Relations: map[string]*model.ModelRelation{
				"players": {Type: model.HasMany, Model: "Athlete", FK: "team_id"},
			},
		},
		"Session": {
			Table:   "sessions",
			Columns: []string{"athlete_id", "started_at"},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	athlete, _ := reg.Get("Athlete")
	team, _ := reg.Get("Team")
	return athlete, team
}

func TestPaginateUsesLimitOffsetAndMeta(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{
		count: 12,
		tables: map[string]*fakeRows{
			"athletes": {cols: []string{"id", "name"}, data: [][]any{{int64(6), "f"}, {int64(7), "g"}}},
		},
	}
	st := New(db)

	q := query.New(athlete.Table, athlete.Readable())
	page, err := st.Paginate(context.Background(), athlete, q, 2, 5)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(db.sql) != 2 {
		t.Fatalf("expected count + select, got %v", db.sql)
	}
	if db.sql[0] != `SELECT COUNT(*) FROM "athletes"` {
		t.Fatalf("unexpected count SQL: %s", db.sql[0])
	}
	if !strings.HasSuffix(db.sql[1], "LIMIT 5 OFFSET 5") {
		t.Fatalf("expected LIMIT 5 OFFSET 5, got %s", db.sql[1])
	}
	if strings.Contains(db.sql[1], "secret") {
		t.Fatalf("hidden column selected: %s", db.sql[1])
	}
	if len(page.Data) != 2 {
		t.Fatalf("unexpected rows: %v", page.Data)
	}

	next, prev := "/?page=3", "/?page=1"
	want := Meta{
		Total: 12, PerPage: 5, CurrentPage: 2, LastPage: 3, FirstPage: 1,
		FirstPageURL: "/?page=1", LastPageURL: "/?page=3",
		NextPageURL: &next, PreviousPageURL: &prev,
	}
	if diff := cmp.Diff(want, page.Meta); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
}

func TestPaginateRejectsOffsetOverflow(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{count: 1}
	st := New(db)

	q := query.New(athlete.Table, athlete.Readable())
	_, err := st.Paginate(context.Background(), athlete, q, math.MaxInt64/50, 100)
	if !errors.Is(err, apperr.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if len(db.sql) != 0 {
		t.Fatalf("no statement may run for an out of range page: %v", db.sql)
	}
}

func TestNewMetaEmptyTable(t *testing.T) {
	meta := NewMeta(0, 1, 10)
	if meta.LastPage != 1 || meta.NextPageURL != nil || meta.PreviousPageURL != nil {
		t.Fatalf("unexpected meta for empty result: %+v", meta)
	}
}

func TestPreloadAttachesRelations(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{
		tables: map[string]*fakeRows{
			"athletes": {cols: []string{"id", "name", "team_id"}, data: [][]any{
				{int64(1), "ann", int64(10)},
				{int64(2), "bob", nil},
			}},
			"teams": {cols: []string{"name", "id"}, data: [][]any{{"Lions", int64(10)}}},
			"sessions": {cols: []string{"id", "athlete_id", "started_at"}, data: [][]any{
				{int64(100), int64(1), "2024-01-02"},
				{int64(101), int64(1), "2024-01-01"},
			}},
		},
	}
	st := New(db)

	q := query.ApplyRelations(query.New(athlete.Table, athlete.Readable()), "team:name,sessions")
	rows, err := st.All(context.Background(), athlete, q)
	if err != nil {
		t.Fatalf("All: %v", err)
	}

	if db.sql[1] != `SELECT "name", "id" FROM "teams" WHERE "id" IN ($1)` {
		t.Fatalf("unexpected team SQL: %s", db.sql[1])
	}
	if !strings.Contains(db.sql[2], `WHERE "athlete_id" IN ($1,$2) ORDER BY "started_at" DESC`) {
		t.Fatalf("unexpected sessions SQL: %s", db.sql[2])
	}

	if team, ok := rows[0]["team"].(Record); !ok || team["name"] != "Lions" {
		t.Fatalf("team not attached: %v", rows[0])
	}
	if rows[1]["team"] != nil {
		t.Fatalf("missing belongs_to must be nil, got %v", rows[1]["team"])
	}
	if got := rows[0]["sessions"].([]Record); len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %v", got)
	}
	if got := rows[1]["sessions"].([]Record); got == nil || len(got) != 0 {
		t.Fatalf("has_many without children must be an empty list, got %#v", rows[1]["sessions"])
	}
}

func TestPreloadAddsNestedJoinKeys(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{
		tables: map[string]*fakeRows{
			"athletes": {cols: []string{"id", "team_id"}, data: [][]any{{int64(1), int64(10)}}},
			"teams":    {cols: []string{"city", "id"}, data: [][]any{{"Oslo", int64(10)}}},
		},
	}
	q := query.ApplyRelations(query.New(athlete.Table, athlete.Readable()), "team:city@players")
	if _, err := New(db).All(context.Background(), athlete, q); err != nil {
		t.Fatalf("All: %v", err)
	}
	if db.sql[1] != `SELECT "city", "id" FROM "teams" WHERE "id" IN ($1)` {
		t.Fatalf("unexpected team SQL: %s", db.sql[1])
	}
	if !strings.Contains(db.sql[2], `WHERE "team_id" IN ($1)`) {
		t.Fatalf("unexpected players SQL: %s", db.sql[2])
	}
}

func TestPreloadRejectsUnknownRelationAndHiddenColumn(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{tables: map[string]*fakeRows{
		"athletes": {cols: []string{"id", "team_id"}, data: [][]any{{int64(1), int64(10)}}},
	}}
	st := New(db)

	_, err := st.All(context.Background(), athlete, query.ApplyRelations(query.New(athlete.Table, nil), "coach"))
	if !errors.Is(err, ErrUnknownRelation) || apperr.Status(err) != http.StatusBadRequest {
		t.Fatalf("expected unknown relation 400, got %v", err)
	}

	_, err = st.All(context.Background(), athlete, query.ApplyRelations(query.New(athlete.Table, nil), "team@players:secret"))
	if !errors.Is(err, query.ErrUnknownColumn) {
		t.Fatalf("expected unknown column for hidden field, got %v", err)
	}
}

func TestCreateWritesOnlyDeclaredColumns(t *testing.T) {
	athlete, _ := fixture(t)
	db := &fakeDB{tables: map[string]*fakeRows{
		"athletes": {cols: []string{"id", "name"}, data: [][]any{{int64(5), "ann"}}},
	}}

	rec, err := New(db).Create(context.Background(), athlete, map[string]any{
		"id": 99, "name": "ann", "is_admin": true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(db.sql[0], `INSERT INTO "athletes" ("name") VALUES ($1) RETURNING "id", "name", "team_id", "order"`) {
		t.Fatalf("unexpected insert SQL: %s", db.sql[0])
	}
	if rec["id"] != int64(5) {
		t.Fatalf("unexpected record: %v", rec)
	}

	if _, err := New(db).Create(context.Background(), athlete, map[string]any{"bogus": 1}); apperr.Status(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected validation error for empty insert, got %v", err)
	}
}

func TestSaveAndDeleteMissingRow(t *testing.T) {
	athlete, _ := fixture(t)
	st := New(&fakeDB{execTag: "DELETE 0"})

	_, err := st.Save(context.Background(), athlete, 42, map[string]any{"name": "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Save on missing row: expected not found, got %v", err)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Details.(map[string]any)["id"] != 42 {
		t.Fatalf("not-found must carry the id, got %#v", err)
	}

	if err := st.Delete(context.Background(), athlete, 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Delete on missing row: expected not found, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{pgx.ErrNoRows, http.StatusNotFound},
		{&pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{&pgconn.PgError{Code: "23503"}, http.StatusConflict},
		{&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type integer"}, http.StatusBadRequest},
		{&pgconn.PgError{Code: "23502", ColumnName: "name"}, http.StatusUnprocessableEntity},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := apperr.Status(mapError("Athlete", tc.err)); got != tc.want {
			t.Fatalf("mapError(%v) status = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestNormalizeUUID(t *testing.T) {
	raw := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	if got := normalize(raw); got != "123e4567-e89b-12d3-a456-426614174000" {
		t.Fatalf("unexpected uuid: %v", got)
	}
}
