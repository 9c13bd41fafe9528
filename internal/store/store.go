// Package store executes composed queries against PostgreSQL.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/query"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Record = map[string]any

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Meta mirrors the pagination block clients already consume.
type Meta struct {
	Total           int64   `json:"total"`
	PerPage         int     `json:"perPage"`
	CurrentPage     int     `json:"currentPage"`
	LastPage        int     `json:"lastPage"`
	FirstPage       int     `json:"firstPage"`
	FirstPageURL    string  `json:"firstPageUrl"`
	LastPageURL     string  `json:"lastPageUrl"`
	NextPageURL     *string `json:"nextPageUrl"`
	PreviousPageURL *string `json:"previousPageUrl"`
}

type Page struct {
	Data []Record `json:"data"`
	Meta Meta     `json:"meta"`
}

func NewMeta(total int64, page, limit int) Meta {
	last := int(math.Ceil(float64(total) / float64(limit)))
	if last < 1 {
		last = 1
	}
	meta := Meta{
		Total:        total,
		PerPage:      limit,
		CurrentPage:  page,
		LastPage:     last,
		FirstPage:    1,
		FirstPageURL: pageURL(1),
		LastPageURL:  pageURL(last),
	}
	if page < last {
		u := pageURL(page + 1)
		meta.NextPageURL = &u
	}
	if page > 1 {
		u := pageURL(page - 1)
		meta.PreviousPageURL = &u
	}
	return meta
}

const maxOffset = math.MaxInt32

func pageURL(page int) string {
	return fmt.Sprintf("/?page=%d", page)
}

// Paginate counts the matching rows, then fetches one page of them.
func (s *Store) Paginate(ctx context.Context, m *model.Model, q *query.Query, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	// (page-1)*limit must fit OFFSET without wrapping
	if page-1 > maxOffset/limit {
		return nil, apperr.BadRequest(fmt.Errorf("page %d out of range for limit %d", page, limit))
	}

	countSQL, countArgs, err := q.CountBuilder().ToSql()
	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}
	logSQL(m, countSQL, countArgs)
	var total int64
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, mapError(m.Name, err)
	}

	sb := q.Builder(m.SelectColumns()...).
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))
	rows, err := s.fetch(ctx, m, sb)
	if err != nil {
		return nil, err
	}
	if err := s.preload(ctx, m, rows, q.Includes()); err != nil {
		return nil, err
	}
	return &Page{Data: rows, Meta: NewMeta(total, page, limit)}, nil
}

// All runs q without pagination.
func (s *Store) All(ctx context.Context, m *model.Model, q *query.Query) ([]Record, error) {
	rows, err := s.fetch(ctx, m, q.Builder(m.SelectColumns()...))
	if err != nil {
		return nil, err
	}
	if err := s.preload(ctx, m, rows, q.Includes()); err != nil {
		return nil, err
	}
	return rows, nil
}

// First returns the first row of q or a not-found error.
func (s *Store) First(ctx context.Context, m *model.Model, q *query.Query) (Record, error) {
	rows, err := s.fetch(ctx, m, q.Builder(m.SelectColumns()...).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(m.Name, nil)
	}
	if err := s.preload(ctx, m, rows, q.Includes()); err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) FindOrFail(ctx context.Context, m *model.Model, id any) (Record, error) {
	q := query.New(m.Table, m.Readable()).Where(squirrel.Eq{query.Ident("id"): id})
	rec, err := s.First(ctx, m, q)
	if err != nil {
		return nil, withID(err, m.Name, id)
	}
	return rec, nil
}

// Create inserts the writable fields of data and returns the stored row.
func (s *Store) Create(ctx context.Context, m *model.Model, data map[string]any) (Record, error) {
	values := writableValues(m, data)
	if len(values) == 0 {
		return nil, apperr.Validation("No writable fields in payload", nil)
	}
	sb := squirrel.Insert(query.Ident(m.Table)).
		PlaceholderFormat(squirrel.Dollar).
		SetMap(values).
		Suffix("RETURNING " + returning(m))
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("insert query: %w", err)
	}
	return s.queryOne(ctx, m, sqlStr, args)
}

// Save merges data into the row with id. An empty merge only re-reads the row.
func (s *Store) Save(ctx context.Context, m *model.Model, id any, data map[string]any) (Record, error) {
	values := writableValues(m, data)
	if len(values) == 0 {
		return s.FindOrFail(ctx, m, id)
	}
	sb := squirrel.Update(query.Ident(m.Table)).
		PlaceholderFormat(squirrel.Dollar).
		SetMap(values).
		Where(squirrel.Eq{query.Ident("id"): id}).
		Suffix("RETURNING " + returning(m))
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("update query: %w", err)
	}
	rec, err := s.queryOne(ctx, m, sqlStr, args)
	if err != nil {
		return nil, withID(err, m.Name, id)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, m *model.Model, id any) error {
	sqlStr, args, err := squirrel.Delete(query.Ident(m.Table)).
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{query.Ident("id"): id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("delete query: %w", err)
	}
	logSQL(m, sqlStr, args)
	tag, err := s.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapError(m.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(m.Name, id)
	}
	return nil
}

func (s *Store) queryOne(ctx context.Context, m *model.Model, sqlStr string, args []any) (Record, error) {
	logSQL(m, sqlStr, args)
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(m.Name, err)
	}
	recs, err := scanRows(rows)
	if err != nil {
		return nil, mapError(m.Name, err)
	}
	if len(recs) == 0 {
		return nil, apperr.NotFound(m.Name, nil)
	}
	return recs[0], nil
}

func (s *Store) fetch(ctx context.Context, m *model.Model, sb squirrel.SelectBuilder) ([]Record, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("select query: %w", err)
	}
	logSQL(m, sqlStr, args)
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapError(m.Name, err)
	}
	recs, err := scanRows(rows)
	if err != nil {
		return nil, mapError(m.Name, err)
	}
	return recs, nil
}

func writableValues(m *model.Model, data map[string]any) map[string]any {
	values := make(map[string]any, len(data))
	var dropped []string
	for k, v := range data {
		if !m.Writable(k) {
			dropped = append(dropped, k)
			continue
		}
		values[query.Ident(k)] = v
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		logger.Debug("store_dropped_fields", map[string]any{
			"model":  m.Name,
			"fields": dropped,
		})
	}
	return values
}

func returning(m *model.Model) string {
	cols := m.SelectColumns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = query.Ident(c)
	}
	return strings.Join(quoted, ", ")
}

func logSQL(m *model.Model, sqlStr string, args []any) {
	logger.Debug("sql", map[string]any{
		"model": m.Name,
		"sql":   sqlStr,
		"args":  args,
	})
}
