// Package query records the composition of a list/read request: conditions,
// ordering, column restrictions and the relation preload tree. Execution
// lives in the store package.
package query

import (
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrMalformedFilter = errors.New("malformed filter")
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type Order struct {
	Column string
	Dir    Direction
}

// Include is one relation preload with its pivot builder.
type Include struct {
	Name  string
	Query *Query
}

// Query is a builder handle. Root queries carry the table and the allow-list
// of columns; pivot builders created by Preload carry neither.
type Query struct {
	table    string
	allowed  map[string]struct{}
	where    []squirrel.Sqlizer
	orders   []Order
	columns  []string
	includes []*Include
}

// New creates a root query; "id" is always allowed.
func New(table string, columns []string) *Query {
	allowed := make(map[string]struct{}, len(columns)+1)
	allowed["id"] = struct{}{}
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &Query{table: table, allowed: allowed}
}

func newPivot() *Query {
	return &Query{}
}

func (q *Query) Table() string { return q.table }

// Allows reports whether column may be referenced. Pivot builders allow
// everything; their columns are checked against the related model on execution.
func (q *Query) Allows(column string) bool {
	if q.allowed == nil {
		return true
	}
	_, ok := q.allowed[column]
	return ok
}

func (q *Query) Where(cond squirrel.Sqlizer) *Query {
	q.where = append(q.where, cond)
	return q
}

func (q *Query) OrderBy(column string, dir Direction) *Query {
	q.orders = append(q.orders, Order{Column: column, Dir: dir})
	return q
}

// Select restricts the selected columns. Repeated calls extend the list.
func (q *Query) Select(columns ...string) *Query {
	for _, c := range columns {
		if c == "" || contains(q.columns, c) {
			continue
		}
		q.columns = append(q.columns, c)
	}
	return q
}

// Preload registers a relation to load after the root rows. A second call
// with the same name reuses the existing pivot builder.
func (q *Query) Preload(name string, fn func(*Query)) *Query {
	var inc *Include
	for _, existing := range q.includes {
		if existing.Name == name {
			inc = existing
			break
		}
	}
	if inc == nil {
		inc = &Include{Name: name, Query: newPivot()}
		q.includes = append(q.includes, inc)
	}
	if fn != nil {
		fn(inc.Query)
	}
	return q
}

func (q *Query) Conditions() []squirrel.Sqlizer { return q.where }
func (q *Query) Orders() []Order                { return q.orders }
func (q *Query) Columns() []string              { return q.columns }

func (q *Query) Includes() []*Include { return q.includes }

// PreloadNode is a structural snapshot of one preload call.
type PreloadNode struct {
	Name     string
	Columns  []string
	Children []PreloadNode
}

// Tree returns the preload call tree in registration order.
func (q *Query) Tree() []PreloadNode {
	if len(q.includes) == 0 {
		return nil
	}
	nodes := make([]PreloadNode, 0, len(q.includes))
	for _, inc := range q.includes {
		node := PreloadNode{Name: inc.Name, Children: inc.Query.Tree()}
		if len(inc.Query.columns) > 0 {
			node.Columns = append([]string(nil), inc.Query.columns...)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// Builder compiles the recorded conditions and ordering into a SELECT.
// Without a Select restriction defaultColumns are used, then "*".
func (q *Query) Builder(defaultColumns ...string) squirrel.SelectBuilder {
	cols := q.columns
	if len(cols) == 0 {
		cols = defaultColumns
	}
	selected := make([]string, 0, len(cols))
	for _, c := range cols {
		selected = append(selected, Ident(c))
	}
	if len(selected) == 0 {
		selected = []string{"*"}
	}

	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(selected...).
		From(Ident(q.table))
	for _, cond := range q.where {
		sb = sb.Where(cond)
	}
	for _, o := range q.orders {
		sb = sb.OrderBy(Ident(o.Column) + " " + string(o.Dir))
	}
	return sb
}

// CountBuilder counts rows matching the recorded conditions.
func (q *Query) CountBuilder() squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns("COUNT(*)").
		From(Ident(q.table))
	for _, cond := range q.where {
		sb = sb.Where(cond)
	}
	return sb
}

func (q *Query) ToSql() (string, []any, error) {
	return q.Builder().ToSql()
}

// Ident quotes an SQL identifier; dotted names are quoted per part.
func Ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
