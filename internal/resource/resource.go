// Package resource implements the generic CRUD operations over one model.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/query"
	"AthleteAPI/internal/store"
	"AthleteAPI/internal/validation"

	"github.com/Masterminds/squirrel"
)

// Store is what the operations need from the executor.
type Store interface {
	Paginate(ctx context.Context, m *model.Model, q *query.Query, page, limit int) (*store.Page, error)
	All(ctx context.Context, m *model.Model, q *query.Query) ([]store.Record, error)
	First(ctx context.Context, m *model.Model, q *query.Query) (store.Record, error)
	FindOrFail(ctx context.Context, m *model.Model, id any) (store.Record, error)
	Create(ctx context.Context, m *model.Model, data map[string]any) (store.Record, error)
	Save(ctx context.Context, m *model.Model, id any, data map[string]any) (store.Record, error)
	Delete(ctx context.Context, m *model.Model, id any) error
}

type (
	ListParams = validation.ListParams
	OrderItem  = validation.OrderItem
)

// Validators are optional; a nil validator passes the raw body through.
type Validators struct {
	Create validation.Validator
	Update validation.Validator
}

type Message struct {
	Message string `json:"message"`
}

const (
	MsgDeleted      = "Record deleted successfully"
	MsgOrderUpdated = "Order updated successfully"
	MsgNoOrder      = "Model does not have an order column"
)

type Resource struct {
	Model      *model.Model
	Store      Store
	Validators Validators
}

func New(m *model.Model, st Store, v Validators) *Resource {
	return &Resource{Model: m, Store: st, Validators: v}
}

// Compose builds the query for list endpoints: relations, search, filter, sort.
func (r *Resource) Compose(p ListParams) (*query.Query, error) {
	q := query.New(r.Model.Table, r.Model.Readable())
	query.ApplyRelations(q, p.Relations)

	field := p.SearchField
	if field == "" {
		field = r.Model.SearchField
	}
	if err := query.ApplySearch(q, p.Search, field); err != nil {
		return nil, apperr.BadRequest(err)
	}
	if err := query.ApplyFilter(q, p.Filters); err != nil {
		return nil, apperr.BadRequest(err)
	}
	if _, err := query.ApplySort(q, p.Sort); err != nil {
		return nil, apperr.BadRequest(err)
	}
	return q, nil
}

func (r *Resource) listQuery(p ListParams) (ListParams, *query.Query, error) {
	p = p.WithDefaults()
	if err := validation.ValidateStruct(&p); err != nil {
		return p, nil, err
	}
	q, err := r.Compose(p)
	return p, q, err
}

// List returns one page with pagination meta.
func (r *Resource) List(ctx context.Context, p ListParams) (*store.Page, error) {
	p, q, err := r.listQuery(p)
	if err != nil {
		return nil, err
	}
	return r.Store.Paginate(ctx, r.Model, q, p.Page, p.Limit)
}

// SimpleList returns every matching row; page and limit are ignored.
func (r *Resource) SimpleList(ctx context.Context, p ListParams) ([]store.Record, error) {
	_, q, err := r.listQuery(p)
	if err != nil {
		return nil, err
	}
	return r.Store.All(ctx, r.Model, q)
}

func (r *Resource) Create(ctx context.Context, body map[string]any) (store.Record, error) {
	data, err := r.validate(r.Validators.Create, body)
	if err != nil {
		return nil, err
	}
	return r.Store.Create(ctx, r.Model, data)
}

// Show loads one row by id with the requested relations.
func (r *Resource) Show(ctx context.Context, id any, relations string) (store.Record, error) {
	q := query.New(r.Model.Table, r.Model.Readable())
	query.ApplyRelations(q, relations)
	q.Where(squirrel.Eq{query.Ident("id"): id})

	rec, err := r.Store.First(ctx, r.Model, q)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound(r.Model.Name, id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *Resource) Update(ctx context.Context, id any, body map[string]any) (store.Record, error) {
	if _, err := r.Store.FindOrFail(ctx, r.Model, id); err != nil {
		return nil, err
	}
	data, err := r.validate(r.Validators.Update, body)
	if err != nil {
		return nil, err
	}
	return r.Store.Save(ctx, r.Model, id, data)
}

func (r *Resource) Destroy(ctx context.Context, id any) (Message, error) {
	if _, err := r.Store.FindOrFail(ctx, r.Model, id); err != nil {
		return Message{}, err
	}
	if err := r.Store.Delete(ctx, r.Model, id); err != nil {
		return Message{}, err
	}
	return Message{Message: MsgDeleted}, nil
}

// UpdateOrder applies the batch one item at a time. The first missing id
// stops the batch; items before it stay saved.
func (r *Resource) UpdateOrder(ctx context.Context, items []OrderItem) (Message, error) {
	if !r.Model.HasOrder() {
		return Message{Message: MsgNoOrder}, nil
	}
	for i, item := range items {
		if item.Order == nil {
			return Message{}, apperr.Validation(fmt.Sprintf("order is required for id %d", item.ID), nil)
		}
		if _, err := r.Store.FindOrFail(ctx, r.Model, item.ID); err != nil {
			logger.Warn("reorder_aborted", map[string]any{
				"model":   r.Model.Name,
				"id":      item.ID,
				"applied": i,
				"error":   err.Error(),
			})
			return Message{}, err
		}
		if _, err := r.Store.Save(ctx, r.Model, item.ID, map[string]any{"order": *item.Order}); err != nil {
			return Message{}, err
		}
	}
	return Message{Message: MsgOrderUpdated}, nil
}

// FindBy returns every row whose column equals value.
func (r *Resource) FindBy(ctx context.Context, column string, value any) ([]store.Record, error) {
	if !r.Model.HasColumn(column) || r.Model.IsHidden(column) {
		return nil, apperr.BadRequest(fmt.Errorf("%w: %s.%s", query.ErrUnknownColumn, r.Model.Name, column))
	}
	q := query.New(r.Model.Table, r.Model.Readable()).
		Where(squirrel.Eq{query.Ident(column): value})
	return r.Store.All(ctx, r.Model, q)
}

func (r *Resource) validate(v validation.Validator, body map[string]any) (map[string]any, error) {
	if v == nil {
		return body, nil
	}
	return v.Validate(body)
}

// ParseID keeps numeric ids numeric so they bind to integer columns.
func ParseID(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
