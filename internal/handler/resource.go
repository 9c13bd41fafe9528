package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/resource"
	"AthleteAPI/internal/validation"

	"github.com/go-chi/chi/v5"
)

// ResourceHandler exposes the generic CRUD operations of one model.
type ResourceHandler struct {
	res *resource.Resource
}

func NewResourceHandler(res *resource.Resource) *ResourceHandler {
	return &ResourceHandler{res: res}
}

// Routes mounts list, all, create, order, show, update and delete.
func (h *ResourceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/all", h.SimpleList)
	r.Post("/", h.Create)
	r.Put("/order", h.UpdateOrder)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Destroy)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page, err := h.res.List(r.Context(), p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (h *ResourceHandler) SimpleList(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rows, err := h.res.SimpleList(r.Context(), p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rows)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := readBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := h.res.Create(r.Context(), body)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

func (h *ResourceHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := resource.ParseID(chi.URLParam(r, "id"))
	rec, err := h.res.Show(r.Context(), id, relationsParam(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := readBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	id := resource.ParseID(chi.URLParam(r, "id"))
	rec, err := h.res.Update(r.Context(), id, body)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (h *ResourceHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	msg, err := h.res.Destroy(r.Context(), resource.ParseID(chi.URLParam(r, "id")))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msg)
}

// UpdateOrder takes a JSON array of {id, order}.
func (h *ResourceHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var batch validation.OrderBatch
	if err := readBody(r, &batch.Items); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&batch); err != nil {
		WriteError(w, r, err)
		return
	}
	msg, err := h.res.UpdateOrder(r.Context(), batch.Items)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msg)
}

// listParams reads the list query string; page and limit must be integers.
func listParams(r *http.Request) (resource.ListParams, error) {
	q := r.URL.Query()
	p := resource.ListParams{
		Search:      q.Get("search"),
		SearchField: q.Get("search_field"),
		Filters:     q.Get("filters"),
		Sort:        q.Get("sort"),
		Relations:   relationsParam(r),
	}
	var err error
	if p.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return p, err
	}
	return p, nil
}

// relationsParam joins repeated relations params with ",".
func relationsParam(r *http.Request) string {
	q := r.URL.Query()
	values := append(append([]string{}, q["relations"]...), q["relations[]"]...)
	return strings.Join(values, ",")
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		msg := fmt.Sprintf("%s must be an integer", name)
		return 0, apperr.Validation(msg, map[string]any{
			"fields": []validation.FieldError{{Field: name, Tag: "number", Message: msg}},
		})
	}
	return n, nil
}
