package restock

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Handler exposes the restock memo endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registers restock routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/restock", h.List)
	r.Post("/restock", h.Add)
	r.Delete("/restock/done", h.ClearDone)
	r.Put("/restock/{id}", h.Update)
	r.Patch("/restock/{id}/done", h.SetDone)
	r.Delete("/restock/{id}", h.Delete)
}

// List handles GET /api/v1/restock.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Add handles POST /api/v1/restock.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var in EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	it, err := h.service.Add(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": it})
}

// Update handles PUT /api/v1/restock/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	it, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": it})
}

// SetDone handles PATCH /api/v1/restock/{id}/done.
func (h *Handler) SetDone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in struct {
		Done bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	it, err := h.service.SetDone(r.Context(), id, in.Done)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": it})
}

// Delete handles DELETE /api/v1/restock/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearDone handles DELETE /api/v1/restock/done.
func (h *Handler) ClearDone(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.service.ClearDone(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cleared": cleared}})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_ID", "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
