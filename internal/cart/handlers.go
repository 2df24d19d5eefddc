package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Handler exposes cart endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registers cart routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/carts", h.Create)
	r.Get("/carts/{id}", h.Get)
	r.Post("/carts/{id}/items", h.AddProduct)
	r.Post("/carts/{id}/copies", h.AddCopy)
	r.Patch("/carts/{id}/items/{itemID}", h.UpdateItem)
	r.Delete("/carts/{id}/items/{itemID}", h.RemoveItem)
	r.Delete("/carts/{id}", h.Clear)
	r.Get("/carts/{id}/quote", h.Quote)
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// AddProduct handles POST /api/v1/carts/{id}/items.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	var in AddProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	c, err := h.service.AddProduct(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// AddCopy handles POST /api/v1/carts/{id}/copies.
func (h *Handler) AddCopy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	var in AddCopyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	c, err := h.service.AddCopy(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// UpdateItem handles PATCH /api/v1/carts/{id}/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	itemID, ok := h.parseParam(w, r, "itemID", "invalid item id")
	if !ok {
		return
	}
	var in struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body", nil)
		return
	}
	c, err := h.service.UpdateItem(r.Context(), id, itemID, in.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveItem handles DELETE /api/v1/carts/{id}/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	itemID, ok := h.parseParam(w, r, "itemID", "invalid item id")
	if !ok {
		return
	}
	c, err := h.service.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Clear handles DELETE /api/v1/carts/{id}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quote handles GET /api/v1/carts/{id}/quote?discountPct=10.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseParam(w, r, "id", "invalid cart id")
	if !ok {
		return
	}
	pct := 0.0
	if raw := r.URL.Query().Get("discountPct"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			common.JSONError(w, http.StatusBadRequest, "BAD_DISCOUNT", "discountPct must be between 0 and 100", nil)
			return
		}
		pct = parsed
	}
	c, summary, err := h.service.Quote(r.Context(), id, pct)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c, "summary": summary})
}

func (h *Handler) parseParam(w http.ResponseWriter, r *http.Request, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_ID", msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
