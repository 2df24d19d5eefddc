package receipt

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Handler exposes receipt history endpoints.
type Handler struct {
	store    Store
	location *time.Location
}

// NewHandler constructs a Handler. loc controls how timestamps render on
// exported receipt text.
func NewHandler(store Store, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{store: store, location: loc}
}

// Mount registers receipt routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/receipts", h.List)
	r.Get("/receipts/{id}", h.Get)
	r.Get("/receipts/{id}/text", h.Text)
	r.Get("/receipts/{id}/escpos", h.ESCPOS)
}

// List handles GET /api/v1/receipts with date and kind filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{Page: 1, Limit: 20}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		params.Limit = v
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_DATE", "from must be YYYY-MM-DD", nil)
			return
		}
		params.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_DATE", "to must be YYYY-MM-DD", nil)
			return
		}
		// inclusive end date
		end := t.AddDate(0, 0, 1)
		params.To = &end
	}
	if raw := q.Get("manual"); raw != "" {
		manual := raw == "true" || raw == "1"
		params.Manual = &manual
	}

	items, total, err := h.store.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: params.Page, PerPage: params.Limit, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/receipts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// Text handles GET /api/v1/receipts/{id}/text, returning the printable
// plain-text rendition.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(PlainText(rec, h.location)))
}

// ESCPOS handles GET /api/v1/receipts/{id}/escpos. The raw printer bytes go
// out base64-encoded so browser and mobile clients can feed them straight to
// a locally paired printer.
func (h *Handler) ESCPOS(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	payload := base64.StdEncoding.EncodeToString(Thermal(rec, h.location))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{
		"invoiceNumber": rec.InvoiceNumber,
		"escpos":        payload,
	}})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Receipt, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_ID", "invalid receipt id", nil)
		return Receipt{}, false
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "receipt not found", nil)
			return Receipt{}, false
		}
		common.WriteError(w, err)
		return Receipt{}, false
	}
	return rec, true
}
