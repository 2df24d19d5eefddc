package report

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Handler exposes sales report endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registers report routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/reports/daily", h.Daily)
	r.Get("/reports/range", h.Range)
	r.Get("/reports/top-products", h.TopProducts)
}

// Daily handles GET /api/v1/reports/daily?date=YYYY-MM-DD (default today).
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	date := h.service.now().In(h.service.loc())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.service.loc())
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_DATE", "date must be YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}
	summary, err := h.service.Daily(r.Context(), date)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// Range handles GET /api/v1/reports/range?from=...&to=...
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	summaries, err := h.service.Range(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_RANGE", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summaries})
}

// TopProducts handles GET /api/v1/reports/top-products?from=...&to=...&limit=10.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.TopProducts(r.Context(), from, to.AddDate(0, 0, 1), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.ParseInLocation("2006-01-02", q.Get("from"), h.service.loc())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_DATE", "from must be YYYY-MM-DD", nil)
		return time.Time{}, time.Time{}, false
	}
	to, err := time.ParseInLocation("2006-01-02", q.Get("to"), h.service.loc())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_DATE", "to must be YYYY-MM-DD", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
