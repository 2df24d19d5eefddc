package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tokoanjar/pos-api/internal/common"
)

// Hours gates sales endpoints to the shop's opening hours. Admins can still
// finalize sales after closing, e.g. to backfill a day's manual invoices.
type Hours struct {
	Open     int
	Close    int
	Location *time.Location
	Now      func() time.Time
}

func (h Hours) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// OpenAt reports whether the shop is open at the given instant.
func (h Hours) OpenAt(t time.Time) bool {
	if h.Location != nil {
		t = t.In(h.Location)
	}
	hour := t.Hour()
	return hour >= h.Open && hour < h.Close
}

// Middleware rejects requests outside opening hours for non-admin users.
func (h Hours) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.OpenAt(h.now()) || common.HasRole(r.Context(), RoleAdmin) {
			next.ServeHTTP(w, r)
			return
		}
		common.JSONError(w, http.StatusForbidden, "SHOP_CLOSED",
			fmt.Sprintf("shop is open %02d:00-%02d:00", h.Open, h.Close), nil)
	})
}
