package httpx

import (
	"net/http"

	"github.com/seikyu-app/seikyu/internal/platform/db"
)

// RespondError maps a gateway-classified error to an HTTP response.
// Transient infrastructure failures surface as 503 so the caller knows a
// retry may help; everything else is an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	switch db.KindOf(err) {
	case db.KindTransientInfra:
		Problem(w, http.StatusServiceUnavailable, "Temporarily Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}
