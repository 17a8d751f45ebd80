package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/promo-engine/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds inbound IDs so a hostile header cannot bloat
// every log line of the request.
const maxRequestIDLen = 64

// RequestID propagates the caller's X-Request-Id when it is usable and
// mints a fresh UUID otherwise. The chosen ID is echoed on the response
// and attached to the request-scoped logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !usableRequestID(reqID) {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
