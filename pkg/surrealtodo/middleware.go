package surrealtodo

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
)

// requestLogger logs one line per request once the handler returns. For
// websocket upgrades that is when the session ends.
func requestLogger(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Info("handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"bytes", m.Written,
				"duration", m.Duration,
			)
		})
	}
}
