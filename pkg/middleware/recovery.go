package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "travelcore/pkg/errors"
	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"
)

// Recovery turns a handler panic into a 500. A panic inside a claim commit
// has already rolled its transaction back by the time it reaches here.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				log.Error("Panic recovered",
					"request_id", RequestID(r.Context()),
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				_ = httputil.WriteError(w, apperrors.Internal("panic while serving request", fmt.Errorf("%v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
