package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"travelcore/pkg/logger"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// RequestIDHeader is honoured when the caller already assigned an id.
const RequestIDHeader = "X-Request-ID"

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if sr.written {
		return
	}
	sr.statusCode = statusCode
	sr.written = true
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// RequestLogging tags each request with an id and logs one line per request.
// Server errors log at error level, claim conflicts at warn.
func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			r = r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID))
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			args := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"user_id", r.Header.Get(UserIDHeader),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if w.Header().Get(ReplayedHeader) != "" {
				args = append(args, "idempotent_replay", true)
			}
			if retry := w.Header().Get("Retry-After"); retry != "" {
				args = append(args, "retry_after", retry)
			}

			switch {
			case rec.statusCode >= http.StatusInternalServerError:
				log.Error("HTTP request failed", args...)
			case rec.statusCode == http.StatusConflict:
				log.Warn("HTTP request conflicted", args...)
			default:
				log.Info("HTTP request completed", args...)
			}
		})
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(max(int(d.Seconds()), 1))
}
