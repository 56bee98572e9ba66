package middleware

import (
	"bytes"
	"context"
	"net/http"

	"travelcore/pkg/conflict"
	apperrors "travelcore/pkg/errors"
	httputil "travelcore/pkg/http"
)

// IdempotencyHeader names the client-chosen key for a retried claim request.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses served from the cache.
const ReplayedHeader = "Idempotent-Replayed"

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// IdempotencyStore remembers committed claim responses per key. Reserve marks
// a key as in flight so a duplicate arriving before the first request
// finishes does not run the claim a second time.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Reserve(ctx context.Context, key string) bool
	Complete(ctx context.Context, key string, response *CachedResponse)
	Release(ctx context.Context, key string)
	Stop()
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first committed response for a repeated key.
// Rejections and transient conflicts are not cached, so a retry sees fresh
// inventory.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if cached, ok := store.Get(ctx, key); ok {
				replay(w, cached)
				return
			}
			if !store.Reserve(ctx, key) {
				if cached, ok := store.Get(ctx, key); ok {
					replay(w, cached)
					return
				}
				_ = httputil.WriteError(w, apperrors.Transient(string(conflict.Contended), "a request with this idempotency key is still in progress"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			// the claim outcome is already decided; a cancelled request must not leave the key reserved
			done := context.WithoutCancel(ctx)
			if capture.statusCode < 200 || capture.statusCode >= 300 {
				store.Release(done, key)
				return
			}
			store.Complete(done, key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       bytes.Clone(capture.body.Bytes()),
			})
		})
	}
}

// Keys are scoped to caller and route so two users cannot collide.
func idempotencyKey(r *http.Request, headerName string) string {
	key := r.Header.Get(headerName)
	if key == "" {
		return ""
	}
	return r.Header.Get(UserIDHeader) + "|" + r.Method + " " + r.URL.Path + "|" + key
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
