package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "travelcore/pkg/errors"
	httputil "travelcore/pkg/http"
)

// deadlineWriter forwards writes until the request deadline fires. After
// that the handler's output is discarded and the caller sees a timeout.
type deadlineWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	expired bool
	started bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired || dw.started {
		return
	}
	dw.started = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.started = true
	return dw.ResponseWriter.Write(b)
}

// expire reports whether the timeout response may still be written.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	dw.expired = true
	return !dw.started
}

// RequestTimeout bounds lock waits and store calls through the request
// context. A claim that already entered its commit keeps running detached, so
// a timed-out caller should retry with the same idempotency key to learn the
// outcome.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if dw.expire() {
					_ = httputil.WriteError(w, apperrors.Timeout("request did not finish in time; retry with the same Idempotency-Key"))
				}
			}
		})
	}
}
