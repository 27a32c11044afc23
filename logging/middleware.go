package logging

import (
	"net/http"
	"time"

	"github.com/dahromy/socialauth/errors"
	"github.com/google/uuid"
)

// Middleware creates a new logging scope for each HTTP request, recovers from
// panics and writes one summary line per request. Fields recorded with Track
// during the request are included in the summary.
func Middleware(root Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := With(r.Context(), root.Named(r.Method+" "+r.URL.Path).With("request_id", uuid.NewString()))
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				err := errors.Wrap(rec, 2)
				Track(ctx, "error.panic", true)
				Track(ctx, "error.stack_trace", string(err.Stack()))
				rw.WriteHeader(http.StatusInternalServerError)
			}

			fields := []interface{}{
				"http.status", rw.status,
				"duration", time.Since(start).String(),
			}
			if rw.status >= http.StatusInternalServerError {
				Errorw(ctx, "request finished", fields...)
			} else {
				Infow(ctx, "request finished", fields...)
			}
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

// TrackError records error fields on the request scope.
func TrackError(r *http.Request, err error) {
	ctx := r.Context()
	Track(ctx, "error", err.Error())
	Track(ctx, "error.http_status", errors.HTTPStatusCode(err))
	Track(ctx, "error.code", errors.Code(err).String())
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
