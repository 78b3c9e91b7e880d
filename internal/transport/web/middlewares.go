package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// loggerMiddleware writes one access line per request. The trace id comes
// from the OpenTelemetry span when there is one, then from the chi request
// id, then a fresh uuid.
func (s *Server) loggerMiddleware() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			var traceID string

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				traceID = sc.TraceID().String()
			}

			if traceID == "" {
				traceID = middleware.GetReqID(r.Context())
			}

			if traceID == "" {
				traceID = uuid.NewString()
			}

			s.l.LogInfo(
				"type: access, method: %s, url: %s, status: %d, proto: %s, remote: %s, userAgent: %s, traceID: %s, latency: %s",
				r.Method,
				r.URL.Path,
				ww.Status(),
				r.Proto,
				r.RemoteAddr,
				r.Header.Get("User-Agent"),
				traceID,
				time.Since(start),
			)
		})
	}
}

func (s *Server) recoverMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if re := recover(); re != nil {
					if re == http.ErrAbortHandler { //nolint:errorlint,goerr113
						panic(re)
					}

					err, ok := re.(error)
					if !ok {
						err = fmt.Errorf("%v: %w", re, ErrPanic)
					}

					s.l.LogErrorf("type: panic, method: %s, url: %s, error: %v", r.Method, r.URL.Path, err)
					writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
