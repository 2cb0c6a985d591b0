// Package middleware holds the HTTP middleware shared by every mirror listener.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/zigmirror/internal/api/ctxkeys"
)

// StatusAborted is reported for requests whose connection was dropped
// without a response.
const StatusAborted = "aborted"

// RequestObserver is the minimal contract used by RequestLogger.
// telemetry.Metrics satisfies this interface.
type RequestObserver interface {
	ObserveRequest(listener, route, status string, d time.Duration)
}

// RequestLogger logs every request before routing runs, tags the request
// context with the listener name, and reports the outcome to observer once
// the response is done. observer may be nil.
//
// Expected order in router: RequestID -> RealIP -> RequestLogger -> Recoverer.
func RequestLogger(listener string, logger *zap.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.Listener, listener)
			r = r.WithContext(ctx)

			logger.Info("incoming request",
				zap.String("listener", listener),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", chimw.GetReqID(ctx)),
			)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				rvr := recover()

				status := statusLabel(ww.Status())
				if rvr != nil {
					status = StatusAborted
				}
				elapsed := time.Since(start)
				var pattern string
				if rctx := chi.RouteContext(ctx); rctx != nil {
					pattern = rctx.RoutePattern()
				}

				if observer != nil {
					observer.ObserveRequest(listener, pattern, status, elapsed)
				}
				logger.Debug("request done",
					zap.String("listener", listener),
					zap.String("path", r.URL.Path),
					zap.String("route", pattern),
					zap.String("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", elapsed),
				)

				if rvr != nil {
					panic(rvr)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// statusLabel maps a recorded status to a metrics label. A handler that
// never called WriteHeader or Write answered with an implicit 200.
func statusLabel(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code)
}
