package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

// Recover turns a handler panic into a 500. A panic inside a purchase may leave a
// pending transaction behind; the reconciliation sweep settles it.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.FromContext(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("panic recovered")
			response.InternalError(w)
		}()

		next.ServeHTTP(w, r)
	})
}
