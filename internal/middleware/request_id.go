package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickbills/billpay-api/internal/pkg/logger"
)

const requestIDKey contextKey = "request_id"

// RequestID tags the request with an id, echoes it back to the client and starts
// the request-scoped logger every later log line hangs off.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLog := logger.FromContext(r.Context()).With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = logger.WithContext(ctx, &reqLog)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
