package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id on requests and responses.
const HeaderRequestID = "X-Request-ID"

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// RequestID tags each request with a correlation id and echoes it on the
// response. Caller-supplied ids are kept so upstream traces line up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id))
		next.ServeHTTP(w, r)
	})
}

// RequestIDFromContext returns the id RequestID stored, or "" outside a
// request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
