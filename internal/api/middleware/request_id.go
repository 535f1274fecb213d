// Package middleware provides HTTP middleware for the tripmap API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// requestScopeKey is the context key for the request scope.
type requestScopeKey struct{}

// requestScope is shared by every middleware and handler serving one request.
// Values recorded deeper in the chain, such as the authenticated user, are visible
// to outer middleware after the handler returns.
type requestScope struct {
	id     string
	userID string
}

func scopeFrom(ctx context.Context) *requestScope {
	s, _ := ctx.Value(requestScopeKey{}).(*requestScope)
	return s
}

// RequestID assigns a request ID and opens the request scope. A well-formed
// X-Request-Id from the client is kept; anything else is replaced. The ID is echoed
// in the X-Request-Id response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestScopeKey{}, &requestScope{id: requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts IDs made of letters, digits, '-', '_' and '.', so a
// client cannot inject arbitrary text into logs and problem bodies.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.id
	}
	return ""
}
