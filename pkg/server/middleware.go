package server

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID wraps next so every request is tagged with a fresh
// correlation id, logged alongside the method and path and threaded
// through the request context for handlers to log against.
func WithRequestID(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[BucketAPI] ", log.LstdFlags)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		logger.Printf("request %s %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the correlation id attached to ctx by
// WithRequestID, or "" if none is present.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
