package middleware

import (
	"log"
	"net/http"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	userID     string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func LoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			userID := rw.userID
			if userID == "" {
				userID = "anonymous"
			}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "-"
			}

			log.Printf("[FakeAPI] %s %s - Status: %d - Duration: %v - User: %s - Request: %s",
				r.Method,
				r.URL.Path,
				rw.statusCode,
				duration,
				userID,
				requestID,
			)
		})
	}
}
