package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// StatusObserver receives the status code of every response.
type StatusObserver interface {
	RecordHTTPStatus(statusCode int)
}

// responseLog wraps a ResponseWriter and remembers the first status sent.
// Writing a body or flushing without WriteHeader counts as 200.
type responseLog struct {
	http.ResponseWriter
	status int
}

func (rl *responseLog) note(code int) {
	if rl.status == 0 {
		rl.status = code
	}
}

func (rl *responseLog) WriteHeader(code int) {
	rl.note(code)
	rl.ResponseWriter.WriteHeader(code)
}

func (rl *responseLog) Write(b []byte) (int, error) {
	rl.note(http.StatusOK)
	return rl.ResponseWriter.Write(b)
}

// Flush keeps the SSE stream working behind the logger.
func (rl *responseLog) Flush() {
	rl.note(http.StatusOK)
	if f, ok := rl.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rl *responseLog) Unwrap() http.ResponseWriter { return rl.ResponseWriter }

func (rl *responseLog) statusCode() int {
	if rl.status == 0 {
		return http.StatusOK
	}
	return rl.status
}

func levelForStatus(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware writes one "http_request" entry per request with
// method, path, status, duration_ms and, behind the session middleware,
// user_id. observer may be nil.
func NewLoggingMiddleware(logger *slog.Logger, observer StatusObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rl := &responseLog{ResponseWriter: w}

			next.ServeHTTP(rl, r)

			status := rl.statusCode()
			attrs := make([]slog.Attr, 0, 5)
			attrs = append(attrs,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(started).Microseconds())/1000),
			)
			if userID, err := UserIDFromContext(r.Context()); err == nil {
				attrs = append(attrs, slog.String("user_id", userID))
			}
			logger.LogAttrs(r.Context(), levelForStatus(status), "http_request", attrs...)

			if observer != nil {
				observer.RecordHTTPStatus(status)
			}
		})
	}
}
