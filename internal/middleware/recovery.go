package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Recovery catches handler panics, logs them server-side and answers with a
// generic 500 body.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic_recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					body := map[string]string{
						"error":   "Internal server error",
						"message": "An unexpected error occurred",
					}
					if err := json.NewEncoder(w).Encode(body); err != nil {
						logger.Error("failed_to_encode_error_response", zap.Error(err))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
