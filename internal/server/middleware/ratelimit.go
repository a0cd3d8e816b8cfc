package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/handlers"
)

// RateLimit ограничивает количество запросов с одного IP за окно.
// Exceeding the limit gets a JSON 429.
func RateLimit(limit int, window time.Duration, resp *handlers.Responder) func(http.Handler) http.Handler {
	message := fmt.Sprintf("Too many requests from this IP, please try again in %s", window)

	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			resp.WriteStatus(w, http.StatusTooManyRequests, "rate_limited", message)
		}),
	)
}
