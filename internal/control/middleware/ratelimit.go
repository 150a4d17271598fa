// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/suiteops/internal/control/problem"
)

// RateLimit allows limit requests per window per client IP using a sliding
// window counter. A non-positive limit disables limiting.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			problem.Write(w, r, http.StatusTooManyRequests, "http/rate_limited", "Too Many Requests", "RATE_LIMITED", "Too many requests. Please try again later.", nil)
		}),
	)
}
