// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package middleware holds the HTTP middleware stack of the operator API.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/suiteops/internal/control/problem"
	"github.com/ManuGH/suiteops/internal/log"
)

// RequestID adds a unique ID to every request and echoes it in the response.
// The request ID doubles as the correlation ID for events published while
// serving the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(problem.HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(problem.HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		ctx = log.ContextWithCorrelationID(ctx, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
