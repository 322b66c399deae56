package middleware

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
)

// RateLimit adapts a tollbooth limiter to chi's middleware signature. The
// auth endpoints sit behind this so OTP issuance and verification can't be
// hammered from a single address.
func RateLimit(lmt *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}

// NewAuthLimiter builds the per-IP limiter used on /auth. The rejection body
// matches the API's standard error shape.
func NewAuthLimiter(requestsPerSecond float64) *limiter.Limiter {
	lmt := tollbooth.NewLimiter(requestsPerSecond, nil)
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"error":"rate_limited","message":"Too many requests, slow down"}`)
	return lmt
}
