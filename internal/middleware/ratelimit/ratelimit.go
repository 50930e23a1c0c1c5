package ratelimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func CreateAccount() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func ConfirmAccount() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

// RequestCode covers every endpoint that emails a new code.
func RequestCode() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

// TokenCheck covers validate-token and update-password/{token}, which take a
// six digit code and must not allow enumerating it.
func TokenCheck() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(limit, window)
}
