package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"fuzzy-advisor/internal/logger"
)

const (
	headerRunID = "X-Run-ID"
	headerTOTP  = "X-TOTP"
)

// RunID tags the request context with a run ID taken from X-Run-ID or
// freshly generated, and echoes it in the response.
func RunID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRunID))
		if id == "" || len(id) > 64 {
			id = logger.NewRunID()
		}
		w.Header().Set(headerRunID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRunID(r.Context(), id)))
	})
}

// CORS sets permissive CORS headers and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-TOTP, X-Run-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Run-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTOTP rejects requests without a current one-time code for secret,
// read from the X-TOTP header or, for websocket upgrades, the "totp" query
// parameter. An empty secret disables the check. One period of clock skew
// is accepted either side.
func RequireTOTP(secret string, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.Header.Get(headerTOTP)
			if code == "" {
				code = r.URL.Query().Get("totp")
			}
			if code == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "one-time code required")
				return
			}
			ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, now(), totp.ValidateOpts{
				Period:    30,
				Skew:      1,
				Digits:    otp.DigitsSix,
				Algorithm: otp.AlgorithmSHA1,
			})
			if err != nil || !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid one-time code")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
