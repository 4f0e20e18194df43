package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"auth/internal/domain"
)

type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// writeAuthError translates domain failures into the status classes the API
// exposes. Anything unrecognized is an infrastructure failure: logged with
// its cause, surfaced as a generic 500.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound    *domain.NotFoundError
		locked      *domain.LockedError
		attempt     *domain.OTPAttemptError
		rateLimited *domain.RateLimitedError
		policyErr   *domain.PasswordPolicyError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: notFound.Message})
	case errors.As(err, &locked):
		writeJSON(w, http.StatusLocked, errorBody{Message: locked.Message})
	case errors.As(err, &attempt):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Message: fmt.Sprintf("Incorrect OTP. You have %d attempts left.", attempt.Remaining),
		})
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Message: fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", rateLimited.RetryAfter),
		})
	case errors.As(err, &policyErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Message: "Password must be at least 8 characters and include uppercase, lowercase, number, and special character.",
			Errors:  policyErr.Violations,
		})
	case errors.Is(err, domain.ErrOTPExpired):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "The OTP has expired. Please request a new one."})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Incorrect username or password."})
	case errors.Is(err, domain.ErrInvalidResetToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Invalid or expired verification token."})
	default:
		slog.Error("internal error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal server error"})
	}
}
