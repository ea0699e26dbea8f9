// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrPlanRequired     = errors.New("plan required")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrUpstream         = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func QuotaExceededError(message string) *AppError {
	return NewAppError(ErrQuotaExceeded, message, http.StatusForbidden, "QUOTA_EXCEEDED")
}

func PlanRequiredError(message string) *AppError {
	return NewAppError(ErrPlanRequired, message, http.StatusForbidden, "PLAN_REQUIRED")
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "token is invalid", http.StatusUnauthorized, "TOKEN_INVALID")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func SignatureInvalidError() *AppError {
	return NewAppError(
		ErrSignatureInvalid,
		"invalid webhook signature",
		http.StatusUnauthorized,
		"SIGNATURE_INVALID",
	)
}

func RateLimitedError(retryAfter time.Duration) *AppError {
	secs := max(1, int(retryAfter.Seconds()))
	return NewAppError(
		ErrRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", secs),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

// UpstreamError reports a failed call to an external dependency. The category
// is shown to the client instead of the underlying error.
func UpstreamError(err error, category string) *AppError {
	return NewAppError(
		fmt.Errorf("%w: %w", ErrUpstream, err),
		category,
		http.StatusInternalServerError,
		"UPSTREAM_ERROR",
	)
}
