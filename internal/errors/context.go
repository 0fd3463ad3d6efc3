package errors

import (
	"context"
	"errors"
	"net/http"
)

// MapContextError converts context cancellation and deadline errors into AppErrors.
// Other errors are returned unchanged.
func MapContextError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}
	return err
}

// HTTPStatus returns the HTTP status code that best represents err.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeCanceled:
		// 499 mirrors the nginx convention for client closed request.
		return 499
	default:
		return http.StatusInternalServerError
	}
}
