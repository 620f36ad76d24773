package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var codeToHTTPStatus = map[string]int{
	ErrInternal:        http.StatusInternalServerError,
	ErrNotFound:        http.StatusNotFound,
	ErrInvalidArgument: http.StatusBadRequest,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrUnauthorized:    http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrTimeout:         http.StatusGatewayTimeout,
	ErrNotImplemented:  http.StatusNotImplemented,

	ErrVerificationFailed: http.StatusBadRequest,
	ErrParseFailed:        http.StatusBadRequest,
	// Duplicates and business-rule rejections acknowledge with 200 so the
	// provider stops retrying a delivery that can never change outcome.
	ErrDuplicateEvent:    http.StatusOK,
	ErrIllegalTransition: http.StatusOK,
	ErrTerminalConflict:  http.StatusOK,
	ErrAmountMismatch:    http.StatusOK,
	ErrStoreUnavailable:  http.StatusServiceUnavailable,
}

// ToHTTPStatus maps an error code to an HTTP status code.
func ToHTTPStatus(code string) int {
	if status, ok := codeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ToHTTPError converts an error to an echo HTTP error.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return echo.NewHTTPError(ToHTTPStatus(appErr.Code()), appErr.Error())
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
