package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON envelope written for every failed request.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

// ToHTTPStatus converts an error code into an HTTP status code.
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// ToHTTPError converts an error into an Echo HTTP error.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		httpStatus := ToHTTPStatus(appErr.Code())
		return echo.NewHTTPError(httpStatus, appErr.Message())
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// ToResponse builds the status and envelope for err. Internal errors never
// expose their cause to the client.
func ToResponse(err error) (int, ErrorResponse) {
	appErr, ok := FromHTTPError(err).(*AppError)
	if !ok || appErr == nil {
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: ErrInternal}
	}

	status := ToHTTPStatus(appErr.Code())
	msg := appErr.Message()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	return status, ErrorResponse{
		Error:   msg,
		Code:    appErr.Code(),
		Details: appErr.Details(),
	}
}

// FromHTTPError converts an Echo HTTP error into an AppError.
func FromHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}

	var echoErr *echo.HTTPError
	if As(err, &echoErr) {
		code := httpStatusToCode(echoErr.Code)
		var msg string
		if m, ok := echoErr.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(echoErr.Code)
		}
		return NewAppError(code, msg, nil)
	}

	return NewAppError(ErrInternal, "internal server error", err)
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusNotImplemented:
		return ErrNotImplemented
	default:
		return ErrInternal
	}
}
