package transport

import (
	"fmt"
	"net/http"
)

// StatusCode is the engine's RPC status vocabulary. It mirrors the server
// side so callers can branch on semantic kinds instead of HTTP statuses.
type StatusCode string

const (
	StatusUnavailable      StatusCode = "UNAVAILABLE"
	StatusDeadlineExceeded StatusCode = "DEADLINE_EXCEEDED"
	StatusInvalidArgument  StatusCode = "INVALID_ARGUMENT"
	StatusUnimplemented    StatusCode = "UNIMPLEMENTED"
	StatusAborted          StatusCode = "ABORTED"
	StatusCancelled        StatusCode = "CANCELLED"
	StatusInternal         StatusCode = "INTERNAL"
	StatusUnknown          StatusCode = "UNKNOWN"
)

// StatusError is a failure reported by the server (as opposed to a failure
// reaching it). HTTPStatus is the raw transport status for diagnostics.
type StatusError struct {
	Code       StatusCode
	Message    string
	HTTPStatus int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine: %s", e.Code)
	}
	return fmt.Sprintf("engine: %s: %s", e.Code, e.Message)
}

// wireError is the JSON error body the engine returns on non-2xx responses.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFromHTTP(status int) StatusCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return StatusInvalidArgument
	case http.StatusNotImplemented:
		return StatusUnimplemented
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return StatusUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return StatusDeadlineExceeded
	case http.StatusConflict:
		return StatusAborted
	case http.StatusInternalServerError:
		return StatusInternal
	default:
		return StatusUnknown
	}
}
