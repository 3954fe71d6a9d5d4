package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, core.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusBadGateway:
		return log.ErrorTypeExternal
	default:
		return log.ErrorTypeInternal
	}
}

// writeError answers a failed operation. Client errors carry the user
// message; anything unexpected is logged and shown generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())

	msg := core.UserMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err,
			"error_type", errorType(status))
		msg = "Something went wrong, please try again."
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldStatusCode, status,
			"error_type", errorType(status))
	}

	ErrorResponse(status, msg).Write(w)
}
