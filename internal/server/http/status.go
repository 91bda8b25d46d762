package httpserver

import (
	"errors"
	"net/http"

	"github.com/codec404/Konfig/internal/apierr"
)

func statusFor(err error) int {
	var e *apierr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case apierr.InvalidArgument:
		return http.StatusBadRequest
	case apierr.NotFound:
		return http.StatusNotFound
	case apierr.Conflict:
		return http.StatusConflict
	case apierr.ValidationRejected:
		return http.StatusUnprocessableEntity
	case apierr.CollaboratorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
