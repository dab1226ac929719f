package engagement

import (
	"net/http"

	"classlens/pkg/response"
)

var (
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "invalid image")
	ErrMissingImage        = response.NewError(http.StatusBadRequest, "image is required")
	ErrInvalidSession      = response.NewError(http.StatusBadRequest, "invalid session id")
	ErrProviderUnavailable = response.NewError(http.StatusBadGateway, "landmark provider unavailable")
	ErrSessionNotFound     = response.NewError(http.StatusNotFound, "session not found")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)
