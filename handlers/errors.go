package handlers

import (
	"errors"
	"net/http"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/nestedset"
)

// ErrInvalidID is returned for a path id that is not a positive integer.
var ErrInvalidID = errors.New("invalid category id")

// ErrorStatus maps a service error to an HTTP status code.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, nestedset.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, nestedset.ErrCycle),
		errors.Is(err, nestedset.ErrInvalidPosition),
		errors.Is(err, category.ErrInvalidInput),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, nestedset.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
