package handlers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/apperr"
)

// httpError maps a service or repository error onto an HTTP response.
// Unclassified errors are logged and surfaced as a plain 500 so driver and
// internal detail never reaches the caller.
func httpError(err error) *echo.HTTPError {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		return echo.NewHTTPError(status, "Internal server error")
	}
	return echo.NewHTTPError(status, err.Error())
}
