package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "tleenotes/internal/errors"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that renders every
// error as errors.ErrorResponse. Domain errors are mapped with
// MapErrorToHTTP; unexpected ones are logged and reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, apperrors.ErrorResponse) {
	// Echo's own errors (router 404/405, bind failures) and handler-built ones.
	var he *echo.HTTPError
	if apperrors.As(err, &he) {
		switch msg := he.Message.(type) {
		case apperrors.ErrorResponse:
			return he.Code, msg
		case string:
			return he.Code, apperrors.ErrorResponse{Error: msg, Code: statusCode(he.Code)}
		default:
			return he.Code, apperrors.ErrorResponse{Error: fmt.Sprint(msg), Code: statusCode(he.Code)}
		}
	}

	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("unhandled error")
	}
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

// statusCode turns a status into a machine code, e.g. 405 → METHOD_NOT_ALLOWED.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: msg,
		Code:  "BAD_REQUEST",
	})
}

const invalidBody = "invalid request body"
