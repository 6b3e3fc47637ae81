package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
)

// ErrorHandler renders every error that reaches echo in the response
// envelope. Only HTTPError messages are shown to clients.
func ErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := api.MessageInternal

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("unhandled request error",
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, api.Envelope[api.Empty]{Success: false, Message: message})
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}
