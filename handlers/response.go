package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
)

func success[T any](c echo.Context, message string, data T) error {
	return c.JSON(http.StatusOK, api.Envelope[T]{Success: true, Message: message, Data: &data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, api.Envelope[api.Empty]{Success: false, Message: message})
}
