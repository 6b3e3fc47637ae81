package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/middleware/jwtshared"
)

func (h *Handlers) Me(c echo.Context) error {
	user := jwtshared.GetCurrentUser(c)
	return success(c, api.MessageOK, api.UserResponse{ID: user.ID, Username: user.Username})
}
