package receiver

import (
	"github.com/labstack/echo/v4"
)

type MessageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, MessageResponse{Message: msg})
}

func fromError(c echo.Context, code int, err error) error {
	return message(c, code, err.Error())
}
