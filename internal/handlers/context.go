package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CurrentUserID reads the user id the auth middleware stored on the
// request context.
func CurrentUserID(c echo.Context) (uint, error) {
	if id, ok := c.Get("userID").(uint); ok && id != 0 {
		return id, nil
	}
	return 0, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
}
