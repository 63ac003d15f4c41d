// app/echoServer/jwtx/user.go
package jwtx

import (
	"github.com/labstack/echo/v4"

	"github.com/OleksiukStepan/library-service-api/model"
)

// Principal reads the acting user the JWT middleware stashed on the context.
func Principal(c echo.Context) model.Principal {
	id, _ := c.Get("user_id").(int64)
	staff, _ := c.Get("is_staff").(bool)
	return model.Principal{ID: id, IsStaff: staff}
}
