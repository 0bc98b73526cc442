package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/handlers"
	authmw "github.com/Skotchmaster/blog_platform/internal/middleware/auth"
)

type Deps struct {
	AuthHandler  *handlers.AuthHandler
	UsersHandler *handlers.UsersHandler
	Guard        *authmw.Guard
}

// PublicRoutes are the routes the access guard does not check.
// /auth/refresh is here because it carries a refresh token, checked by its own guard.
var PublicRoutes = authmw.NewSkipTable(
	"GET /health/live",
	"GET /health/ready",
	"POST /auth/sign-up",
	"POST /auth/sign-in",
	"POST /auth/refresh",
)

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(d.Guard.AccessGuard(PublicRoutes))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/sign-up", d.AuthHandler.SignUp)
	auth.POST("/sign-in", d.AuthHandler.SignIn)
	auth.POST("/refresh", d.AuthHandler.Refresh, d.Guard.RefreshGuard())
	auth.POST("/sign-out", d.AuthHandler.SignOut)

	users := e.Group("/users")
	users.GET("/me", d.UsersHandler.Me)
	users.PATCH("/me", d.UsersHandler.UpdateMe)
	users.DELETE("/me", d.UsersHandler.RemoveMe)
	users.GET("/:userId", d.UsersHandler.FindOne)
}
