package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	authmw "github.com/Skotchmaster/blog_platform/internal/middleware/auth"
	"github.com/Skotchmaster/blog_platform/internal/mykafka"
	"github.com/Skotchmaster/blog_platform/internal/service"
)

type UsersHandler struct {
	Svc      *service.UsersService
	Producer mykafka.Publisher
	Topic    string
}

func (h *UsersHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	me, err := h.Svc.Me(ctx, id)
	if err != nil {
		return httpError(ctx, "get_me", err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *UsersHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req service.UpdateMeInput
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn("update_me_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	me, err := h.Svc.UpdateMe(ctx, id, req)
	if err != nil {
		return httpError(ctx, "update_me", err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *UsersHandler) FindOne(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.Svc.FindOne(ctx, c.Param("userId"))
	if err != nil {
		return httpError(ctx, "find_user", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) RemoveMe(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	if err := h.Svc.RemoveMe(ctx, id); err != nil {
		return httpError(ctx, "remove_me", err)
	}

	publishEvent(ctx, h.Producer, h.Topic, mykafka.Event{
		Type:   mykafka.EventUserRemoved,
		UserID: id.UserID,
		Email:  id.Email,
		At:     time.Now().UTC(),
	})
	return c.NoContent(http.StatusNoContent)
}
