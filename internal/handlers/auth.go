package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	authmw "github.com/Skotchmaster/blog_platform/internal/middleware/auth"
	"github.com/Skotchmaster/blog_platform/internal/mykafka"
	"github.com/Skotchmaster/blog_platform/internal/service"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Producer mykafka.Publisher
	Topic    string
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_sign_up")

	var req service.SignUpInput
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_up_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.SignUp(ctx, req)
	if err != nil {
		return httpError(ctx, "sign_up", err)
	}

	h.publish(ctx, mykafka.EventUserRegistered, res.User.ID, req.DeviceID, res.User.Email)
	return c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_sign_in")

	var req service.SignInInput
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_in_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.SignIn(ctx, req)
	if err != nil {
		return httpError(ctx, "sign_in", err)
	}

	h.publish(ctx, mykafka.EventUserSignedIn, res.User.ID, req.DeviceID, res.User.Email)
	return c.JSON(http.StatusOK, res)
}

// Refresh runs behind the refresh guard.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	raw, ok := authmw.RefreshTokenFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	pair, err := h.Svc.Refresh(ctx, id, raw)
	if err != nil {
		return httpError(ctx, "refresh", err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	if err := h.Svc.SignOut(ctx, id); err != nil {
		return httpError(ctx, "sign_out", err)
	}

	h.publish(ctx, mykafka.EventUserSignedOut, id.UserID, id.DeviceID, id.Email)
	return c.NoContent(http.StatusNoContent)
}

// publish is best effort: the request has already succeeded.
func (h *AuthHandler) publish(ctx context.Context, typ, userID, deviceID, email string) {
	publishEvent(ctx, h.Producer, h.Topic, mykafka.Event{
		Type:     typ,
		UserID:   userID,
		DeviceID: deviceID,
		Email:    email,
		At:       time.Now().UTC(),
	})
}

func publishEvent(ctx context.Context, p mykafka.Publisher, topic string, ev mykafka.Event) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, ev.UserID, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
