package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/logging"
	"github.com/Skotchmaster/blog_platform/internal/models"
	"github.com/Skotchmaster/blog_platform/internal/service"
	"github.com/Skotchmaster/blog_platform/internal/tokens"
)

const (
	userKey         = "user"
	refreshTokenKey = "refreshToken"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errRevoked      = errors.New("access token revoked")
	errUnknown      = errors.New("refresh token not on record")
	errInactive     = errors.New("user deleted or inactive")
)

type Verifier interface {
	Verify(token string, kind tokens.Kind) (*tokens.Claims, error)
}

type AccessCache interface {
	IsAccessTokenExist(ctx context.Context, userID, deviceID, token string) (bool, error)
}

type RefreshLookup interface {
	RefreshExists(ctx context.Context, token string) (bool, error)
}

type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Guard builds the access and refresh middlewares over one token codec and its stores.
type Guard struct {
	verifier Verifier
	cache    AccessCache
	sessions RefreshLookup
	users    UserLookup
}

func NewGuard(verifier Verifier, cache AccessCache, sessions RefreshLookup, users UserLookup) *Guard {
	return &Guard{verifier: verifier, cache: cache, sessions: sessions, users: users}
}

// SkipTable lists the "METHOD /route" pairs the access guard lets through untouched.
type SkipTable map[string]struct{}

func NewSkipTable(routes ...string) SkipTable {
	t := make(SkipTable, len(routes))
	for _, r := range routes {
		t[r] = struct{}{}
	}
	return t
}

func (t SkipTable) Skips(c echo.Context) bool {
	_, ok := t[c.Request().Method+" "+c.Path()]
	return ok
}

// AccessGuard admits a request only when its bearer access token verifies and is still the
// live token cached for its (user, device) session.
func (g *Guard) AccessGuard(skip SkipTable) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip.Skips(c) {
				return next(c)
			}
			ctx := c.Request().Context()

			raw, err := bearer(c)
			if err != nil {
				return unauthorized(ctx, "access", err)
			}
			claims, err := g.verifier.Verify(raw, tokens.KindAccess)
			if err != nil {
				return unauthorized(ctx, "access", err)
			}
			live, err := g.cache.IsAccessTokenExist(ctx, claims.UserID, claims.DeviceID, raw)
			if err != nil {
				return unauthorized(ctx, "access", err)
			}
			if !live {
				return unauthorized(ctx, "access", errRevoked)
			}
			user, err := g.checkUser(ctx, claims.UserID)
			if err != nil {
				return unauthorized(ctx, "access", err)
			}

			c.Set(userKey, identity(claims, user))
			return next(c)
		}
	}
}

// RefreshGuard admits a request whose bearer refresh token verifies and is still on record.
func (g *Guard) RefreshGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			raw, err := bearer(c)
			if err != nil {
				return unauthorized(ctx, "refresh", err)
			}
			claims, err := g.verifier.Verify(raw, tokens.KindRefresh)
			if err != nil {
				return unauthorized(ctx, "refresh", err)
			}
			exists, err := g.sessions.RefreshExists(ctx, raw)
			if err != nil {
				return unauthorized(ctx, "refresh", err)
			}
			if !exists {
				return unauthorized(ctx, "refresh", errUnknown)
			}
			user, err := g.checkUser(ctx, claims.UserID)
			if err != nil {
				return unauthorized(ctx, "refresh", err)
			}

			c.Set(userKey, identity(claims, user))
			c.Set(refreshTokenKey, raw)
			return next(c)
		}
	}
}

func (g *Guard) checkUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := g.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Usable() {
		return nil, errInactive
	}
	return u, nil
}

// CurrentUser returns the identity a guard attached to c.
func CurrentUser(c echo.Context) (service.Identity, bool) {
	id, ok := c.Get(userKey).(service.Identity)
	return id, ok
}

// RefreshTokenFrom returns the raw refresh token the refresh guard accepted.
func RefreshTokenFrom(c echo.Context) (string, bool) {
	tok, ok := c.Get(refreshTokenKey).(string)
	return tok, ok && tok != ""
}

func bearer(c echo.Context) (string, error) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingToken
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errMissingToken
	}
	return tok, nil
}

// identity takes the device from the token and everything else from the stored user.
func identity(claims *tokens.Claims, u *models.User) service.Identity {
	return service.Identity{UserID: u.ID, DeviceID: claims.DeviceID, Email: u.Email}
}

// unauthorized hides the reason from the client; it only shows up in debug logs.
func unauthorized(ctx context.Context, guard string, reason error) error {
	logging.FromContext(ctx).Debug("guard_rejected", "guard", guard, "reason", reason.Error())
	return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
}
