package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_platform/internal/logging"
)

type errorBody struct {
	StatusCode int       `json:"statusCode"`
	Messages   []string  `json:"messages"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
}

// ErrorHandler renders every error as an errorBody.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
			msg = http.StatusText(code)
		default:
			msg = fmt.Sprint(m)
		}
	}
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
		msg = http.StatusText(code)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, errorBody{
			StatusCode: code,
			Messages:   []string{msg},
			Timestamp:  time.Now().UTC(),
			Path:       c.Request().URL.Path,
		})
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", werr)
	}
}
