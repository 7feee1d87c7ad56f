package newsapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// AuthHeader carries the shared secret on news requests.
const AuthHeader = "auth"

func (a *App) handleNews(c echo.Context) error {
	ctx := c.Request().Context()

	ok, err := a.Feed.Authorize(ctx, c.Request().Method, c.Request().Header.Get(AuthHeader))
	if err != nil {
		a.metrics.observeFeed(outcomeError, 0)
		return err
	}
	if !ok {
		a.metrics.observeFeed(outcomeForbidden, 0)
		return RenderJSON(c, http.StatusForbidden, MsgForbidden)
	}

	records, err := a.Feed.Query(ctx, c.QueryParam("tag"))
	if err != nil {
		a.metrics.observeFeed(outcomeError, 0)
		return err
	}
	if len(records) == 0 {
		a.metrics.observeFeed(outcomeEmpty, 0)
		return RenderJSON(c, http.StatusOK, MsgNoNews)
	}
	a.metrics.observeFeed(outcomeOK, len(records))
	return RenderJSON(c, http.StatusOK, FeedResponse{Title: FeedTitle, Data: records})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := []pinger{a.Store}
	if rs, ok := a.settingsStore.(*RedisSettings); ok {
		checks = append(checks, rs)
	}
	for _, p := range checks {
		if err := p.Ping(ctx); err != nil {
			a.log.Warn().Err(err).Msg("health check failed")
			return RenderJSON(c, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return RenderJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code >= 500 {
		a.log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", code).
			Msg("server error")
	}

	msg := http.StatusText(code)
	path := c.Request().URL.Path
	var werr error
	switch {
	case c.Request().Method == http.MethodHead:
		werr = c.NoContent(code)
	case path == a.Config.News.Route || path == "/healthz" || strings.HasPrefix(path, a.Config.News.Route+"/"):
		werr = RenderJSON(c, code, msg)
	default:
		werr = c.String(code, msg)
	}
	if werr != nil {
		a.log.Error().Err(werr).Msg("write error response")
	}
}
