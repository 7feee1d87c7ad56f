package newsapi

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/newsapi/views"
)

const msgSettingsSaved = "The configuration options have been saved."

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(false, CsrfToken(c)))
	}
	key, err := a.Settings.AuthKey(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.AdminSettings(key, c.QueryParam("msg"), CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.Admin.Password)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		a.log.Info().Str("ip", c.RealIP()).Msg("admin login")
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.log.Warn().Str("ip", c.RealIP()).Msg("admin login failed")
	return RenderStatus(c, http.StatusUnauthorized, views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminSettings(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	// Stored verbatim: whitespace is part of the key.
	if err := a.Settings.SetAuthKey(c.Request().Context(), c.FormValue("authkey")); err != nil {
		return err
	}
	a.log.Info().Str("ip", c.RealIP()).Msg("api settings updated")
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msgSettingsSaved))
}
