package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eringen/newsapi/logging"
	"github.com/eringen/newsapi/views"
)

// adminClient carries cookies between admin requests like a browser would.
type adminClient struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
	csrf    string
}

func newAdminClient(t *testing.T, a *App) *adminClient {
	t.Helper()
	c := &adminClient{t: t, app: a, cookies: make(map[string]*http.Cookie)}
	rec := c.get("/admin/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, c.csrf)
	return c
}

func (c *adminClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
		if ck.Name == "_csrf" {
			c.csrf = ck.Value
		}
	}
	return rec
}

func (c *adminClient) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *adminClient) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *adminClient) login(password string) *httptest.ResponseRecorder {
	return c.post("/admin/login/", url.Values{"password": {password}, "_csrf": {c.csrf}})
}

func TestAdminShowsLoginForm(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)

	rec := c.get("/admin/")
	require.Contains(t, rec.Body.String(), `action="/admin/login/"`)
	require.NotContains(t, rec.Body.String(), views.AuthKeyLabel)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAdminLoginAndSaveAuthKey(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)

	rec := c.login(testAdminPassword)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin/", rec.Header().Get("Location"))

	rec = c.get("/admin/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), views.AuthKeyLabel)
	require.Contains(t, rec.Body.String(), `value="k"`)

	rec = c.post("/admin/settings/", url.Values{"authkey": {" new key "}, "_csrf": {c.csrf}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin/?msg=The+configuration+options+have+been+saved.", rec.Header().Get("Location"))

	key, err := a.Settings.AuthKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, " new key ", key)

	rec = c.get("/admin/?msg=The+configuration+options+have+been+saved.")
	require.Contains(t, rec.Body.String(), "The configuration options have been saved.")
	require.Contains(t, rec.Body.String(), `value=" new key "`)

	rec = doRequest(a, http.MethodGet, "/api/news?tag=Sports", authHeader(" new key "))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(a, http.MethodGet, "/api/news?tag=Sports", authHeader(testAuthKey))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSaveEmptyKey(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)
	c.login(testAdminPassword)

	rec := c.post("/admin/settings/", url.Values{"authkey": {""}, "_csrf": {c.csrf}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = doRequest(a, http.MethodGet, "/api/news?tag=Sports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminWrongPassword(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)

	rec := c.login("nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid password")

	rec = c.post("/admin/settings/", url.Values{"authkey": {"x"}, "_csrf": {c.csrf}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	key, err := a.Settings.AuthKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAuthKey, key)
}

func TestAdminRequiresCSRFToken(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)
	c.login(testAdminPassword)

	rec := c.post("/admin/settings/", url.Values{"authkey": {"x"}})
	require.Equal(t, http.StatusForbidden, rec.Code)

	key, err := a.Settings.AuthKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAuthKey, key)
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, c.login("nope").Code)
	}
	rec := c.login(testAdminPassword)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAdminLogout(t *testing.T) {
	a := newTestApp(t, testAuthKey)
	c := newAdminClient(t, a)
	c.login(testAdminPassword)

	rec := c.post("/admin/logout/", url.Values{"_csrf": {c.csrf}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/admin/")
	require.Contains(t, rec.Body.String(), `action="/admin/login/"`)
}

func TestAdminDisabled(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.Database.DSN = filepath.Join(dir, "news.db")
	cfg.Files.Dir = filepath.Join(dir, "files")
	cfg.Admin.Enabled = false

	a := New(cfg, WithLogger(logging.Nop()))
	require.NoError(t, a.Init())
	t.Cleanup(func() { a.Close() })

	rec := doRequest(a, http.MethodGet, "/admin/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
