package newsapi

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// EncodeJSON renders v with four-space indentation, leaving Unicode and
// HTML characters unescaped. The trailing newline is dropped.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RenderJSON writes v as an indented JSON response.
func RenderJSON(c echo.Context, code int, v any) error {
	body, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	return c.Blob(code, echo.MIMEApplicationJSON, body)
}
