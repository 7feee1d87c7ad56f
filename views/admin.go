// Package views holds the templ components of the admin settings pages.
package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// AuthKeyLabel is the label of the authkey field on the settings form.
const AuthKeyLabel = "Set You API Auth Key"

// AdminLogin renders the password form. showError adds an error notice.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return page("News API admin", func(b *strings.Builder) {
		b.WriteString(`<h1>News API admin</h1>`)
		if showError {
			b.WriteString(`<p class="error" role="alert">Invalid password.</p>`)
		}
		b.WriteString(`<form method="post" action="/admin/login/">`)
		csrfField(b, csrfToken)
		b.WriteString(`<label for="password">Password</label>`)
		b.WriteString(`<input type="password" id="password" name="password" autocomplete="current-password" required>`)
		b.WriteString(`<button type="submit">Log in</button></form>`)
	})
}

// AdminSettings renders the settings form with authkey pre-filled.
func AdminSettings(authkey, message, csrfToken string) templ.Component {
	return page("News API settings", func(b *strings.Builder) {
		b.WriteString(`<h1>News API settings</h1>`)
		if message != "" {
			b.WriteString(`<p class="message" role="status">`)
			b.WriteString(templ.EscapeString(message))
			b.WriteString(`</p>`)
		}
		b.WriteString(`<form method="post" action="/admin/settings/">`)
		csrfField(b, csrfToken)
		b.WriteString(`<label for="authkey">` + AuthKeyLabel + `</label>`)
		b.WriteString(`<input type="text" id="authkey" name="authkey" value="`)
		b.WriteString(templ.EscapeString(authkey))
		b.WriteString(`">`)
		b.WriteString(`<button type="submit">Save configuration</button></form>`)
		b.WriteString(`<form method="post" action="/admin/logout/">`)
		csrfField(b, csrfToken)
		b.WriteString(`<button type="submit">Log out</button></form>`)
	})
}

func csrfField(b *strings.Builder, token string) {
	b.WriteString(`<input type="hidden" name="_csrf" value="`)
	b.WriteString(templ.EscapeString(token))
	b.WriteString(`">`)
}

func page(title string, body func(*strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(title) + `</title></head><body><main>`)
		body(&b)
		b.WriteString(`</main></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
