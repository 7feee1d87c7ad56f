package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, cmp templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := cmp.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestAdminSettingsEscapesValues(t *testing.T) {
	out := render(t, AdminSettings(`k"><script>`, "saved & done", "tok"))

	if !strings.Contains(out, AuthKeyLabel) {
		t.Errorf("missing field label in %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("authkey was not escaped: %q", out)
	}
	if !strings.Contains(out, `value="k&#34;&gt;&lt;script&gt;"`) {
		t.Errorf("escaped authkey not found in %q", out)
	}
	if !strings.Contains(out, "saved &amp; done") {
		t.Errorf("message not rendered: %q", out)
	}
	if strings.Count(out, `name="_csrf" value="tok"`) != 2 {
		t.Errorf("expected csrf token in both forms: %q", out)
	}
}

func TestAdminLoginError(t *testing.T) {
	if out := render(t, AdminLogin(false, "tok")); strings.Contains(out, "Invalid password") {
		t.Errorf("unexpected error notice: %q", out)
	}
	if out := render(t, AdminLogin(true, "tok")); !strings.Contains(out, "Invalid password") {
		t.Errorf("missing error notice: %q", out)
	}
}
