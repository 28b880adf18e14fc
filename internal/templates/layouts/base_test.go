package layouts

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, ctx context.Context, body templ.Component, title string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Base(title).Render(templ.WithChildren(ctx, body), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestBase_Anonymous(t *testing.T) {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>hello</p>")
		return err
	})

	out := render(t, context.Background(), body, "Login")
	if !strings.Contains(out, "<title>Login · Radio</title>") {
		t.Errorf("missing title in %q", out)
	}
	if !strings.Contains(out, "<main><p>hello</p></main>") {
		t.Error("body not rendered inside main")
	}
	if strings.Contains(out, "new WebSocket") {
		t.Error("anonymous pages must not open the event feed")
	}
	if strings.Contains(out, `action="/logout"`) {
		t.Error("anonymous pages must not show the logout form")
	}
}

func TestBase_Authenticated(t *testing.T) {
	ctx := SetIsAuthenticated(context.Background(), true)
	ctx = SetUserName(ctx, "<alice>")
	ctx = SetCSRFToken(ctx, `tok"en`)
	ctx = SetActivePath(ctx, "/settings")
	ctx = SetFlashError(ctx, "could not start playback")

	out := render(t, ctx, templ.NopComponent, "Settings")
	if !strings.Contains(out, "&lt;alice&gt;") {
		t.Error("user name must be escaped")
	}
	if !strings.Contains(out, `<a class="active" href="/settings">`) {
		t.Error("active nav link not marked")
	}
	if !strings.Contains(out, `<a href="/">Stations</a>`) {
		t.Error("inactive nav link must carry no class")
	}
	if !strings.Contains(out, `name="csrf-token" content="tok&#34;en"`) {
		t.Error("csrf meta tag missing or unescaped")
	}
	if !strings.Contains(out, `value="tok&#34;en"`) {
		t.Error("logout form lacks csrf token")
	}
	if !strings.Contains(out, "could not start playback") {
		t.Error("flash error not shown")
	}
	if !strings.Contains(out, "new WebSocket") {
		t.Error("event script missing")
	}
}

// Notification actions such as "Stop" target POST-only API routes, so the
// snackbar has to turn them into data-post buttons rather than links.
func TestBase_EventScriptRendersNotificationActions(t *testing.T) {
	ctx := SetIsAuthenticated(context.Background(), true)
	out := render(t, ctx, templ.NopComponent, "Stations")

	for _, want := range []string{
		"n.actions",
		`a.href.indexOf("/api/") === 0`,
		`createElement("button")`,
		"el.dataset.post = a.href",
		`createElement("a")`,
		"el.textContent = a.label",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("event script lacks %q", want)
		}
	}
	if strings.Contains(out, "innerHTML") {
		t.Error("notification text must be inserted as text, not markup")
	}
}
