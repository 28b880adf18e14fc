package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLogin(t *testing.T) {
	out := render(t, Login(`a"b`, "bad credentials"))
	assert.Contains(t, out, `value="a&#34;b"`)
	assert.Contains(t, out, "bad credentials")
	assert.Contains(t, out, `action="/login"`)
	assert.Contains(t, out, "<title>Log in · Radio</title>")
}

func TestDashboard_Cards(t *testing.T) {
	out := render(t, Dashboard(DashboardData{
		Stations: []StationCard{
			{ID: "jazz", Name: "Jazz FM", Color: "#000000", TextColor: "white", DescriptionHTML: "<b>Live</b>", Playing: true},
			{ID: "news", Name: "News <24>", Color: "#ffffff", TextColor: "black", ArtworkURL: "/artwork/n.webp"},
		},
		NowPlaying: "Jazz FM",
		Since:      time.Now().Add(-3 * time.Minute),
		Volume:     70,
	}))

	assert.Contains(t, out, `style="background-color:#000000;color:white;"`)
	assert.Contains(t, out, `class="station playing" data-station="jazz"`)
	assert.Contains(t, out, `class="station" data-station="news"`)
	assert.Contains(t, out, `data-body="{&#34;station_id&#34;:&#34;jazz&#34;}"`)
	assert.Contains(t, out, "<b>Live</b>", "sanitized descriptions render as HTML")
	assert.Contains(t, out, "News &lt;24&gt;")
	assert.Contains(t, out, `<img src="/artwork/n.webp"`)
	assert.Contains(t, out, "Playing Jazz FM")
	assert.Contains(t, out, "3 minutes ago")
	assert.Contains(t, out, "volume 70%")
	assert.Contains(t, out, `data-post="/api/stop"`)
}

func TestDashboard_CardAttributesAreContextEscaped(t *testing.T) {
	out := render(t, Dashboard(DashboardData{
		Stations: []StationCard{{
			ID:        `x"}'><script>alert(1)</script>`,
			Name:      "Evil",
			Color:     "red;background-image:url(javascript:alert(1))",
			TextColor: "black",
		}},
	}))

	assert.NotContains(t, out, "<script>alert(1)")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, `data-body="{&#34;station_id&#34;:&#34;x\&#34;}&#39;\u003e\u003cscript\u003ealert(1)\u003c/script\u003e&#34;}"`,
		"the play body is JSON first, then HTML-escaped for the attribute")
	assert.Contains(t, out, `data-station="x&#34;}&#39;&gt;&lt;script&gt;alert(1)&lt;/script&gt;"`)
	assert.Contains(t, out, "background-color:zTemplUnsafeCSSPropertyValue;color:black;")
}

func TestDashboard_Empty(t *testing.T) {
	out := render(t, Dashboard(DashboardData{IsAdmin: true}))
	assert.Contains(t, out, "No stations configured yet. Add one through POST /api/stations.")
	assert.Contains(t, out, `<p id="now-playing" class="banner">Not playing</p>`)

	out = render(t, Dashboard(DashboardData{}))
	assert.NotContains(t, out, "POST /api/stations")
}

func TestSettings(t *testing.T) {
	out := render(t, Settings(SettingsData{
		Devices:       []DeviceOption{{Index: 0, Label: "auto"}, {Index: 1, Label: "Headphones"}},
		DeviceIndex:   1,
		VolumePercent: 55,
		Saved:         true,
	}))
	assert.Contains(t, out, `<option value="1" selected>Headphones</option>`)
	assert.Contains(t, out, `<option value="0">auto</option>`)
	assert.Contains(t, out, `value="55"`)
	assert.Contains(t, out, "Settings saved.")
}

func TestError(t *testing.T) {
	out := render(t, Error(404, "station not found"))
	assert.Contains(t, out, "<h1>Not Found</h1>")
	assert.Contains(t, out, "<title>Not Found · Radio</title>")
	assert.Contains(t, out, "station not found")
}
