package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "   ", ""},
		{"plain", "Smooth jazz all day", "Smooth jazz all day"},
		{"keeps bold", "<b>Live</b> from Paris", "<b>Live</b> from Paris"},
		{"drops script", `News<script>alert(1)</script>`, "News"},
		{"drops handlers", `<p onclick="x()">Hi</p>`, "<p>Hi</p>"},
		{"drops javascript links", `<a href="javascript:alert(1)">x</a>`, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Description(tt.input))
		})
	}
}

func TestDescription_Links(t *testing.T) {
	got := Description(`<a href="https://example.com">site</a>`)
	assert.Contains(t, got, `href="https://example.com"`)
	assert.Contains(t, got, `rel="nofollow noopener"`)
	assert.Contains(t, got, `target="_blank"`)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Jazz FM", PlainText("  <em>Jazz</em> FM "))
	assert.Equal(t, "", PlainText("<script>x</script>"))
}
