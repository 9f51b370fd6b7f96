package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noisyHTML = `<html>
<head><title>page</title><style>body { color: red }</style></head>
<body>
<nav><a href="/home">home</a></nav>
<h1>ニュース</h1>
<p>ドランソードが発売されます。</p>
<a href="/beyblade-x/bx01/">product page</a>
<script>console.log("tracking")</script>
<footer>copyright</footer>
</body>
</html>`

func TestStripNoise(t *testing.T) {
	cleaned := StripNoise(noisyHTML)

	assert.NotContains(t, cleaned, "console.log")
	assert.NotContains(t, cleaned, "color: red")
	assert.NotContains(t, cleaned, "copyright")
	assert.NotContains(t, cleaned, "<nav>")
	assert.Contains(t, cleaned, "ドランソード")
}

func TestStripNoise_InvalidInputPassedThrough(t *testing.T) {
	// html.Parse is extremely tolerant, so even garbage round-trips to
	// some rendering; the function must never return "".
	out := StripNoise("<<<not html>>>")
	assert.NotEmpty(t, out)
}

func TestConvert(t *testing.T) {
	c := New(ModeRaw)

	md, err := c.Convert(noisyHTML, "https://example.com/news/")
	require.NoError(t, err)

	assert.Contains(t, md, "# ニュース")
	assert.Contains(t, md, "ドランソードが発売されます。")
	assert.NotContains(t, md, "console.log")
	assert.NotContains(t, md, "copyright")

	// Relative links resolve against the source URL.
	assert.Contains(t, md, "https://example.com/beyblade-x/bx01/")
}

func TestConvert_Deterministic(t *testing.T) {
	c := New(ModeRaw)

	first, err := c.Convert(noisyHTML, "https://example.com/")
	require.NoError(t, err)
	second, err := c.Convert(noisyHTML, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestConvert_EmptyBody(t *testing.T) {
	c := New(ModeRaw)

	md, err := c.Convert("<html><body></body></html>", "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "", md)
}

func TestNew_UnknownModeFallsBackToRaw(t *testing.T) {
	c := New("whatever")
	assert.Equal(t, ModeRaw, c.mode)
}
