package markdown

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// noiseSelector matches elements that carry no page content: scripts,
// styling, chrome (nav/header/footer/aside), embeds, and inline SVG.
const noiseSelector = "script, style, noscript, iframe, nav, footer, header, aside, svg"

var noiseSel = cascadia.MustCompile(noiseSelector)

// StripNoise parses rawHTML, removes every element matching the noise
// selector, and renders the remaining tree. On parse failure the input
// is returned unchanged so downstream still has something to convert.
func StripNoise(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	for _, node := range cascadia.QueryAll(doc, noiseSel) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return rawHTML
	}
	return buf.String()
}
