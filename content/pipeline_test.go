package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSanitizesScript(t *testing.T) {
	p := NewPipeline()
	res, err := p.Render("hello <script>alert(1)</script> world", RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, res.SanitizedHTML, "<script")
	assert.Contains(t, res.SanitizedHTML, "hello")
	assert.Contains(t, res.SanitizedHTML, "world")
}

func TestRenderMarkdown(t *testing.T) {
	p := NewPipeline()
	res, err := p.Render("# Title\n\nsome **bold** text", RenderOptions{Title: "Title"})
	require.NoError(t, err)
	assert.Contains(t, res.SanitizedHTML, "<h1")
	assert.Contains(t, res.SanitizedHTML, "<strong>bold</strong>")
	assert.Equal(t, "Title", res.Title)
}

func TestRenderExtractsImagesInOrder(t *testing.T) {
	p := NewPipeline()
	body := "![first](https://a.example/1.png)\n\nmiddle\n\n![second](https://a.example/2.png)"
	res, err := p.Render(body, RenderOptions{})
	require.NoError(t, err)
	require.Len(t, res.Images, 2)
	assert.Equal(t, "https://a.example/1.png", res.Images[0].Src)
	assert.Equal(t, "first", res.Images[0].Alt)
	assert.Equal(t, "https://a.example/2.png", res.Images[1].Src)
}

func TestRenderRewritesYoutubeIframe(t *testing.T) {
	p := NewPipeline()
	body := `<iframe src="https://www.youtube.com/embed/abc?x=1"></iframe>`
	res, err := p.Render(body, RenderOptions{Origin: "https://reader.example"})
	require.NoError(t, err)

	assert.Contains(t, res.SanitizedHTML, "www.youtube-nocookie.com/embed/abc")
	assert.Contains(t, res.SanitizedHTML, "playsinline=1")
	assert.Contains(t, res.SanitizedHTML, "rel=0")
	assert.Contains(t, res.SanitizedHTML, "enablejsapi=1")
	assert.Contains(t, res.SanitizedHTML, "origin=https%3A%2F%2Freader.example")
	// the original playback param is preserved
	assert.Contains(t, res.SanitizedHTML, "x=1")
}

func TestRenderRewritesShortLink(t *testing.T) {
	p := NewPipeline()
	body := `<iframe src="https://youtu.be/abc"></iframe>`
	res, err := p.Render(body, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, res.SanitizedHTML, "www.youtube-nocookie.com/embed/abc")
}

func TestRenderLeavesOtherIframesAlone(t *testing.T) {
	p := NewPipeline()
	src := "https://player.vimeo.com/video/123"
	res, err := p.Render(`<iframe src="`+src+`"></iframe>`, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, res.SanitizedHTML, src)
	assert.NotContains(t, res.SanitizedHTML, "youtube-nocookie")
}

func TestRewriteVideoEmbedMalformedURL(t *testing.T) {
	_, ok := rewriteVideoEmbed("https://%zz", "")
	assert.False(t, ok)

	_, ok = rewriteVideoEmbed("not a url at all", "")
	assert.False(t, ok)
}

func TestRenderNeverReturnsEmptyOnGarbage(t *testing.T) {
	p := NewPipeline()
	res, err := p.Render(strings.Repeat("<<][", 100), RenderOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SanitizedHTML)
}
