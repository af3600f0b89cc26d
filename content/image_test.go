package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractImageFromContent(t *testing.T) {
	assert.Equal(t, "http://x/img.png",
		ExtractImageFromContent("![alt](http://x/img.png) text"))
	assert.Equal(t, "https://x/img.png",
		ExtractImageFromContent(`before <img src="https://x/img.png" alt="a"> after`))
	assert.Equal(t, "https://x/photo.jpeg",
		ExtractImageFromContent("a bare link https://x/photo.jpeg in text"))
	assert.Equal(t, "", ExtractImageFromContent("no image here"))
	assert.Equal(t, "", ExtractImageFromContent(""))
}

func TestExtractImagePrefersMarkdown(t *testing.T) {
	body := `<img src="https://x/html.png"> ![alt](https://x/md.png)`
	assert.Equal(t, "https://x/md.png", ExtractImageFromContent(body))
}

func TestOptimizeImageURL(t *testing.T) {
	got := OptimizeImageURL("https://proxy.example", "https://x/img.png?v=2#frag", ImageOptions{Width: 640})
	assert.Equal(t, "https://proxy.example/640x0/https://x/img.png", got)
}

func TestOptimizeImageURLDefaults(t *testing.T) {
	got := OptimizeImageURL("", "https://x/img.png", ImageOptions{})
	assert.Equal(t, DefaultProxyHost+"/640x0/https://x/img.png", got)
}

func TestOptimizeImageURLIsPure(t *testing.T) {
	first := OptimizeImageURL("https://proxy.example", "https://x/a.png", ImageOptions{Width: 200, Height: 100})
	second := OptimizeImageURL("https://proxy.example", "https://x/a.png", ImageOptions{Width: 200, Height: 100})
	assert.Equal(t, first, second)
	assert.Equal(t, "https://proxy.example/200x100/https://x/a.png", first)
}

func TestOptimizeImageURLInvalidInput(t *testing.T) {
	// unparsable and relative urls are returned unchanged
	assert.Equal(t, "://broken", OptimizeImageURL("https://proxy.example", "://broken", ImageOptions{}))
	assert.Equal(t, "/relative/path.png", OptimizeImageURL("https://proxy.example", "/relative/path.png", ImageOptions{}))
	assert.Equal(t, "", OptimizeImageURL("https://proxy.example", "", ImageOptions{}))
}
