package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerptStripsMarkup(t *testing.T) {
	body := "# Heading\n\nSome **bold** text with ![img](https://x/a.png) and [a link](https://x)."
	got := Excerpt(body, 140)
	assert.Equal(t, "Heading Some bold text with and a link.", got)
}

func TestExcerptTruncatesOnWordBoundary(t *testing.T) {
	body := strings.Repeat("word ", 100)
	got := Excerpt(body, 20)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 21)
	assert.NotContains(t, got, "wor…")
}

func TestExcerptShortBody(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 140))
	assert.Equal(t, "", Excerpt("", 140))
}

func TestExcerptDropsBareURLs(t *testing.T) {
	got := Excerpt("check https://example.com/page out", 140)
	assert.Equal(t, "check out", got)
}
