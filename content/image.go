package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultProxyHost is the image resizing proxy used when none is configured.
const DefaultProxyHost = "https://images.hive.blog"

var (
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(\s*(https?://[^\s)]+)\s*\)`)
	htmlImageRe     = regexp.MustCompile(`(?i)<img[^>]+src=["']?(https?://[^"'\s>]+)["']?`)
	bareImageRe     = regexp.MustCompile(`https?://\S+\.(?i:png|jpe?g|gif|webp)`)
)

// ExtractImageFromContent finds the first image url in a raw body without
// invoking the renderer. This is the cheap fast path used when only a
// thumbnail is needed; it must stay independent of Render so it can run
// synchronously on large bodies.
func ExtractImageFromContent(body string) string {
	if match := markdownImageRe.FindStringSubmatch(body); match != nil {
		return match[1]
	}
	if match := htmlImageRe.FindStringSubmatch(body); match != nil {
		return match[1]
	}
	if match := bareImageRe.FindString(body); match != "" {
		return match
	}
	return ""
}

// ImageOptions selects the resize target for OptimizeImageURL.
type ImageOptions struct {
	Width  int
	Height int
}

// DefaultImageOptions is the thumbnail size used across feed views.
var DefaultImageOptions = ImageOptions{Width: 640, Height: 0}

// OptimizeImageURL rewrites an image url to go through the resizing proxy:
// <proxyHost>/<width>x<height>/<cleanUrl>. The rewrite is pure: same input,
// same output, no side effects. An unparsable or non-absolute url is
// returned unchanged.
func OptimizeImageURL(proxyHost string, raw string, opts ImageOptions) string {
	if opts.Width == 0 {
		opts.Width = DefaultImageOptions.Width
	}
	if proxyHost == "" {
		proxyHost = DefaultProxyHost
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return raw
	}

	// Strip query and fragment so the proxy cache key is stable.
	u.RawQuery = ""
	u.Fragment = ""

	return fmt.Sprintf("%s/%dx%d/%s", strings.TrimRight(proxyHost, "/"), opts.Width, opts.Height, u.String())
}
