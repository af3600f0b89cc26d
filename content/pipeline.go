package content

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hivereader/hivereader/utils"
	Logger "github.com/hivereader/hivereader/utils/log"
)

// fallbackMarkup is shown in place of a body the renderer cannot process.
// One bad post must never take the whole feed down with it.
const fallbackMarkup = `<p><em>This content could not be displayed.</em></p>`

// youtubeHosts is the allow-list of iframe hosts rewritten to the
// privacy-preserving embed host. Any other iframe passes through untouched.
var youtubeHosts = []string{"youtube.com", "www.youtube.com", "youtu.be"}

const noCookieHost = "www.youtube-nocookie.com"

// ImageRef is one image found in a rendered body, in document order.
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// RenderedContent is the ephemeral result of one Render call. It is never
// persisted and is recomputed on every render.
type RenderedContent struct {
	SanitizedHTML string     `json:"sanitized_html"`
	Images        []ImageRef `json:"images"`
	Title         string     `json:"title,omitempty"`
}

// RenderOptions tweaks one Render call.
type RenderOptions struct {
	// Origin is the serving origin passed to rewritten video embeds as the
	// "origin" playback parameter.
	Origin string
	// Title is carried through to the rendered result verbatim.
	Title string
}

// Pipeline turns raw untrusted markdown/HTML post bodies into sanitized,
// displayable fragments. Construct once with NewPipeline and share; it is
// safe for concurrent use.
type Pipeline struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewPipeline builds a pipeline with GitHub-flavored markdown extensions and
// a UGC sanitization policy extended to keep video iframes so they can be
// rewritten in post-processing.
func NewPipeline() *Pipeline {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("iframe")
	policy.AllowAttrs("src", "width", "height", "frameborder", "allowfullscreen").OnElements("iframe")

	return &Pipeline{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		sanitizer: policy,
	}
}

// Render converts a raw body into sanitized HTML, rewrites video embeds and
// extracts the ordered image list. Renderer failures degrade to a fixed
// fallback fragment rather than an error: the returned error is only set for
// post-processing failures that leave no usable markup at all.
func (p *Pipeline) Render(body string, opts RenderOptions) (*RenderedContent, error) {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(body), &buf); err != nil {
		Logger.Log.Warn("markdown renderer failed, serving fallback markup: ", err)
		return &RenderedContent{SanitizedHTML: fallbackMarkup, Title: opts.Title}, nil
	}

	sanitized := p.sanitizer.SanitizeBytes(buf.Bytes())

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sanitized))
	if err != nil {
		// Sanitized output should always parse; if it somehow doesn't, the
		// sanitized markup is still safe to serve as-is.
		Logger.Log.Warn("rendered fragment failed to parse: ", err)
		return &RenderedContent{SanitizedHTML: string(sanitized), Title: opts.Title}, nil
	}

	doc.Find("iframe").Each(func(i int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		if rewritten, ok := rewriteVideoEmbed(src, opts.Origin); ok {
			sel.SetAttr("src", rewritten)
		}
	})

	images := []ImageRef{}
	doc.Find("img").Each(func(i int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		alt, _ := sel.Attr("alt")
		images = append(images, ImageRef{Src: src, Alt: alt})
	})

	markup, err := doc.Find("body").Html()
	if err != nil {
		return nil, errors.Wrap(err, "fail to serialize rendered fragment")
	}

	return &RenderedContent{
		SanitizedHTML: markup,
		Images:        images,
		Title:         opts.Title,
	}, nil
}

// rewriteVideoEmbed rewrites a YouTube embed url to the no-cookie host and
// attaches playback parameters. Returns ok=false for anything that is not a
// well-formed YouTube url, malformed urls included: classification failures
// are "not a video embed", never an error.
func rewriteVideoEmbed(src string, origin string) (string, bool) {
	u, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if !utils.ContainsString(youtubeHosts, u.Hostname()) {
		return "", false
	}

	path := u.Path
	// youtu.be short links carry the video id as the whole path
	if u.Hostname() == "youtu.be" {
		path = "/embed" + u.Path
	} else if !strings.HasPrefix(path, "/embed/") {
		path = "/embed" + strings.TrimPrefix(path, "/watch")
	}

	query := u.Query()
	query.Set("playsinline", "1")
	query.Set("rel", "0")
	query.Set("enablejsapi", "1")
	if origin != "" {
		query.Set("origin", origin)
	}

	rewritten := url.URL{
		Scheme:   "https",
		Host:     noCookieHost,
		Path:     path,
		RawQuery: query.Encode(),
	}
	return rewritten.String(), true
}
