// Package render turns workspace documents into HTML for the preview. Heading
// anchors come from the outline of the same text, and image references are
// resolved against the workspace.
package render

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/outline"
	"github.com/koen666/MarkTex/internal/snapshot"
	"github.com/koen666/MarkTex/internal/vfs"
)

// MissingClass marks images whose reference did not resolve.
const MissingClass = "missing-asset"

// Resolver finds the workspace file a reference points at.
type Resolver interface {
	Resolve(ref string) (vfs.Record, bool)
}

// Renderer converts markdown to HTML.
type Renderer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	resolver Resolver
	assetURL func(vfs.Record) string
	style    string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAssetURL sets how a resolved binary asset is linked.
func WithAssetURL(fn func(vfs.Record) string) Option {
	return func(r *Renderer) { r.assetURL = fn }
}

// InlineAssets embeds resolved images as data URLs, for output that must stand alone.
func InlineAssets(fetch func(id string) ([]byte, string, error)) Option {
	return WithAssetURL(func(rec vfs.Record) string {
		data, mime, err := fetch(rec.ID)
		if err != nil {
			return ""
		}
		return snapshot.Encode(data, mime)
	})
}

// WithCodeStyle picks the chroma style used for fenced code blocks.
func WithCodeStyle(name string) Option {
	return func(r *Renderer) { r.style = name }
}

// RawURL links an asset through the preview server's /raw/ route.
func RawURL(rec vfs.Record) string {
	segments := strings.Split(rec.ID, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/raw/" + strings.Join(segments, "/")
}

// New creates a Renderer resolving images through resolver.
func New(resolver Resolver, opts ...Option) *Renderer {
	r := &Renderer{resolver: resolver, assetURL: RawURL, style: DefaultCodeStyle}
	for _, opt := range opts {
		opt(r)
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, emoji.Emoji),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&imageResolver{r: r}, 500),
				util.Prioritized(headingAnchors{}, 600),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(newCodeRenderer(r.style), 200)),
		),
	)
	r.policy = Policy()
	return r
}

// Render converts a document to sanitized HTML. Heading ids are taken from
// outline.Extract on the same text.
func (r *Renderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", errors.NewInternal(err)
	}
	return string(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// headingAnchors gives each heading the id the outline assigns to its source
// line. Headings the outline does not list (setext, indented, nested in
// blocks) get no id.
type headingAnchors struct{}

func (headingAnchors) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	ids := make(map[int]string)
	for _, h := range outline.Flatten(outline.Extract(string(source))) {
		ids[h.Line] = h.ID
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		line := bytes.Count(source[:h.Lines().At(0).Start], []byte("\n"))
		if id, found := ids[line]; found {
			h.SetAttributeString("id", []byte(id))
		}
		return ast.WalkSkipChildren, nil
	})
}

type imageResolver struct {
	r *Renderer
}

func (t *imageResolver) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		img, ok := n.(*ast.Image)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if isExternal(dest) {
			return ast.WalkContinue, nil
		}
		rec, found := t.r.resolver.Resolve(dest)
		if !found {
			img.SetAttributeString("class", []byte(MissingClass))
			return ast.WalkContinue, nil
		}
		if rec.IsBinary() {
			if u := t.r.assetURL(rec); u != "" {
				img.Destination = []byte(u)
			}
		}
		return ast.WalkContinue, nil
	})
}

func isExternal(dest string) bool {
	lower := strings.ToLower(dest)
	for _, prefix := range []string{"http:", "https:", "data:", "//"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
