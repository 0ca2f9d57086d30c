package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/outline"
	"github.com/koen666/MarkTex/internal/vfs"
	"github.com/koen666/MarkTex/internal/workspace"
)

func sessionWithImage(t *testing.T) *workspace.Session {
	t.Helper()
	s := workspace.New(blob.NewStore())
	_, err := s.Upload([]workspace.Upload{{Name: "chart one.png", MIME: "image/png", Data: []byte("png")}})
	require.NoError(t, err)
	return s
}

func TestRender_AnchorsMatchOutline(t *testing.T) {
	doc := strings.Join([]string{
		"# Intro",
		"text",
		"## Details *here*",
		"```",
		"# not a heading",
		"```",
		"# Intro",
		"### Intro",
		"# 中文 标题",
		"# !!!",
	}, "\n")

	html, err := New(workspace.New(blob.NewStore())).Render(doc)
	require.NoError(t, err)

	headings := outline.Flatten(outline.Extract(doc))
	require.Len(t, headings, 6)
	for _, h := range headings {
		require.Contains(t, html, fmt.Sprintf(`id="%s"`, h.ID), h.Text)
	}
	require.Contains(t, html, `<h1 id="intro">Intro</h1>`)
	require.Contains(t, html, `<h1 id="intro-2">Intro</h1>`)
	require.Contains(t, html, `<h3 id="intro-3">Intro</h3>`)
}

func TestRender_OnlyOutlinedHeadingsGetAnchors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
		skip string
	}{
		{"setext before atx", "Setup\n=====\n\n# Setup", `<h1 id="setup">Setup</h1>`, `<h1>Setup</h1>`},
		{"setext level two", "Usage\n-----\n\n## Usage", `<h2 id="usage">Usage</h2>`, `<h2>Usage</h2>`},
		{"indented atx", " # Indented\n# Indented", `<h1 id="indented">Indented</h1>`, `<h1>Indented</h1>`},
		{"heading in blockquote", "> # Quoted\n\n# Quoted", `<h1 id="quoted">Quoted</h1>`, `<h1>Quoted</h1>`},
	}
	r := New(workspace.New(blob.NewStore()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.Render(tt.doc)
			require.NoError(t, err)

			headings := outline.Flatten(outline.Extract(tt.doc))
			require.Len(t, headings, 1)
			require.Contains(t, html, tt.want)
			require.Contains(t, html, tt.skip)
			require.Equal(t, 1, strings.Count(html, "id="), html)
			require.NotContains(t, html, headings[0].ID+"-2")
		})
	}
}

func TestRender_SlugsResetPerCall(t *testing.T) {
	r := New(workspace.New(blob.NewStore()))

	for i := 0; i < 2; i++ {
		html, err := r.Render("# Intro")
		require.NoError(t, err)
		require.Contains(t, html, `id="intro"`)
	}
}

func TestRender_ResolvesImages(t *testing.T) {
	r := New(sessionWithImage(t))

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"asset path", "![c](assets/chart%20one.png)", `src="/raw/assets/chart%20one.png"`},
		{"bare name", "![c](<chart one.png>)", `src="/raw/assets/chart%20one.png"`},
		{"case-insensitive", "![c](<CHART ONE.png>)", `src="/raw/assets/chart%20one.png"`},
		{"external untouched", "![c](https://example.com/x.png)", `src="https://example.com/x.png"`},
		{"missing", "![c](nope.png)", `class="missing-asset"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.Render(tt.src)
			require.NoError(t, err)
			require.Contains(t, html, tt.want)
		})
	}
}

func TestRender_InlineAssets(t *testing.T) {
	s := sessionWithImage(t)
	r := New(s, InlineAssets(s.Asset))

	html, err := r.Render("![c](<chart one.png>)")
	require.NoError(t, err)
	require.Contains(t, html, `src="data:image/png;base64,cG5n"`)
}

func TestRender_TextReferenceKeepsDestination(t *testing.T) {
	s := workspace.New(blob.NewStore())
	r := New(s)

	html, err := r.Render("![m](" + vfs.MainID + ")")
	require.NoError(t, err)
	require.Contains(t, html, `src="main.md"`)
}

func TestRender_GFM(t *testing.T) {
	html, err := New(workspace.New(blob.NewStore())).Render("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~old~~")
	require.NoError(t, err)
	require.Contains(t, html, "<table>")
	require.Contains(t, html, "<del>old</del>")
}

func TestRawURL(t *testing.T) {
	require.Equal(t, "/raw/assets/a%20b.png", RawURL(vfs.Record{ID: "assets/a b.png"}))
}

func TestRender_SanitizesRawHTML(t *testing.T) {
	r := New(workspace.New(blob.NewStore()))

	html, err := r.Render("hello <script>alert(1)</script>\n\n<a href=\"javascript:alert(1)\" onclick=\"x()\">x</a>")
	require.NoError(t, err)
	require.NotContains(t, html, "<script")
	require.NotContains(t, html, "javascript:")
	require.NotContains(t, html, "onclick")
	require.Contains(t, html, "hello")
}

func TestRender_KeepsNonASCIIAnchors(t *testing.T) {
	html, err := New(workspace.New(blob.NewStore())).Render("# 中文 标题")
	require.NoError(t, err)
	require.Contains(t, html, `id="中文-标题"`)
}

func TestRender_Emoji(t *testing.T) {
	html, err := New(workspace.New(blob.NewStore())).Render("done :smile:")
	require.NoError(t, err)
	require.NotContains(t, html, ":smile:")
}

func TestRender_HighlightsKnownLanguages(t *testing.T) {
	r := New(workspace.New(blob.NewStore()))

	html, err := r.Render("```go\nfunc main() {}\n```")
	require.NoError(t, err)
	require.Contains(t, html, `class="chroma"`)
	require.Contains(t, html, "main")

	html, err = r.Render("```\n<b>plain</b>\n```")
	require.NoError(t, err)
	require.Contains(t, html, "<pre><code>&lt;b&gt;plain&lt;/b&gt;")
}

func TestCodeCSS(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, CodeCSS(&buf, DefaultCodeStyle))
	require.Contains(t, buf.String(), ".chroma")
}
