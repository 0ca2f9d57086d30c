package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/render"
	"github.com/koen666/MarkTex/internal/thumb"
)

// maxFormMemory is how much of a multipart upload is held in memory before
// spilling to temp files.
const maxFormMemory = 32 << 20

// Handlers contains HTTP route handlers for the preview UI and JSON API.
type Handlers struct {
	env      *ops.Env
	cfg      *config.Config
	renderer *Renderer
	thumbs   *thumb.Cache
}

// HandleIndex handles GET / by redirecting to the current document.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, routeURL("/docs/", h.env.Session.Current()), http.StatusFound)
}

// HandleDocument handles GET /docs/{id...}: the tree, the outline and the
// rendered document side by side.
func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.HandleIndex(w, r)
		return
	}

	doc, err := ops.Read(h.env, ops.ReadInput{ID: id})
	if err != nil {
		// Images open as themselves
		if errors.Is(err, errors.ErrNotADocument) {
			if rec, ok := h.env.Session.Resolve(id); ok && rec.ID == id && rec.IsBinary() {
				http.Redirect(w, r, routeURL("/raw/", id), http.StatusFound)
				return
			}
		}
		h.renderer.renderError(w, r, err)
		return
	}
	rendered, err := ops.Render(h.env, ops.RenderInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	headings, err := ops.Outline(h.env, ops.OutlineInput{ID: id, Flat: true})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	tree, err := ops.Tree(h.env, ops.TreeInput{})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "document", DocumentPageData{
		PageData: PageData{
			Title:   id,
			Version: h.renderer.version,
		},
		ID:       id,
		Tree:     tree.Items,
		Headings: headings.Headings,
		HTML:     template.HTML(rendered.HTML), // sanitized by the renderer
		Chars:    utf8.RuneCountInString(doc.Content),
		Autosave: h.env.Manager.Status(),
	})
}

// HandleRaw handles GET /raw/{id...}: the bytes of an image asset.
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.env.Session.Asset(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	// SVG is a document format; never let one run script
	if strings.HasPrefix(mime, "image/svg") {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	}
	_, _ = w.Write(data)
}

// HandleThumb handles GET /thumb/{id...}: a JPEG thumbnail of an image asset.
// Formats that cannot be decoded fall back to the original bytes.
func (h *Handlers) HandleThumb(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := h.env.Session.Resolve(id)
	if !ok || rec.ID != id || !rec.IsBinary() {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	t, err := h.thumbs.Get(rec.BinaryRef, func() ([]byte, error) {
		data, _, err := h.env.Session.Asset(id)
		return data, err
	})
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			h.renderer.renderError(w, r, err)
			return
		}
		logging.WithContext(r.Context()).Debug("thumbnail unavailable",
			zap.String("id", id), zap.Error(err))
		http.Redirect(w, r, routeURL("/raw/", id), http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(t.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(t.Data)
}

// HandleCodeCSS handles GET /static/code.css: the stylesheet for highlighted
// code blocks.
func (h *Handlers) HandleCodeCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := render.CodeCSS(&buf, render.DefaultCodeStyle); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}

// JSON API

// HandleTree handles GET /api/tree?match=.
func (h *Handlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)(ops.Tree(h.env, ops.TreeInput{Match: r.URL.Query().Get("match")}))
}

// HandleRead handles GET /api/files/{id...}.
func (h *Handlers) HandleRead(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)(ops.Read(h.env, ops.ReadInput{ID: r.PathValue("id")}))
}

// writeBody is the JSON form of a PUT /api/files body.
type writeBody struct {
	Content *string `json:"content"`
}

// HandleWrite handles PUT /api/files/{id...}. The body is either the raw
// document text or {"content": "..."} with a JSON content type.
func (h *Handlers) HandleWrite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxAssetBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(
				fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.renderer.renderError(w, r, errors.NewInvalidRequest("failed to read body"))
		return
	}

	content := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var wb writeBody
		if err := json.Unmarshal(body, &wb); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
			return
		}
		if wb.Content == nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("content is required"))
			return
		}
		content = *wb.Content
	}
	if !utf8.ValidString(content) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("document must be UTF-8 text"))
		return
	}

	h.respond(w, r, http.StatusOK)(ops.Write(h.env, ops.WriteInput{ID: r.PathValue("id"), Content: content}))
}

// HandleDelete handles DELETE /api/files/{id...}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// Collect handles first; the records are gone once Delete returns
	binaryRefs := make(map[string]string)
	for _, e := range h.env.Session.Entries() {
		if e.ID == id || strings.HasPrefix(e.ID, id+"/") {
			if rec, ok := h.env.Session.Resolve(e.ID); ok && rec.ID == e.ID && rec.IsBinary() {
				binaryRefs[e.ID] = rec.BinaryRef
			}
		}
	}

	out, err := ops.Delete(h.env, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	for _, removed := range out.Deleted {
		if ref, ok := binaryRefs[removed]; ok {
			h.thumbs.Forget(ref)
		}
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleSelect handles POST /api/select/{id...}.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("id is required"))
		return
	}
	h.respond(w, r, http.StatusOK)(ops.Select(h.env, ops.SelectInput{ID: id}))
}

// HandleUpload handles POST /api/uploads: a multipart form with one or more
// "files" parts.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(ops.MaxUploadItems)*h.cfg.MaxAssetBytes + maxFormMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid multipart upload: "+err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) > ops.MaxUploadItems {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(
			fmt.Sprintf("at most %d files per upload", ops.MaxUploadItems)))
		return
	}

	items := make([]ops.UploadItem, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("failed to read "+fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("failed to read "+fh.Filename))
			return
		}
		items = append(items, ops.UploadItem{
			Name: fh.Filename,
			MIME: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}

	out, err := ops.Upload(h.env, ops.UploadInput{Items: items})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if len(out.Created) > 0 {
		status = http.StatusCreated
	}
	renderJSON(w, status, out)
}

// HandleOutline handles GET /api/outline/{id...}?flat=.
func (h *Handlers) HandleOutline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)(ops.Outline(h.env, ops.OutlineInput{
		ID:   r.PathValue("id"),
		Flat: parseBoolParam(r, "flat"),
	}))
}

// HandleRender handles GET /api/render/{id...}?inline=.
func (h *Handlers) HandleRender(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)(ops.Render(h.env, ops.RenderInput{
		ID:     r.PathValue("id"),
		Inline: parseBoolParam(r, "inline"),
	}))
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)(ops.Status(r.Context(), h.env))
}

// respond returns a sink for an operation's (result, error) pair.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int) func(any, error) {
	return func(result any, err error) {
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		renderJSON(w, status, result)
	}
}

// parseBoolParam parses a boolean query parameter, treating anything
// unparseable as false.
func parseBoolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
