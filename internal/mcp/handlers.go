package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/vfs"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env, cfg *config.Config) *Handlers {
	return &Handlers{env: env, cfg: cfg}
}

// Request types for each tool

// TreeRequest represents the arguments for tree.
type TreeRequest struct {
	Match string `json:"match,omitempty"`
}

// IDRequest represents the arguments for tools addressing one entry.
type IDRequest struct {
	ID string `json:"id,omitempty"`
}

// WriteRequest represents the arguments for write.
type WriteRequest struct {
	ID      string  `json:"id,omitempty"`
	Content *string `json:"content"`
}

// CreateRequest represents the arguments for create.
type CreateRequest struct {
	Parent  string `json:"parent,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
}

// RenameRequest represents the arguments for rename.
type RenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UploadRequest represents the arguments for upload.
type UploadRequest struct {
	Items []UploadItem `json:"items"`
}

// UploadItem is one image in an upload. Data is base64 on the wire.
type UploadItem struct {
	Name string `json:"name"`
	MIME string `json:"mime,omitempty"`
	Data []byte `json:"data"`
}

// OutlineRequest represents the arguments for outline.
type OutlineRequest struct {
	ID   string `json:"id,omitempty"`
	Flat bool   `json:"flat,omitempty"`
}

// RenderRequest represents the arguments for render.
type RenderRequest struct {
	ID     string `json:"id,omitempty"`
	Inline bool   `json:"inline,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleTree handles the tree tool call.
func (h *Handlers) HandleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TreeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Tree(h.env, ops.TreeInput{Match: input.Match}))
}

// HandleRead handles the read tool call.
func (h *Handlers) HandleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Read(h.env, ops.ReadInput{ID: input.ID}))
}

// HandleSelect handles the select tool call.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	return respond(ops.Select(h.env, ops.SelectInput{ID: input.ID}))
}

// HandleWrite handles the write tool call.
func (h *Handlers) HandleWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WriteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	// An empty document is valid; a missing content argument is not
	if input.Content == nil {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}
	return respond(ops.Write(h.env, ops.WriteInput{ID: input.ID, Content: *input.Content}))
}

// HandleCreate handles the create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Create(h.env, ops.CreateInput{
		Parent:  input.Parent,
		Name:    input.Name,
		Type:    vfs.Kind(input.Type),
		Content: input.Content,
	}))
}

// HandleRename handles the rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Rename(h.env, ops.RenameInput{ID: input.ID, Name: input.Name}))
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Delete(h.env, ops.DeleteInput{ID: input.ID}))
}

// HandleUpload handles the upload tool call.
func (h *Handlers) HandleUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	items := make([]ops.UploadItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = ops.UploadItem{Name: item.Name, MIME: item.MIME, Data: item.Data}
	}
	return respond(ops.Upload(h.env, ops.UploadInput{Items: items}))
}

// HandleOutline handles the outline tool call.
func (h *Handlers) HandleOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OutlineRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Outline(h.env, ops.OutlineInput{ID: input.ID, Flat: input.Flat}))
}

// HandleRender handles the render tool call.
func (h *Handlers) HandleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Render(h.env, ops.RenderInput{ID: input.ID, Inline: input.Inline}))
}

// HandleStatus handles the status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ops.Status(ctx, h.env))
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Export(ctx, h.env, h.cfg, ops.ExportInput{Path: input.Path, Name: input.Name}))
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return respond(ops.Import(ctx, h.env, h.cfg, ops.ImportInput{Path: input.Path}))
}

// Result helpers

// respond turns an operation's result into a tool result.
func respond[T any](result T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from any error. INTERNAL errors and
// errors outside the workspace taxonomy carry no details, so file paths and
// driver messages stay out of client output.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var wsErr *errors.WorkspaceError
	if stderrors.As(err, &wsErr) && wsErr.Code != errors.ErrInternal {
		msg := wsErr.Message
		if err != error(wsErr) {
			msg = err.Error() // keep the wrapping context
		}
		errorObj := map[string]any{
			"code":    wsErr.Code,
			"message": msg,
			"status":  wsErr.Status,
		}
		if wsErr.Details != nil {
			errorObj["details"] = wsErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
