package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/koen666/MarkTex/internal/ops"
)

const idDescription = "Workspace id, e.g. \"main.md\" or \"notes/todo.md\". Defaults to the current document."

var treeToolDef = mcp.NewTool("workspace_tree",
	mcp.WithDescription("List the workspace tree in display order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("match",
		mcp.Description("Glob over ids. \"*\" stays within one path segment, \"**\" crosses segments, {a,b} alternates."),
	),
)

var readToolDef = mcp.NewTool("workspace_read",
	mcp.WithDescription("Read the text of a markdown document."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Description(idDescription)),
)

var selectToolDef = mcp.NewTool("workspace_select",
	mcp.WithDescription("Make a document the current one. Pending edits to the previous document are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id. Folders and image assets cannot be selected.")),
)

var writeToolDef = mcp.NewTool("workspace_write",
	mcp.WithDescription("Replace the full text of a document."),
	mcp.WithString("id", mcp.Description(idDescription)),
	mcp.WithString("content", mcp.Required(), mcp.Description("New markdown text.")),
)

var createToolDef = mcp.NewTool("workspace_create",
	mcp.WithDescription("Create a document or folder."),
	mcp.WithString("parent", mcp.Description("Parent folder id. Empty for the root.")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new entry, without slashes.")),
	mcp.WithString("type", mcp.Enum("file", "folder"), mcp.Description("Entry type. Defaults to file.")),
	mcp.WithString("content", mcp.Description("Initial text for a file.")),
)

var renameToolDef = mcp.NewTool("workspace_rename",
	mcp.WithDescription("Rename a document or folder. main.md cannot be renamed."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry to rename.")),
	mcp.WithString("name", mcp.Required(), mcp.Description("New last path segment.")),
)

var deleteToolDef = mcp.NewTool("workspace_delete",
	mcp.WithDescription("Delete a document, or a folder with everything in it. main.md cannot be deleted."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry to delete.")),
)

var uploadToolDef = mcp.NewTool("workspace_upload",
	mcp.WithDescription(fmt.Sprintf("Add images under assets/. Non-images and names already taken are skipped. At most %d items.", ops.MaxUploadItems)),
	mcp.WithArray("items",
		mcp.Required(),
		mcp.Description("Images to add."),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "File name, e.g. chart.png"},
				"mime": map[string]any{"type": "string", "description": "Media type. Detected from the name or data when omitted."},
				"data": map[string]any{"type": "string", "description": "Base64-encoded file contents."},
			},
			"required": []string{"name", "data"},
		}),
	),
)

var outlineToolDef = mcp.NewTool("workspace_outline",
	mcp.WithDescription("Extract the heading outline of a document. Ids match the anchors in rendered HTML."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Description(idDescription)),
	mcp.WithBoolean("flat", mcp.Description("List headings in order without nesting.")),
)

var renderToolDef = mcp.NewTool("workspace_render",
	mcp.WithDescription("Render a document to sanitized HTML."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Description(idDescription)),
	mcp.WithBoolean("inline", mcp.Description("Embed images as data URLs so the HTML stands alone.")),
)

var statusToolDef = mcp.NewTool("workspace_status",
	mcp.WithDescription("Report workspace counts, autosave state and the stored snapshot."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("workspace_export",
	mcp.WithDescription("Write the workspace, images included, to a .json file."),
	mcp.WithString("path", mcp.Description("Destination. Must be directly inside the exports directory or an allowed path.")),
	mcp.WithString("name", mcp.Description("File name prefix when path is omitted.")),
)

var importToolDef = mcp.NewTool("workspace_import",
	mcp.WithDescription("Replace the workspace with a previously exported .json file."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file to read.")),
)
