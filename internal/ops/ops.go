// Package ops implements the workspace operations shared by the CLI, the MCP
// server and the preview server.
package ops

import (
	"strings"

	"github.com/koen666/MarkTex/internal/persist"
	"github.com/koen666/MarkTex/internal/render"
	"github.com/koen666/MarkTex/internal/workspace"
)

// Limits
const (
	MaxUploadItems = 20
)

// Env bundles what operations act on.
type Env struct {
	Session  *workspace.Session
	Manager  *persist.Manager
	Renderer *render.Renderer
}

// NewEnv wires a renderer to the session.
func NewEnv(session *workspace.Session, manager *persist.Manager, opts ...render.Option) *Env {
	return &Env{
		Session:  session,
		Manager:  manager,
		Renderer: render.New(session, opts...),
	}
}

// documentID defaults an empty id to the current document.
func (e *Env) documentID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return e.Session.Current()
}
