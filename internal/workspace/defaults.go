package workspace

import (
	_ "embed"

	"github.com/koen666/MarkTex/internal/vfs"
)

//go:embed welcome.md
var welcome string

// WelcomeDocument is the content of main.md in a fresh workspace.
func WelcomeDocument() string {
	return welcome
}

// DefaultNodes returns the single-document workspace: main.md and an empty assets folder.
func DefaultNodes() []vfs.Node {
	return []vfs.Node{
		DefaultMain(),
		&vfs.Folder{Base: vfs.Base{ID: vfs.AssetsID, Name: vfs.AssetsID}},
	}
}

// DefaultMain returns a fresh main.md.
func DefaultMain() *vfs.File {
	return &vfs.File{Base: vfs.Base{ID: vfs.MainID, Name: vfs.MainID}, Content: welcome}
}
