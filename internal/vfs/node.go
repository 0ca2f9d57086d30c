// Package vfs is the in-memory workspace namespace: a tree of documents, folders and
// binary assets plus a flat registry used to resolve references without walking it.
package vfs

import "strings"

// MainID is the id of the main document. It always exists and cannot be deleted.
const MainID = "main.md"

// AssetsID is the folder uploads land in.
const AssetsID = "assets"

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Node is either a *File or a *Folder.
type Node interface {
	base() Base
	Kind() Kind
}

// Base holds the fields shared by both node variants.
type Base struct {
	ID   string
	Name string
}

func (b Base) base() Base { return b }

// File is a leaf: a markdown document or a binary asset.
// For assets Content holds the ephemeral handle and BinaryRef repeats it.
type File struct {
	Base
	Content   string
	BinaryRef string
}

// Kind implements Node.
func (*File) Kind() Kind { return KindFile }

// IsBinary reports whether the file is backed by the object store.
func (f *File) IsBinary() bool { return f.BinaryRef != "" }

// Folder holds an ordered list of children.
type Folder struct {
	Base
	Children []Node
}

// Kind implements Node.
func (*Folder) Kind() Kind { return KindFolder }

// IDOf returns the id of any node.
func IDOf(n Node) string { return n.base().ID }

// NameOf returns the display name of any node.
func NameOf(n Node) string { return n.base().Name }

// JoinID builds the id of a node named name inside parentID ("" for the root).
func JoinID(parentID, name string) string {
	if parentID == "" {
		return name
	}
	return parentID + "/" + name
}

// BaseName returns the last path segment of an id.
func BaseName(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// RenamedID replaces the last path segment of id with newName.
func RenamedID(id, newName string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[:i+1] + newName
	}
	return newName
}
