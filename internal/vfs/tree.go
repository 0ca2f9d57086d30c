package vfs

import (
	"github.com/gobwas/glob"

	"github.com/koen666/MarkTex/internal/errors"
)

const noParent = -1

// slot is one arena cell. Folder-only and file-only fields are never both in use:
// kind decides which half is meaningful.
type slot struct {
	id       string
	name     string
	kind     Kind
	parent   int
	content  string // file
	binRef   string // file
	children []int  // folder
}

// Tree stores nodes in a flat arena addressed by stable slot indexes.
// index maps every live id to its slot, which is what keeps ids unique.
// Tree is not safe for concurrent use; workspace.Session serializes access.
type Tree struct {
	slots []slot
	free  []int
	index map[string]int
	roots []int
}

// Entry is a flat view of one node produced by Walk.
type Entry struct {
	ID    string
	Name  string
	Kind  Kind
	Depth int
}

// NewTree builds a tree from a forest of nodes.
// It fails if any id appears twice.
func NewTree(nodes ...Node) (*Tree, error) {
	t := &Tree{index: make(map[string]int)}
	for _, n := range nodes {
		if err := t.Insert("", n); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.index)
}

// Has reports whether id exists.
func (t *Tree) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Lookup returns a detached copy of the node at id.
func (t *Tree) Lookup(id string) (Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.materialize(i), true
}

// Parent returns the id of the folder containing id, or "" for roots.
func (t *Tree) Parent(id string) (string, bool) {
	i, ok := t.index[id]
	if !ok {
		return "", false
	}
	if p := t.slots[i].parent; p != noParent {
		return t.slots[p].id, true
	}
	return "", true
}

// Insert adds n (and its subtree) under parentID, or at the root when parentID is "".
// The insert is all-or-nothing: no slot is allocated if any id collides.
func (t *Tree) Insert(parentID string, n Node) error {
	parent := noParent
	if parentID != "" {
		p, ok := t.index[parentID]
		if !ok {
			return errors.NewNotFound(parentID)
		}
		if t.slots[p].kind != KindFolder {
			return errors.NewInvalidRequest("parent is not a folder: " + parentID)
		}
		parent = p
	}

	seen := make(map[string]bool)
	if err := t.checkIDs(n, seen); err != nil {
		return err
	}

	i := t.insert(parent, n)
	if parent == noParent {
		t.roots = append(t.roots, i)
	} else {
		t.slots[parent].children = append(t.slots[parent].children, i)
	}
	return nil
}

func (t *Tree) checkIDs(n Node, seen map[string]bool) error {
	id := IDOf(n)
	if id == "" {
		return errors.NewInvalidRequest("node id must not be empty")
	}
	if t.Has(id) || seen[id] {
		return errors.NewAlreadyExists(id)
	}
	seen[id] = true
	if f, ok := n.(*Folder); ok {
		for _, c := range f.Children {
			if err := t.checkIDs(c, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tree) insert(parent int, n Node) int {
	s := slot{id: IDOf(n), name: NameOf(n), kind: n.Kind(), parent: parent}
	if f, ok := n.(*File); ok {
		s.content = f.Content
		s.binRef = f.BinaryRef
	}
	i := t.alloc(s)
	t.index[s.id] = i

	if f, ok := n.(*Folder); ok {
		children := make([]int, 0, len(f.Children))
		for _, c := range f.Children {
			children = append(children, t.insert(i, c))
		}
		t.slots[i].children = children
	}
	return i
}

func (t *Tree) alloc(s slot) int {
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[i] = s
		return i
	}
	t.slots = append(t.slots, s)
	return len(t.slots) - 1
}

// SetContent replaces the payload of the file at id.
func (t *Tree) SetContent(id, content, binaryRef string) error {
	i, ok := t.index[id]
	if !ok {
		return errors.NewNotFound(id)
	}
	if t.slots[i].kind != KindFile {
		return errors.NewNotADocument(id)
	}
	t.slots[i].content = content
	t.slots[i].binRef = binaryRef
	return nil
}

// Rename changes the display name of id and moves it to the id derived from the
// new last segment. Children keep their ids. Returns the new id.
func (t *Tree) Rename(id, newName string) (string, error) {
	i, ok := t.index[id]
	if !ok {
		return "", errors.NewNotFound(id)
	}
	newID := RenamedID(id, newName)
	if newID != id && t.Has(newID) {
		return "", errors.NewAlreadyExists(newID)
	}
	delete(t.index, id)
	t.slots[i].id = newID
	t.slots[i].name = newName
	t.index[newID] = i
	return newID, nil
}

// Remove deletes id and its whole subtree, returning every removed id.
func (t *Tree) Remove(id string) ([]string, error) {
	i, ok := t.index[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}

	if p := t.slots[i].parent; p == noParent {
		t.roots = without(t.roots, i)
	} else {
		t.slots[p].children = without(t.slots[p].children, i)
	}

	var removed []string
	t.release(i, &removed)
	return removed, nil
}

func (t *Tree) release(i int, removed *[]string) {
	s := t.slots[i]
	for _, c := range s.children {
		t.release(c, removed)
	}
	*removed = append(*removed, s.id)
	delete(t.index, s.id)
	t.slots[i] = slot{parent: noParent}
	t.free = append(t.free, i)
}

func without(list []int, v int) []int {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Nodes returns a detached copy of the whole forest in order.
func (t *Tree) Nodes() []Node {
	nodes := make([]Node, 0, len(t.roots))
	for _, i := range t.roots {
		nodes = append(nodes, t.materialize(i))
	}
	return nodes
}

func (t *Tree) materialize(i int) Node {
	s := t.slots[i]
	b := Base{ID: s.id, Name: s.name}
	if s.kind == KindFile {
		return &File{Base: b, Content: s.content, BinaryRef: s.binRef}
	}
	children := make([]Node, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, t.materialize(c))
	}
	return &Folder{Base: b, Children: children}
}

// Walk visits every node in pre-order.
func (t *Tree) Walk(fn func(Entry)) {
	var visit func(i, depth int)
	visit = func(i, depth int) {
		s := t.slots[i]
		fn(Entry{ID: s.id, Name: s.name, Kind: s.kind, Depth: depth})
		for _, c := range s.children {
			visit(c, depth+1)
		}
	}
	for _, i := range t.roots {
		visit(i, 0)
	}
}

// Files returns every file in pre-order.
func (t *Tree) Files() []*File {
	var files []*File
	t.Walk(func(e Entry) {
		if e.Kind != KindFile {
			return
		}
		s := t.slots[t.index[e.ID]]
		files = append(files, &File{Base: Base{ID: s.id, Name: s.name}, Content: s.content, BinaryRef: s.binRef})
	})
	return files
}

// Match returns the ids matching a glob pattern in pre-order.
// "*" stays within one path segment, "**" crosses segments.
func (t *Tree) Match(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid pattern: " + err.Error())
	}
	var ids []string
	t.Walk(func(e Entry) {
		if g.Match(e.ID) {
			ids = append(ids, e.ID)
		}
	})
	return ids, nil
}
