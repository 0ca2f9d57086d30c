package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koen666/MarkTex/internal/errors"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTree(
		&File{Base: Base{ID: MainID, Name: MainID}, Content: "# Main"},
		&Folder{Base: Base{ID: "docs", Name: "docs"}, Children: []Node{
			&File{Base: Base{ID: "docs/a.md", Name: "a.md"}, Content: "a"},
			&Folder{Base: Base{ID: "docs/deep", Name: "deep"}, Children: []Node{
				&File{Base: Base{ID: "docs/deep/b.md", Name: "b.md"}, Content: "b"},
			}},
		}},
		&Folder{Base: Base{ID: AssetsID, Name: AssetsID}},
	)
	require.NoError(t, err)
	return tree
}

func ids(tree *Tree) []string {
	var out []string
	tree.Walk(func(e Entry) { out = append(out, e.ID) })
	return out
}

func TestNewTree_DuplicateID(t *testing.T) {
	_, err := NewTree(
		&File{Base: Base{ID: "x", Name: "x"}},
		&Folder{Base: Base{ID: "f", Name: "f"}, Children: []Node{
			&File{Base: Base{ID: "x", Name: "x"}},
		}},
	)
	require.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestTree_WalkOrderAndDepth(t *testing.T) {
	tree := sampleTree(t)

	var depths []int
	tree.Walk(func(e Entry) { depths = append(depths, e.Depth) })

	require.Equal(t, []string{MainID, "docs", "docs/a.md", "docs/deep", "docs/deep/b.md", AssetsID}, ids(tree))
	require.Equal(t, []int{0, 0, 1, 1, 2, 0}, depths)
	require.Equal(t, 6, tree.Len())
}

func TestTree_InsertIsAtomic(t *testing.T) {
	tree := sampleTree(t)

	err := tree.Insert("docs", &Folder{Base: Base{ID: "docs/new", Name: "new"}, Children: []Node{
		&File{Base: Base{ID: "docs/new/c.md", Name: "c.md"}},
		&File{Base: Base{ID: MainID, Name: MainID}},
	}})
	require.True(t, errors.Is(err, errors.ErrAlreadyExists))
	require.False(t, tree.Has("docs/new"))
	require.False(t, tree.Has("docs/new/c.md"))
	require.Equal(t, 6, tree.Len())
}

func TestTree_InsertErrors(t *testing.T) {
	tree := sampleTree(t)

	err := tree.Insert("missing", &File{Base: Base{ID: "missing/x", Name: "x"}})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	err = tree.Insert(MainID, &File{Base: Base{ID: "main.md/x", Name: "x"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	err = tree.Insert("", &File{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestTree_SetContent(t *testing.T) {
	tree := sampleTree(t)

	require.NoError(t, tree.SetContent("docs/a.md", "changed", ""))
	n, ok := tree.Lookup("docs/a.md")
	require.True(t, ok)
	require.Equal(t, "changed", n.(*File).Content)

	require.True(t, errors.Is(tree.SetContent("docs", "x", ""), errors.ErrNotADocument))
	require.True(t, errors.Is(tree.SetContent("nope", "x", ""), errors.ErrNotFound))
}

func TestTree_LookupIsDetached(t *testing.T) {
	tree := sampleTree(t)

	n, _ := tree.Lookup("docs/a.md")
	n.(*File).Content = "mutated"

	again, _ := tree.Lookup("docs/a.md")
	require.Equal(t, "a", again.(*File).Content)
}

func TestTree_Rename(t *testing.T) {
	tree := sampleTree(t)

	newID, err := tree.Rename("docs/a.md", "z.md")
	require.NoError(t, err)
	require.Equal(t, "docs/z.md", newID)
	require.False(t, tree.Has("docs/a.md"))

	n, ok := tree.Lookup("docs/z.md")
	require.True(t, ok)
	require.Equal(t, "z.md", NameOf(n))

	parent, ok := tree.Parent("docs/z.md")
	require.True(t, ok)
	require.Equal(t, "docs", parent)

	_, err = tree.Rename("docs/z.md", "deep")
	require.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestTree_RemoveCascades(t *testing.T) {
	tree := sampleTree(t)

	removed, err := tree.Remove("docs")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"docs", "docs/a.md", "docs/deep", "docs/deep/b.md"}, removed)
	require.Equal(t, []string{MainID, AssetsID}, ids(tree))

	// Freed slots are reused without disturbing order
	require.NoError(t, tree.Insert(AssetsID, &File{Base: Base{ID: "assets/p.png", Name: "p.png"}, Content: "blob:1", BinaryRef: "blob:1"}))
	require.NoError(t, tree.Insert("", &File{Base: Base{ID: "notes.md", Name: "notes.md"}}))
	require.Equal(t, []string{MainID, AssetsID, "assets/p.png", "notes.md"}, ids(tree))

	_, err = tree.Remove("docs")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTree_FilesAndNodes(t *testing.T) {
	tree := sampleTree(t)

	var fileIDs []string
	for _, f := range tree.Files() {
		fileIDs = append(fileIDs, f.ID)
	}
	require.Equal(t, []string{MainID, "docs/a.md", "docs/deep/b.md"}, fileIDs)

	nodes := tree.Nodes()
	require.Len(t, nodes, 3)
	docs := nodes[1].(*Folder)
	require.Len(t, docs.Children, 2)
	require.Equal(t, KindFolder, docs.Children[1].Kind())
}

func TestTree_Match(t *testing.T) {
	tree := sampleTree(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.md", []string{MainID}},
		{"docs/*", []string{"docs/a.md", "docs/deep"}},
		{"**.md", []string{MainID, "docs/a.md", "docs/deep/b.md"}},
		{"docs/{a,z}.md", []string{"docs/a.md"}},
		{"nothing*", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := tree.Match(tt.pattern)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestIDHelpers(t *testing.T) {
	require.Equal(t, "a.md", JoinID("", "a.md"))
	require.Equal(t, "assets/a.png", JoinID(AssetsID, "a.png"))
	require.Equal(t, "b.md", BaseName("x/y/b.md"))
	require.Equal(t, "b.md", BaseName("b.md"))
	require.Equal(t, "x/y/c.md", RenamedID("x/y/b.md", "c.md"))
	require.Equal(t, "c.md", RenamedID("b.md", "c.md"))
}
