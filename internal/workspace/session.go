// Package workspace owns the live editing session: the file tree, the registry
// that mirrors it, the current document and its buffer.
package workspace

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/metrics"
	"github.com/koen666/MarkTex/internal/snapshot"
	"github.com/koen666/MarkTex/internal/vfs"
)

// Upload is one dropped file.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// UploadResult reports which uploads became assets.
type UploadResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	// Sources[i] is the index of the item that became Created[i].
	Sources []int `json:"-"`
}

// Session serializes every read and mutation of the workspace behind one mutex.
// Observers run after the lock is released.
type Session struct {
	mu        sync.Mutex
	tree      *vfs.Tree
	reg       *vfs.Registry
	objects   snapshot.ObjectStore
	current   string
	buffer    string
	maxAsset  int64
	observers []func()
}

// Option configures a Session.
type Option func(*Session)

// WithMaxAssetBytes rejects uploads larger than n bytes. Zero disables the limit.
func WithMaxAssetBytes(n int64) Option {
	return func(s *Session) { s.maxAsset = n }
}

// New creates a session holding the default workspace.
func New(objects snapshot.ObjectStore, opts ...Option) *Session {
	s := &Session{objects: objects}
	for _, opt := range opts {
		opt(s)
	}
	tree, _ := vfs.NewTree(DefaultNodes()...)
	s.adopt(tree, vfs.RegistryFromTree(tree), vfs.MainID)
	return s
}

// Subscribe registers fn to run after every mutation.
func (s *Session) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) notify() {
	s.mu.Lock()
	observers := append([]func(){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Adopt replaces the whole workspace, as hydration does. Observers are not notified.
// currentFile falls back to main.md when it is missing or not a document.
func (s *Session) Adopt(tree *vfs.Tree, reg *vfs.Registry, currentFile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adopt(tree, reg, currentFile)
}

func (s *Session) adopt(tree *vfs.Tree, reg *vfs.Registry, currentFile string) {
	s.tree, s.reg = tree, reg
	if _, err := s.document(currentFile); err != nil {
		currentFile = vfs.MainID
	}
	s.current = currentFile
	s.buffer, _ = s.document(currentFile)
	metrics.SetWorkspaceFiles(len(tree.Files()))
}

// document returns the text of a selectable file. Caller holds mu.
func (s *Session) document(id string) (string, error) {
	n, ok := s.tree.Lookup(id)
	if !ok {
		return "", errors.NewNotFound(id)
	}
	f, isFile := n.(*vfs.File)
	if !isFile {
		return "", errors.NewNotADocument(id)
	}
	if rec, ok := s.reg.Get(id); ok {
		if rec.IsBinary() {
			return "", errors.NewNotADocument(id)
		}
		return rec.Content, nil
	}
	if f.IsBinary() || blob.IsHandle(f.Content) {
		return "", errors.NewNotADocument(id)
	}
	return f.Content, nil
}

// Current returns the id of the current document.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Buffer returns the text being edited.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Read returns the text of a document.
func (s *Session) Read(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.current {
		return s.buffer, nil
	}
	return s.document(id)
}

// Asset returns the bytes behind a binary file.
func (s *Session) Asset(id string) ([]byte, string, error) {
	s.mu.Lock()
	rec, ok := s.reg.Get(id)
	s.mu.Unlock()
	if !ok || !rec.IsBinary() {
		return nil, "", errors.NewNotFound(id)
	}
	data, mime, err := s.objects.Fetch(rec.BinaryRef)
	if err != nil {
		return nil, "", errors.NewNotFound(id)
	}
	return data, mime, nil
}

// Select flushes the buffer into the current file and switches to id.
// Folders and binary assets cannot be selected.
func (s *Session) Select(id string) (string, error) {
	s.mu.Lock()
	content, err := s.document(id)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.flush()
	s.current = id
	s.buffer = content
	s.mu.Unlock()

	s.notify()
	return content, nil
}

// flush writes the buffer through to the current file. Caller holds mu.
func (s *Session) flush() {
	if !s.tree.Has(s.current) {
		return
	}
	if rec, ok := s.reg.Get(s.current); ok && rec.IsBinary() {
		return
	}
	_ = s.tree.SetContent(s.current, s.buffer, "")
	s.reg.Put(vfs.Record{ID: s.current, Content: s.buffer})
}

// Edit replaces the buffer and writes it through to the current file.
func (s *Session) Edit(content string) {
	s.mu.Lock()
	s.buffer = content
	s.flush()
	s.mu.Unlock()

	s.notify()
}

// Update writes content to id. An object store handle is also stored as the
// file's binary reference.
func (s *Session) Update(id, content string) error {
	s.mu.Lock()
	n, inTree := s.tree.Lookup(id)
	_, inReg := s.reg.Get(id)
	if !inTree && !inReg {
		s.mu.Unlock()
		return errors.NewNotFound(id)
	}
	if inTree && n.Kind() == vfs.KindFolder {
		s.mu.Unlock()
		return errors.NewNotADocument(id)
	}

	binaryRef := ""
	if blob.IsHandle(content) {
		binaryRef = content
	}
	if inTree {
		_ = s.tree.SetContent(id, content, binaryRef)
	}
	s.reg.Put(vfs.Record{ID: id, Content: content, BinaryRef: binaryRef})
	if id == s.current && binaryRef == "" {
		s.buffer = content
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Rename replaces the last segment of id with newName and returns the new id.
// An empty or unchanged name is a no-op.
func (s *Session) Rename(id, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == vfs.BaseName(id) {
		return id, nil
	}
	if err := validName(newName); err != nil {
		return "", err
	}
	if id == vfs.MainID {
		return "", errors.NewProtected(id, "rename")
	}

	s.mu.Lock()
	newID, err := s.tree.Rename(id, newName)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.reg.Move(id, newID)
	if s.current == id {
		s.current = newID
	}
	s.mu.Unlock()

	logging.L().Debug("renamed", zap.String("from", id), zap.String("to", newID))
	s.notify()
	return newID, nil
}

// Delete removes id and everything below it. Deleting the current document
// falls back to main.md. Object store entries are left in place.
func (s *Session) Delete(id string) ([]string, error) {
	if id == vfs.MainID {
		return nil, errors.NewProtected(id, "delete")
	}

	s.mu.Lock()
	removed, err := s.tree.Remove(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	for _, rid := range removed {
		s.reg.Delete(rid)
		if rid == s.current {
			s.current = vfs.MainID
			s.buffer, _ = s.document(vfs.MainID)
		}
	}
	metrics.SetWorkspaceFiles(len(s.tree.Files()))
	s.mu.Unlock()

	s.notify()
	return removed, nil
}

// CreateFile adds a document named name under parentID ("" for the root).
func (s *Session) CreateFile(parentID, name, content string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	id := vfs.JoinID(parentID, name)

	s.mu.Lock()
	err := s.tree.Insert(parentID, &vfs.File{Base: vfs.Base{ID: id, Name: name}, Content: content})
	if err == nil {
		s.reg.Put(vfs.Record{ID: id, Content: content})
		metrics.SetWorkspaceFiles(len(s.tree.Files()))
	}
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	s.notify()
	return id, nil
}

// CreateFolder adds an empty folder named name under parentID ("" for the root).
func (s *Session) CreateFolder(parentID, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	id := vfs.JoinID(parentID, name)

	s.mu.Lock()
	err := s.tree.Insert(parentID, &vfs.Folder{Base: vfs.Base{ID: id, Name: name}})
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	s.notify()
	return id, nil
}

// Upload stores image uploads as assets/<name>. Other media types, oversized
// payloads and names that already exist are skipped.
func (s *Session) Upload(items []Upload) (UploadResult, error) {
	var res UploadResult

	s.mu.Lock()
	for idx, item := range items {
		name := strings.TrimSpace(item.Name)
		if !strings.HasPrefix(item.MIME, "image/") || validName(name) != nil {
			res.Skipped = append(res.Skipped, item.Name)
			continue
		}
		if s.maxAsset > 0 && int64(len(item.Data)) > s.maxAsset {
			logging.L().Warn("upload too large", zap.String("name", name), zap.Int("bytes", len(item.Data)))
			res.Skipped = append(res.Skipped, item.Name)
			continue
		}

		id := vfs.JoinID(vfs.AssetsID, name)
		if s.tree.Has(id) {
			res.Skipped = append(res.Skipped, item.Name)
			continue
		}
		if !s.tree.Has(vfs.AssetsID) {
			if err := s.tree.Insert("", &vfs.Folder{Base: vfs.Base{ID: vfs.AssetsID, Name: vfs.AssetsID}}); err != nil {
				s.mu.Unlock()
				return res, err
			}
		}

		handle := s.objects.Create(item.Data, item.MIME)
		if err := s.tree.Insert(vfs.AssetsID, &vfs.File{Base: vfs.Base{ID: id, Name: name}, Content: handle, BinaryRef: handle}); err != nil {
			s.mu.Unlock()
			return res, err
		}
		s.reg.Put(vfs.Record{ID: id, Content: handle, BinaryRef: handle})
		res.Created = append(res.Created, id)
		res.Sources = append(res.Sources, idx)
	}
	metrics.SetWorkspaceFiles(len(s.tree.Files()))
	s.mu.Unlock()

	if len(res.Created) > 0 {
		s.notify()
	}
	return res, nil
}

func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.NewInvalidRequest("name is required")
	case strings.Contains(name, "/"):
		return errors.NewInvalidRequest("name must not contain '/'")
	}
	return nil
}

// Resolve finds the file a document reference points at.
func (s *Session) Resolve(ref string) (vfs.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vfs.Resolve(s.tree, s.reg, ref)
}

// Nodes returns a detached copy of the tree.
func (s *Session) Nodes() []vfs.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Nodes()
}

// Entries returns the flattened tree in order.
func (s *Session) Entries() []vfs.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vfs.Entry
	s.tree.Walk(func(e vfs.Entry) { out = append(out, e) })
	return out
}

// Lookup returns a detached copy of one node.
func (s *Session) Lookup(id string) (vfs.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Lookup(id)
}

// Match returns ids matching a glob pattern.
func (s *Session) Match(pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Match(pattern)
}

// Snapshot serializes the workspace as it is right now.
func (s *Session) Snapshot(now time.Time) (*snapshot.Workspace, snapshot.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	files, report := snapshot.Serialize(s.tree.Nodes(), s.reg, s.objects)
	return &snapshot.Workspace{
		Files:       files,
		CurrentFile: s.current,
		Timestamp:   now.UnixMilli(),
	}, report
}
