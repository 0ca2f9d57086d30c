package vfs

import "sort"

// Record is the flat registry view of one file.
type Record struct {
	ID        string
	Content   string
	BinaryRef string
}

// IsBinary reports whether the record points into the object store.
func (r Record) IsBinary() bool { return r.BinaryRef != "" }

// Registry maps file ids to their current content. Folders are never registered.
type Registry struct {
	records map[string]Record
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// RegistryFromTree registers every file currently in t.
func RegistryFromTree(t *Tree) *Registry {
	r := NewRegistry()
	for _, f := range t.Files() {
		r.Put(Record{ID: f.ID, Content: f.Content, BinaryRef: f.BinaryRef})
	}
	return r
}

// Get returns the record for id.
func (r *Registry) Get(id string) (Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Put inserts or replaces a record.
func (r *Registry) Put(rec Record) {
	r.records[rec.ID] = rec
}

// Delete removes id. Missing ids are ignored.
func (r *Registry) Delete(id string) {
	delete(r.records, id)
}

// Move re-keys the record at oldID under newID.
func (r *Registry) Move(oldID, newID string) bool {
	rec, ok := r.records[oldID]
	if !ok {
		return false
	}
	delete(r.records, oldID)
	rec.ID = newID
	r.records[newID] = rec
	return true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// IDs returns all registered ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
