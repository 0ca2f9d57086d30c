// Package persist restores the workspace at startup and saves it a short while
// after the last change.
package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/metrics"
	"github.com/koen666/MarkTex/internal/snapshot"
	"github.com/koen666/MarkTex/internal/vfs"
	"github.com/koen666/MarkTex/internal/workspace"
)

// DefaultDebounce is the quiet period before an autosave.
const DefaultDebounce = time.Second

// Store is a durable key-value store. Get returns nil, nil for an absent key;
// Set with a nil value deletes the key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// State is the hydration lifecycle.
type State int

const (
	Uninitialized State = iota
	Hydrating
	Ready
)

func (s State) String() string {
	switch s {
	case Hydrating:
		return "hydrating"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Hydration sources, also used as metric labels.
const (
	SourceSnapshot  = "snapshot"
	SourceEmpty     = "empty"
	SourceMalformed = "malformed"
	SourceError     = "error"
)

// Status describes the autosave loop.
type Status struct {
	State     string    `json:"state"`
	Saving    bool      `json:"saving"`
	Dirty     bool      `json:"dirty"`
	LastSaved time.Time `json:"last_saved,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Manager owns hydration and autosave for one session.
type Manager struct {
	store    Store
	session  *workspace.Session
	objects  snapshot.ObjectStore
	debounce time.Duration
	now      func() time.Time

	saveMu sync.Mutex // serializes writes to the store

	mu        sync.Mutex
	state     State
	closed    bool
	timer     *time.Timer
	dirty     bool
	saving    bool
	pending   bool
	lastSaved time.Time
	lastErr   string
	source    string
}

// Option configures a Manager.
type Option func(*Manager)

// WithDebounce sets the quiet period before an autosave.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager and subscribes it to session changes.
func New(store Store, session *workspace.Session, objects snapshot.ObjectStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		session:  session,
		objects:  objects,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	session.Subscribe(m.Notify)
	return m
}

// Hydrate loads the snapshot into the session. An absent, unreadable or malformed
// snapshot yields the default workspace; nothing is written back. Calling it
// again after the first time does nothing.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Uninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = Hydrating
	m.mu.Unlock()

	source, loadErr := m.load(ctx)
	metrics.RecordHydration(source)

	m.mu.Lock()
	m.state = Ready
	m.source = source
	if loadErr != nil {
		m.lastErr = "load failed: " + loadErr.Error()
	}
	m.mu.Unlock()

	logging.L().Info("workspace hydrated", zap.String("source", source), zap.String("current", m.session.Current()))
	return ctx.Err()
}

func (m *Manager) load(ctx context.Context) (string, error) {
	log := logging.L()

	data, err := m.store.Get(ctx, snapshot.Key)
	if err != nil {
		log.Warn("snapshot unreadable, starting fresh", zap.Error(err))
		m.adoptDefault()
		return SourceError, err
	}
	if data == nil {
		m.adoptDefault()
		return SourceEmpty, nil
	}

	ws, err := snapshot.Unmarshal(data)
	if err != nil {
		log.Warn("snapshot malformed, starting fresh", zap.Error(err))
		m.adoptDefault()
		return SourceMalformed, nil
	}

	if _, err := m.restore(ws); err != nil {
		log.Warn("snapshot tree invalid, starting fresh", zap.Error(err))
		m.adoptDefault()
		return SourceMalformed, nil
	}
	return SourceSnapshot, nil
}

// restore rebuilds a workspace from a decoded snapshot and hands it to the
// session. A missing main document is put back in front.
func (m *Manager) restore(ws *snapshot.Workspace) (snapshot.Report, error) {
	nodes, reg, report := snapshot.Deserialize(ws.Files, m.objects)
	if !report.OK() {
		logging.L().Warn("some assets were not restored", zap.Strings("ids", report.Failed))
	}
	tree, err := vfs.NewTree(nodes...)
	if err != nil {
		return report, err
	}
	if !tree.Has(vfs.MainID) {
		main := workspace.DefaultMain()
		tree, err = vfs.NewTree(append([]vfs.Node{main}, nodes...)...)
		if err != nil {
			return report, err
		}
		reg.Put(vfs.Record{ID: main.ID, Content: main.Content})
	}

	m.session.Adopt(tree, reg, ws.CurrentFile)
	return report, nil
}

// Import replaces the session with an externally supplied snapshot and saves
// it immediately. The session is left untouched when the snapshot is invalid.
func (m *Manager) Import(ctx context.Context, ws *snapshot.Workspace) (snapshot.Report, error) {
	if err := m.Hydrate(ctx); err != nil {
		return snapshot.Report{}, err
	}
	report, err := m.restore(ws)
	if err != nil {
		return report, errors.NewInvalidRequest(fmt.Sprintf("invalid workspace: %v", err))
	}
	m.mu.Lock()
	m.stopTimer()
	m.dirty = true
	m.mu.Unlock()
	return report, m.Flush(ctx)
}

func (m *Manager) adoptDefault() {
	tree, _ := vfs.NewTree(workspace.DefaultNodes()...)
	m.session.Adopt(tree, vfs.RegistryFromTree(tree), vfs.MainID)
}

// Notify marks the workspace dirty and restarts the debounce timer.
// It is ignored until hydration has finished.
func (m *Manager) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ready || m.closed {
		return
	}
	m.dirty = true
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, m.fire)
		return
	}
	m.timer.Reset(m.debounce)
}

// fire runs when the debounce timer expires. At most one save runs at a time and
// at most one more is queued behind it.
func (m *Manager) fire() {
	m.mu.Lock()
	if m.saving {
		m.pending = true
		m.mu.Unlock()
		return
	}
	m.saving = true
	m.mu.Unlock()

	for {
		_ = m.save(context.Background())

		m.mu.Lock()
		if !m.pending {
			m.saving = false
			m.mu.Unlock()
			return
		}
		m.pending = false
		m.mu.Unlock()
	}
}

func (m *Manager) save(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()

	start := time.Now()
	ws, report := m.session.Snapshot(m.now())
	if !report.OK() {
		logging.L().Warn("saving without some assets", zap.Strings("ids", report.Failed))
	}
	data, err := snapshot.Marshal(ws)
	if err == nil {
		err = m.store.Set(ctx, snapshot.Key, data)
	}
	metrics.RecordAutosave(err == nil, time.Since(start), len(data))

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.dirty = true
		m.lastErr = fmt.Sprintf("save failed: %v", err)
		logging.L().Error("autosave failed", zap.Error(err))
		return err
	}
	m.lastSaved = ws.SavedAt()
	m.lastErr = ""
	logging.L().Debug("workspace saved", zap.Int("bytes", len(data)), zap.Int("files", len(ws.Files)))
	return nil
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
	}
}

// Flush cancels a pending autosave and saves now if anything changed.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	m.stopTimer()
	ready, dirty := m.state == Ready, m.dirty
	m.mu.Unlock()

	if !ready || !dirty {
		return nil
	}
	return m.save(ctx)
}

// Close stops the autosave loop after a final flush.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	m.mu.Lock()
	m.closed = true
	m.stopTimer()
	m.mu.Unlock()
	return err
}

// Clear deletes the durable snapshot. The in-memory session is untouched.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.stopTimer()
	m.dirty = false
	m.mu.Unlock()

	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	err := m.store.Set(ctx, snapshot.Key, nil)
	if err != nil && !errors.Is(err, errors.ErrStoreIO) {
		return errors.NewStoreIO("clear", err)
	}
	return err
}

// Stored returns the raw snapshot currently in the store, or nil if there is none.
func (m *Manager) Stored(ctx context.Context) ([]byte, error) {
	data, err := m.store.Get(ctx, snapshot.Key)
	if err != nil && !errors.Is(err, errors.ErrStoreIO) {
		return nil, errors.NewStoreIO("get", err)
	}
	return data, err
}

// Status reports the current state of the loop.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state.String(),
		Saving:    m.saving,
		Dirty:     m.dirty,
		LastSaved: m.lastSaved,
		LastError: m.lastErr,
		Source:    m.source,
	}
}
