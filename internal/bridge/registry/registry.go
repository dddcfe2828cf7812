// Package registry implements the process-global project registry: the
// canonical-root -> broker map with LRU/idle-TTL eviction, so sessions
// sharing one workspace share one tsserver pair.
package registry

import (
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chojs23/ts-bridge/internal/bridge/broker"
	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/provider"
)

// Options configures the registry's eviction policy.
type Options struct {
	MaxEntries int           // 0 means unbounded
	IdleTTL    time.Duration // 0 means sessions are never idle-evicted
}

// entry is one project registry slot. lastUsedUnixNano and
// activeSessionCount are atomics so touching them on every request never
// needs the registry mutex.
type entry struct {
	root               string
	handle             *broker.Broker
	lastUsedUnixNano   int64
	activeSessionCount int64
}

func (e *entry) touch() {
	atomic.StoreInt64(&e.lastUsedUnixNano, time.Now().UnixNano())
}

func (e *entry) lastUsed() time.Time {
	return time.Unix(0, atomic.LoadInt64(&e.lastUsedUnixNano))
}

// SessionBundle is what RegisterSession hands back to a newly connected
// editor session: its broker handle, its private event stream, the
// effective config, and identifiers for bookkeeping at teardown.
type SessionBundle struct {
	Handle        *broker.Broker
	Events        chan broker.ServerEvent
	Config        config.PluginSettings
	WorkspaceRoot string
	SessionID     string
}

// Registry is the process-wide canonical-root -> broker map.
type Registry struct {
	opts     Options
	provider provider.Provider
	log      *zap.SugaredLogger

	mu      sync.Mutex
	entries map[string]*entry

	stopEviction chan struct{}
	evictionDone chan struct{}
}

// New constructs a registry and, if opts.IdleTTL is non-zero, starts its
// background eviction loop.
func New(opts Options, prov provider.Provider, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Registry{
		opts:     opts,
		provider: prov,
		log:      log,
		entries:  make(map[string]*entry),
	}
	if opts.IdleTTL > 0 {
		r.stopEviction = make(chan struct{})
		r.evictionDone = make(chan struct{})
		go r.evictionLoop()
	}
	return r
}

// canonicalize resolves symlinks and makes root absolute, falling back to
// the raw input on any error so a registry lookup never fails just
// because the filesystem is uncooperative.
func canonicalize(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return root
	}
	return resolved
}

// getOrCreate returns the entry for root, touching it if it exists or
// constructing and starting a new broker if not.
func (r *Registry) getOrCreate(root string, cfg config.PluginSettings) *entry {
	canonical := canonicalize(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[canonical]; ok {
		e.touch()
		return e
	}

	e := &entry{
		root:   canonical,
		handle: broker.New(canonical, cfg, r.provider, r.log),
	}
	e.touch()
	r.entries[canonical] = e

	if r.opts.MaxEntries > 0 && len(r.entries) > r.opts.MaxEntries {
		r.evictOverflowLocked()
	}

	return e
}

// RegisterSession resolves or creates the broker for workspaceRoot,
// subscribes a fresh session to it, and increments the entry's active
// count.
func (r *Registry) RegisterSession(workspaceRoot string, cfg config.PluginSettings) (SessionBundle, error) {
	e := r.getOrCreate(workspaceRoot, cfg)

	sessionID := uuid.NewString()
	events := make(chan broker.ServerEvent, 64)

	effective, err := e.handle.RegisterSession(sessionID, events, cfg)
	if err != nil {
		return SessionBundle{}, err
	}

	atomic.AddInt64(&e.activeSessionCount, 1)
	e.touch()

	return SessionBundle{
		Handle:        e.handle,
		Events:        events,
		Config:        effective,
		WorkspaceRoot: e.root,
		SessionID:     sessionID,
	}, nil
}

// UnregisterSession decrements the entry's active count and drops the
// session's subscription. It does not shut the broker down, even if the
// count reaches zero; that is the eviction loop's job.
func (r *Registry) UnregisterSession(bundle SessionBundle) {
	r.mu.Lock()
	e, ok := r.entries[bundle.WorkspaceRoot]
	r.mu.Unlock()
	if !ok {
		return
	}

	e.handle.UnregisterSession(bundle.SessionID)
	if atomic.AddInt64(&e.activeSessionCount, -1) < 0 {
		atomic.StoreInt64(&e.activeSessionCount, 0)
	}
	e.touch()
}

// Len reports the number of live registry entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictOverflowLocked removes the oldest zero-active entries until the
// registry is back at or under MaxEntries. Entries with live sessions are
// never evicted purely for being over capacity: a session's broker must
// not be torn down out from under it.
func (r *Registry) evictOverflowLocked() {
	over := len(r.entries) - r.opts.MaxEntries
	if over <= 0 {
		return
	}

	candidates := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if atomic.LoadInt64(&e.activeSessionCount) == 0 {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed().Before(candidates[j].lastUsed())
	})

	for i := 0; i < over && i < len(candidates); i++ {
		e := candidates[i]
		delete(r.entries, e.root)
		go e.handle.Shutdown()
	}
}

// evictionLoop wakes on clamp(idle_ttl/2, 5s, 60s) and removes entries
// with zero active sessions whose last_used predates idle_ttl.
func (r *Registry) evictionLoop() {
	defer close(r.evictionDone)

	interval := r.opts.IdleTTL / 2
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	if interval > 60*time.Second {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopEviction:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	now := time.Now()

	r.mu.Lock()
	var toEvict []*entry
	for root, e := range r.entries {
		if atomic.LoadInt64(&e.activeSessionCount) != 0 {
			continue
		}
		if now.Sub(e.lastUsed()) >= r.opts.IdleTTL {
			toEvict = append(toEvict, e)
			delete(r.entries, root)
		}
	}
	r.mu.Unlock()

	for _, e := range toEvict {
		r.log.Infow("evicting idle project broker", "workspace_root", e.root)
		e.handle.Shutdown()
	}
}

// Close stops the eviction loop and shuts down every live broker.
func (r *Registry) Close() {
	if r.stopEviction != nil {
		close(r.stopEviction)
		<-r.evictionDone
	}

	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.handle.Shutdown()
	}
}
