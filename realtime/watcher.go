package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/thecodeprism/qrauth/record"
)

// PromptFunc is invoked once per awaiting transition when a shared link
// starts waiting for authorization. It runs on the Watcher's goroutine and
// must not block; hand off to the UI layer and return.
type PromptFunc func(record.SharedLink)

// Watcher keeps a merged live view and the remote-enabled flag current by
// re-querying the store whenever a change event arrives. One Watcher serves
// one logged-in principal; Close tears down the subscription.
type Watcher struct {
	store    *record.Store
	onPrompt PromptFunc

	view   *Cell[[]Entry]
	remote *Cell[bool]

	mu       sync.Mutex
	prompted map[string]struct{} // link ids already surfaced this awaiting episode
	sessions []record.Session    // last session-partition snapshot
	links    []record.SharedLink // last link-partition snapshot

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWatcher creates a Watcher over store. onPrompt may be nil when the
// caller has no elevation UI.
func NewWatcher(store *record.Store, onPrompt PromptFunc) *Watcher {
	return &Watcher{
		store:    store,
		onPrompt: onPrompt,
		view:     NewCell[[]Entry](nil),
		remote:   NewCell(false),
		prompted: make(map[string]struct{}),
	}
}

// Start takes initial snapshots of every partition, then subscribes and
// keeps the outputs current until Close. The initial snapshot is
// synchronous: once Start returns, View and RemoteEnabled reflect the store.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.refreshConfig(ctx); err != nil {
		return err
	}
	if err := w.refreshSessions(ctx); err != nil {
		return err
	}
	if err := w.refreshLinks(ctx); err != nil {
		return err
	}
	if err := w.refreshAwaiting(ctx); err != nil {
		return err
	}

	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if w.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	sub := w.store.Subscribe(runCtx)
	go w.run(runCtx, sub, done)
	return nil
}

// Close stops the event loop and releases the subscription. Safe to call
// when Start was never called or failed, and safe against a concurrent
// Start: each run loop owns the done channel it was handed.
func (w *Watcher) Close() {
	w.lifecycle.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.lifecycle.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// View returns the current merged live view.
func (w *Watcher) View() []Entry { return w.view.Get() }

// ViewUpdates subscribes to view recomputations.
func (w *Watcher) ViewUpdates() (<-chan []Entry, func()) { return w.view.Subscribe() }

// RemoteEnabled returns the last observed kill-switch state.
func (w *Watcher) RemoteEnabled() bool { return w.remote.Get() }

// RemoteUpdates subscribes to kill-switch changes.
func (w *Watcher) RemoteUpdates() (<-chan bool, func()) { return w.remote.Subscribe() }

func (w *Watcher) run(ctx context.Context, sub *redis.PubSub, done chan struct{}) {
	defer close(done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := record.DecodeChange(msg.Payload)
			if err != nil {
				continue
			}
			w.handle(ctx, ev)
		}
	}
}

// handle re-queries only the partition the event touched; the merged view
// is recomputed against the other partition's cached snapshot. Errors are
// swallowed: a failed refresh leaves the previous snapshot in place and the
// next event retries.
func (w *Watcher) handle(ctx context.Context, ev record.ChangeEvent) {
	switch ev.Kind {
	case record.KindConfig:
		_ = w.refreshConfig(ctx)
	case record.KindSession:
		_ = w.refreshSessions(ctx)
	case record.KindLink:
		_ = w.refreshLinks(ctx)
		_ = w.refreshAwaiting(ctx)
	}
}

func (w *Watcher) refreshConfig(ctx context.Context) error {
	cfg, err := w.store.AdminStatus(ctx)
	if err != nil {
		return err
	}
	w.remote.Set(cfg.RemoteEnabled)
	return nil
}

func (w *Watcher) refreshSessions(ctx context.Context) error {
	sessions, err := w.store.FindActiveSessions(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.sessions = sessions
	view := Merge(w.sessions, w.links)
	w.mu.Unlock()
	w.view.Set(view)
	return nil
}

func (w *Watcher) refreshLinks(ctx context.Context) error {
	links, err := w.store.FindActiveLinks(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.links = links
	view := Merge(w.sessions, w.links)
	w.mu.Unlock()
	w.view.Set(view)
	return nil
}

// refreshAwaiting diffs the awaiting partition against the already-prompted
// set. A link prompts once per awaiting episode: leaving the partition
// (approved, denied, or terminated) re-arms it.
func (w *Watcher) refreshAwaiting(ctx context.Context) error {
	awaiting, err := w.store.AwaitingLinks(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(awaiting))
	var fresh []record.SharedLink
	w.mu.Lock()
	for _, l := range awaiting {
		current[l.ID] = struct{}{}
		if _, seen := w.prompted[l.ID]; !seen {
			w.prompted[l.ID] = struct{}{}
			fresh = append(fresh, l)
		}
	}
	for id := range w.prompted {
		if _, still := current[id]; !still {
			delete(w.prompted, id)
		}
	}
	w.mu.Unlock()

	if w.onPrompt != nil {
		for _, l := range fresh {
			w.onPrompt(l)
		}
	}
	return nil
}
