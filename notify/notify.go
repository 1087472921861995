// Package notify provides change notification for confer stores.
//
// The notify package implements an observer pattern that allows components
// to subscribe to document changes and receive callbacks when keys are set
// or removed, sections are added or removed, or the whole document is
// reloaded.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a key was removed.
	ChangeDelete

	// ChangeSectionAdd indicates an empty section was created.
	ChangeSectionAdd

	// ChangeSectionRemove indicates a section was removed.
	ChangeSectionRemove

	// ChangeReload indicates the entire document was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeSectionAdd:
		return "section-add"
	case ChangeSectionRemove:
		return "section-remove"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a document change event.
type Change struct {
	// ID uniquely identifies the event.
	ID string

	// Type is the type of change.
	Type ChangeType

	// Section is the affected section. Empty for reload events.
	Section string

	// Key is the affected key. Empty for section-level and reload events.
	Key string

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (nil for deletes).
	NewValue any

	// Source identifies where the change came from, such as a file path.
	Source string
}

// Observer is called when document changes occur.
type Observer func(change Change)

// target selects the changes a scoped observer receives.
// An empty key matches every key of the section.
type target struct {
	section string
	key     string
}

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Global observers that receive all changes
	globalObservers map[uint64]Observer

	// Section- and key-scoped observers
	scopedObservers map[target]map[uint64]Observer

	nextID uint64

	// Whether to notify synchronously or asynchronously
	async  bool
	buffer chan Change

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers: make(map[uint64]Observer),
		scopedObservers: make(map[target]map[uint64]Observer),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeSection registers an observer for changes to any key of section,
// to the section itself, and for reloads.
func (n *Notifier) SubscribeSection(section string, observer Observer) *Subscription {
	return n.subscribeScoped(target{section: section}, observer)
}

// SubscribeKey registers an observer for changes to section.key, for removal
// of the section, and for reloads.
func (n *Notifier) SubscribeKey(section, key string, observer Observer) *Subscription {
	return n.subscribeScoped(target{section: section, key: key}, observer)
}

func (n *Notifier) subscribeScoped(t target, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.scopedObservers[t] == nil {
		n.scopedObservers[t] = make(map[uint64]Observer)
	}
	n.scopedObservers[t][id] = observer

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change notification to all relevant observers.
// An empty ID is filled in.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if change.ID == "" {
		change.ID = uuid.NewString()
	}

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(section, key string, oldValue, newValue any, source string) {
	n.Notify(Change{
		Type:     ChangeSet,
		Section:  section,
		Key:      key,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyDelete is a convenience method for key removals.
func (n *Notifier) NotifyDelete(section, key string, oldValue any, source string) {
	n.Notify(Change{
		Type:     ChangeDelete,
		Section:  section,
		Key:      key,
		OldValue: oldValue,
		Source:   source,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{
		Type:   ChangeReload,
		Source: source,
	})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for t, observers := range n.scopedObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.scopedObservers, t)
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}
	for t, scoped := range n.scopedObservers {
		if !matches(t, change) {
			continue
		}
		for _, obs := range scoped {
			observers = append(observers, obs)
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

// matches reports whether a scoped subscription receives change.
func matches(t target, change Change) bool {
	switch change.Type {
	case ChangeReload:
		return true
	case ChangeSectionAdd, ChangeSectionRemove:
		return t.section == change.Section
	default:
		if t.section != change.Section {
			return false
		}
		return t.key == "" || t.key == change.Key
	}
}

// processAsync handles asynchronous notification delivery.
func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}
