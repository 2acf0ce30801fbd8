// Package broadcaster fans filesystem change events out to subscribers
// watching a root.
package broadcaster

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

// EventType represents the type of change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one change under a watched root.
type Event struct {
	Type EventType
	Path string
}

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broadcaster closed")

// Subscriber receives events for paths under Root.
type Subscriber struct {
	ID     string
	Root   string
	Events chan *Event

	ignore []glob.Glob
}

// Broadcaster manages subscribers and distributes events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers interest in root. Events whose base name matches
// one of the ignore globs are not delivered.
func (b *Broadcaster) Subscribe(root string, ignore []string) (*Subscriber, error) {
	globs := make([]glob.Glob, 0, len(ignore))
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Root:   filepath.Clean(root),
		Events: make(chan *Event, 100),
		ignore: globs,
	}
	b.subscribers[sub.ID] = sub
	return sub, nil
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify sends an event to every subscriber whose root contains path.
// Slow subscribers drop events rather than block the watcher.
func (b *Broadcaster) Notify(path string, eventType EventType) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.matches(path) {
			continue
		}
		select {
		case sub.Events <- &Event{Type: eventType, Path: path}:
		default:
		}
	}
}

func (s *Subscriber) matches(path string) bool {
	if path != s.Root && !strings.HasPrefix(path, s.Root+string(filepath.Separator)) {
		return false
	}
	base := filepath.Base(path)
	for _, g := range s.ignore {
		if g.Match(base) {
			return false
		}
	}
	return true
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
