// Package events implements the in-process publish/subscribe bus that
// connects the registry, the sync engine and external consumers.
package events

import (
	"sync"
)

// Type identifies a class of event.
type Type string

const (
	ProvidersUpdated Type = "providers_updated"
	SyncTasksUpdated Type = "sync_tasks_updated"
	MediaItemAdded   Type = "media_item_added"
	MediaItemUpdated Type = "media_item_updated"
	MediaItemDeleted Type = "media_item_deleted"
	Shutdown         Type = "shutdown"
)

// Event is a single published event. ObjectID and Data are optional.
type Event struct {
	Type     Type
	ObjectID string
	Data     any
}

// Callback receives matching events. Callbacks run on the publisher's
// goroutine and must not block.
type Callback func(Event)

type subscription struct {
	cb         Callback
	typeFilter map[Type]struct{}
	idFilter   map[string]struct{}
}

func (s *subscription) matches(ev Event) bool {
	if s.typeFilter != nil {
		if _, ok := s.typeFilter[ev.Type]; !ok {
			return false
		}
	}
	if s.idFilter != nil {
		if _, ok := s.idFilter[ev.ObjectID]; !ok {
			return false
		}
	}
	return true
}

// Bus is an in-process event bus with per-subscriber type and object-id
// filters. The zero value is not usable; use NewBus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Subscribe registers cb for events matching the given filters. A nil or
// empty filter matches everything. The returned function removes the
// subscription.
func (b *Bus) Subscribe(cb Callback, typeFilter []Type, idFilter []string) func() {
	sub := &subscription{cb: cb}
	if len(typeFilter) > 0 {
		sub.typeFilter = make(map[Type]struct{}, len(typeFilter))
		for _, t := range typeFilter {
			sub.typeFilter[t] = struct{}{}
		}
	}
	if len(idFilter) > 0 {
		sub.idFilter = make(map[string]struct{}, len(idFilter))
		for _, id := range idFilter {
			sub.idFilter[id] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every matching subscriber. It is a no-op
// once the bus has been closed.
func (b *Bus) Publish(t Type, objectID string, data any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	matching := make([]Callback, 0, len(b.subs))
	ev := Event{Type: t, ObjectID: objectID, Data: data}
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matching = append(matching, sub.cb)
		}
	}
	b.mu.RUnlock()

	for _, cb := range matching {
		cb(ev)
	}
}

// Close marks the bus as shutting down; subsequent publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
