// Package memstore is an in-process storage.Area. Several handles attached
// to one Origin share data and see each other's changes, standing in for
// browser tabs sharing localStorage.
package memstore

import (
	"sort"
	"sync"

	"github.com/jrsteele09/go-auth-session/storage"
)

// Origin is the shared backing data for a set of attached areas.
type Origin struct {
	mu          sync.RWMutex
	data        map[string]string
	subscribers map[int]func(storage.Event)
	seq         int
}

// NewOrigin creates an empty shared origin.
func NewOrigin() *Origin {
	return &Origin{
		data:        make(map[string]string),
		subscribers: make(map[int]func(storage.Event)),
	}
}

// Attach returns a new area handle on the origin.
func (o *Origin) Attach() *Area {
	return &Area{origin: o}
}

// Snapshot returns a copy of every key currently stored.
func (o *Origin) Snapshot() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]string, len(o.data))
	for k, v := range o.data {
		out[k] = v
	}
	return out
}

var _ storage.Area = (*Area)(nil)

// Area is one attached handle.
type Area struct {
	origin *Origin
}

// New returns a single area on a fresh origin.
func New() *Area {
	return NewOrigin().Attach()
}

func (a *Area) Get(key string) (string, bool, error) {
	a.origin.mu.RLock()
	defer a.origin.mu.RUnlock()

	v, ok := a.origin.data[key]
	return v, ok, nil
}

func (a *Area) Set(key, value string) error {
	o := a.origin
	o.mu.Lock()
	old, existed := o.data[key]
	if existed && old == value {
		o.mu.Unlock()
		return nil
	}
	o.data[key] = value
	handlers := o.handlersLocked()
	o.mu.Unlock()

	event := storage.Event{Key: key, NewValue: &value}
	if existed {
		event.OldValue = &old
	}
	dispatch(handlers, event)
	return nil
}

func (a *Area) Remove(key string) error {
	o := a.origin
	o.mu.Lock()
	old, existed := o.data[key]
	if !existed {
		o.mu.Unlock()
		return nil
	}
	delete(o.data, key)
	handlers := o.handlersLocked()
	o.mu.Unlock()

	dispatch(handlers, storage.Event{Key: key, OldValue: &old})
	return nil
}

func (a *Area) Subscribe(handler func(storage.Event)) func() {
	o := a.origin
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	id := o.seq
	o.subscribers[id] = handler

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

func (o *Origin) handlersLocked() []func(storage.Event) {
	ids := make([]int, 0, len(o.subscribers))
	for id := range o.subscribers {
		ids = append(ids, id)
	}
	// Deliver in subscription order
	sort.Ints(ids)
	handlers := make([]func(storage.Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, o.subscribers[id])
	}
	return handlers
}

func dispatch(handlers []func(storage.Event), event storage.Event) {
	for _, h := range handlers {
		h(event)
	}
}
