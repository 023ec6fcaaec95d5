// Package subscription records which characteristics each controller wants
// event notifications for.
package subscription

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

type charKey struct {
	aid, iid uint64
}

// Table is keyed by controller id. It is safe for concurrent use.
type Table struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[charKey]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{subs: make(map[uuid.UUID]map[charKey]struct{})}
}

// Subscribe enables notifications for one characteristic.
func (t *Table) Subscribe(controller uuid.UUID, aid, iid uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[controller]
	if !ok {
		m = make(map[charKey]struct{})
		t.subs[controller] = m
	}
	m[charKey{aid, iid}] = struct{}{}
}

// Unsubscribe disables notifications for one characteristic.
func (t *Table) Unsubscribe(controller uuid.UUID, aid, iid uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[controller]
	if !ok {
		return
	}
	delete(m, charKey{aid, iid})
	if len(m) == 0 {
		delete(t.subs, controller)
	}
}

// IsSubscribed reports whether controller wants events for aid.iid.
func (t *Table) IsSubscribed(controller uuid.UUID, aid, iid uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subs[controller][charKey{aid, iid}]
	return ok
}

// Subscribers lists the controllers subscribed to aid.iid.
func (t *Table) Subscribers(aid, iid uint64) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []uuid.UUID
	for ctrl, m := range t.subs {
		if _, ok := m[charKey{aid, iid}]; ok {
			out = append(out, ctrl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// RemoveController drops every subscription of controller.
func (t *Table) RemoveController(controller uuid.UUID) {
	t.mu.Lock()
	delete(t.subs, controller)
	t.mu.Unlock()
}

// Count returns the total number of subscriptions.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, m := range t.subs {
		n += len(m)
	}
	return n
}
