package kv

import (
	"bytes"
	"sync"
	"time"
)

// MemoryStore is the authoritative backend used by tests; the daemon
// itself opens a BoltStore in every consensus mode. Every other backend is tested
// against the same semantic suite this one satisfies.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	versions map[string]uint64
	watchers map[string][]chan ConfigChange
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		versions: make(map[string]uint64),
		watchers: make(map[string][]chan ConfigChange),
	}
}

func (m *MemoryStore) StoreConfig(key string, value []byte) error {
	m.mu.Lock()
	old, existed := m.data[key]
	m.data[key] = value
	m.versions[key]++
	watchers := append([]chan ConfigChange(nil), m.watchers[key]...)
	m.mu.Unlock()

	var oldVal []byte
	if existed {
		oldVal = old
	}
	m.notify(key, oldVal, value, watchers)
	return nil
}

func (m *MemoryStore) GetConfig(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) RemoveConfig(key string) error {
	m.mu.Lock()
	old, existed := m.data[key]
	if !existed {
		m.mu.Unlock()
		return nil
	}
	delete(m.data, key)
	m.versions[key]++
	watchers := append([]chan ConfigChange(nil), m.watchers[key]...)
	m.mu.Unlock()

	m.notify(key, old, nil, watchers)
	return nil
}

func (m *MemoryStore) ListKeys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemoryStore) GetAllConfig() (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *MemoryStore) WatchConfig(key string) (<-chan ConfigChange, func(), error) {
	ch := make(chan ConfigChange, 16)

	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.watchers[key]
		for i, s := range subs {
			if s == ch {
				m.watchers[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}

	return ch, cancel, nil
}

// Transaction applies ops atomically. All ConditionalSet predicates are
// checked against pre-state before any mutation; on any failure the whole
// transaction is rejected and no change is made. Watchers are notified
// only after every mutation has been applied.
func (m *MemoryStore) Transaction(ops []Op) error {
	m.mu.Lock()

	for _, op := range ops {
		if op.Kind != OpConditionalSet {
			continue
		}
		cur, present := m.data[op.Key]
		if present != op.ExpectedPresent {
			m.mu.Unlock()
			return ErrInvalidState
		}
		if present && !bytes.Equal(cur, op.ExpectedPrior) {
			m.mu.Unlock()
			return ErrInvalidState
		}
	}

	type pending struct {
		key      string
		old, new []byte
		deleted  bool
	}
	var changes []pending

	for _, op := range ops {
		old, existed := m.data[op.Key]
		switch op.Kind {
		case OpDelete:
			if existed {
				delete(m.data, op.Key)
				m.versions[op.Key]++
				changes = append(changes, pending{key: op.Key, old: old, deleted: true})
			}
		case OpSet, OpConditionalSet:
			m.data[op.Key] = op.Value
			m.versions[op.Key]++
			var oldVal []byte
			if existed {
				oldVal = old
			}
			changes = append(changes, pending{key: op.Key, old: oldVal, new: op.Value})
		}
	}

	watcherSnapshots := make(map[string][]chan ConfigChange, len(changes))
	for _, c := range changes {
		watcherSnapshots[c.key] = append([]chan ConfigChange(nil), m.watchers[c.key]...)
	}
	m.mu.Unlock()

	for _, c := range changes {
		m.notify(c.key, c.old, c.new, watcherSnapshots[c.key])
	}
	return nil
}

func (m *MemoryStore) HealthCheck() error { return nil }

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, subs := range m.watchers {
		for _, ch := range subs {
			close(ch)
		}
	}
	m.watchers = make(map[string][]chan ConfigChange)
	return nil
}

func (m *MemoryStore) notify(key string, old, new []byte, watchers []chan ConfigChange) {
	change := ConfigChange{Key: key, Old: old, New: new, Timestamp: time.Now()}
	for _, ch := range watchers {
		select {
		case ch <- change:
		default:
			// Slow watcher: drop, last-value-wins per §5 ordering guarantee.
		}
	}
}
