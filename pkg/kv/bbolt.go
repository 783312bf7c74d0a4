package kv

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

var bucketConfig = []byte("config")

// BoltStore is the embedded ordered-KV backend (§4.K "sled-style tree
// with batch writes for atomicity"), following the common
// bucket-per-entity BoltDB store, generalized here to a single flat
// key/value bucket plus an in-process watcher registry.
type BoltStore struct {
	db *bolt.DB

	mu       sync.RWMutex
	watchers map[string][]chan ConfigChange
}

// NewBoltStore opens (creating if absent) the embedded KV file under
// dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	path := filepath.Join(dataDir, "kv.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, vpnerrors.NewStorageError("open kv db", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConfig)
		return err
	})
	if err != nil {
		db.Close()
		return nil, vpnerrors.NewStorageError("create config bucket", err)
	}

	return &BoltStore{db: db, watchers: make(map[string][]chan ConfigChange)}, nil
}

func (s *BoltStore) StoreConfig(key string, value []byte) error {
	var old []byte
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		if v := b.Get([]byte(key)); v != nil {
			old = append([]byte(nil), v...)
			existed = true
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return vpnerrors.NewStorageError(fmt.Sprintf("store config %q", key), err)
	}
	var oldVal []byte
	if existed {
		oldVal = old
	}
	s.notify(key, oldVal, value)
	return nil
}

func (s *BoltStore) GetConfig(key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, vpnerrors.NewStorageError(fmt.Sprintf("get config %q", key), err)
	}
	return value, found, nil
}

func (s *BoltStore) RemoveConfig(key string) error {
	var old []byte
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		if v := b.Get([]byte(key)); v != nil {
			old = append([]byte(nil), v...)
			existed = true
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return vpnerrors.NewStorageError(fmt.Sprintf("remove config %q", key), err)
	}
	if existed {
		s.notify(key, old, nil)
	}
	return nil
}

func (s *BoltStore) ListKeys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, vpnerrors.NewStorageError("list keys", err)
	}
	return keys, nil
}

func (s *BoltStore) GetAllConfig() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, vpnerrors.NewStorageError("get all config", err)
	}
	return out, nil
}

func (s *BoltStore) WatchConfig(key string) (<-chan ConfigChange, func(), error) {
	ch := make(chan ConfigChange, 16)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.watchers[key]
		for i, sub := range subs {
			if sub == ch {
				s.watchers[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, cancel, nil
}

// Transaction applies ops in a single bbolt read-write transaction so the
// whole batch is atomic on disk; ConditionalSet predicates are evaluated
// against the transaction's own view before any Put/Delete executes.
func (s *BoltStore) Transaction(ops []Op) error {
	type pending struct {
		key      string
		old, new []byte
		deleted  bool
	}
	var changes []pending

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)

		for _, op := range ops {
			if op.Kind != OpConditionalSet {
				continue
			}
			cur := b.Get([]byte(op.Key))
			present := cur != nil
			if present != op.ExpectedPresent {
				return ErrInvalidState
			}
			if present && !bytes.Equal(cur, op.ExpectedPrior) {
				return ErrInvalidState
			}
		}

		for _, op := range ops {
			old := b.Get([]byte(op.Key))
			existed := old != nil
			var oldCopy []byte
			if existed {
				oldCopy = append([]byte(nil), old...)
			}
			switch op.Kind {
			case OpDelete:
				if existed {
					if err := b.Delete([]byte(op.Key)); err != nil {
						return err
					}
					changes = append(changes, pending{key: op.Key, old: oldCopy, deleted: true})
				}
			case OpSet, OpConditionalSet:
				if err := b.Put([]byte(op.Key), op.Value); err != nil {
					return err
				}
				changes = append(changes, pending{key: op.Key, old: oldCopy, new: op.Value})
			}
		}
		return nil
	})
	if err != nil {
		if err == ErrInvalidState {
			return ErrInvalidState
		}
		return vpnerrors.NewStorageError("transaction", err)
	}

	for _, c := range changes {
		s.notify(c.key, c.old, c.new)
	}
	return nil
}

func (s *BoltStore) HealthCheck() error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subs := range s.watchers {
		for _, ch := range subs {
			close(ch)
		}
	}
	s.watchers = make(map[string][]chan ConfigChange)
	return s.db.Close()
}

func (s *BoltStore) notify(key string, old, new []byte) {
	s.mu.RLock()
	subs := append([]chan ConfigChange(nil), s.watchers[key]...)
	s.mu.RUnlock()

	change := ConfigChange{Key: key, Old: old, New: new, Timestamp: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}
