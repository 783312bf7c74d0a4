// Package kv implements the distributed key/value abstraction of §4.K: a
// pluggable DistributedConfigStorage surface with an authoritative
// in-memory backend, an embedded ordered-KV backend (bbolt), and adapter
// stubs for external coordination services. All backends share the same
// semantics: Store/Get/Remove/List/GetAll, watch-by-key notification, and
// atomic multi-op transactions with conditional writes.
package kv

import (
	"errors"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// ConfigChange is emitted to every watcher of an affected key.
type ConfigChange struct {
	Key       string
	Old       []byte
	New       []byte
	Timestamp time.Time
}

// OpKind is the kind of mutation inside a Transaction.
type OpKind string

const (
	OpSet            OpKind = "set"
	OpDelete         OpKind = "delete"
	OpConditionalSet OpKind = "conditional_set"
)

// Op is one operation inside an atomic Transaction. For OpConditionalSet,
// ExpectedPresent/ExpectedPrior describe the predicate evaluated against
// pre-transaction state: ExpectedPresent=false means "key must be absent".
type Op struct {
	Kind            OpKind
	Key             string
	Value           []byte
	ExpectedPresent bool
	ExpectedPrior   []byte
}

// Store is the DistributedConfigStorage surface.
type Store interface {
	StoreConfig(key string, value []byte) error
	GetConfig(key string) ([]byte, bool, error)
	RemoveConfig(key string) error
	ListKeys() ([]string, error)
	GetAllConfig() (map[string][]byte, error)
	// WatchConfig returns a channel of changes for key and a cancel func.
	// The channel is closed once cancel is called.
	WatchConfig(key string) (<-chan ConfigChange, func(), error)
	// Transaction applies ops atomically: all ConditionalSet predicates are
	// evaluated against the pre-state first; if any fails, the whole
	// transaction is rejected with InvalidState and nothing is mutated.
	Transaction(ops []Op) error
	HealthCheck() error
	Close() error
}

// ErrInvalidState is returned when a Transaction's ConditionalSet
// predicate does not hold against current state; no mutation is applied.
var ErrInvalidState = errors.New("invalid state: conditional set predicate failed")

func notImplemented(backend string) error {
	return vpnerrors.NewRuntimeError(vpnerrors.RuntimeNotImplemented, backend+" adapter not wired")
}
