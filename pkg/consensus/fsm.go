package consensus

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/kv"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/types"
)

// FSM applies committed log entries to the embedded kv.Store and the
// cluster.State projection, dispatching on a command-type field the
// same way any raft.FSM routes its log to concrete mutations.
type FSM struct {
	mu    sync.Mutex
	store kv.Store
	state *cluster.State
}

// NewFSM builds an FSM over the given store and cluster projection.
func NewFSM(store kv.Store, state *cluster.State) *FSM {
	return &FSM{store: store, state: state}
}

// Apply implements raft.FSM. It is invoked once per committed log entry,
// in log order, on every voting member.
func (f *FSM) Apply(entry *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cmd Command
	if err := json.Unmarshal(entry.Data, &cmd); err != nil {
		log.WithComponent("consensus").Error().Err(err).Msg("malformed log entry")
		return err
	}

	switch cmd.Kind {
	case cmdKV:
		return f.applyKV(cmd.Data)
	case cmdAddNode:
		return f.applyAddNode(cmd.Data)
	case cmdRemoveNode:
		return f.applyRemoveNode(cmd.Data)
	default:
		return fmt.Errorf("consensus: unknown command kind %q", cmd.Kind)
	}
}

func (f *FSM) applyKV(raw json.RawMessage) error {
	var c KVCommand
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}

	op := kv.Op{Key: c.Key, Value: c.Value, ExpectedPresent: c.ExpectedPresent, ExpectedPrior: c.ExpectedPrior}
	switch c.Kind {
	case "set":
		op.Kind = kv.OpSet
	case "delete":
		op.Kind = kv.OpDelete
	case "conditional_set":
		op.Kind = kv.OpConditionalSet
	default:
		return fmt.Errorf("consensus: unknown kv op kind %q", c.Kind)
	}
	return f.store.Transaction([]kv.Op{op})
}

func (f *FSM) applyAddNode(raw json.RawMessage) error {
	var c MembershipCommand
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	f.state.AddNode(&types.Node{
		ID:      c.NodeID,
		Address: c.Address,
		Role:    types.NodeRole(c.Role),
		Status:  types.NodeStatusJoining,
		Voting:  c.Voting,
	})
	return nil
}

func (f *FSM) applyRemoveNode(raw json.RawMessage) error {
	var c MembershipCommand
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	f.state.RemoveNode(c.NodeID)
	return nil
}

// fsmSnapshot is a point-in-time dump of the kv store for raft's snapshot
// mechanism: the full key set serialized to JSON.
type fsmSnapshot struct {
	Data map[string][]byte `json:"data"`
}

// Snapshot implements raft.FSM.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.store.GetAllConfig()
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{Data: all}, nil
}

// Persist implements raft.FSMSnapshot.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	defer sink.Close()
	enc := json.NewEncoder(sink)
	if err := enc.Encode(s); err != nil {
		sink.Cancel()
		return err
	}
	return nil
}

// Release implements raft.FSMSnapshot.
func (s *fsmSnapshot) Release() {}

// Restore implements raft.FSM. It replaces the store's full contents
// with the snapshotted set.
func (f *FSM) Restore(r io.ReadCloser) error {
	defer r.Close()

	var snap fsmSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.store.ListKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := f.store.RemoveConfig(k); err != nil {
			return err
		}
	}
	for k, v := range snap.Data {
		if err := f.store.StoreConfig(k, v); err != nil {
			return err
		}
	}
	return nil
}
