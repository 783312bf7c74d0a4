package consensus

import (
	"sync"

	"github.com/cuemby/vpncoord/pkg/cluster"
	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/kv"
	"github.com/cuemby/vpncoord/pkg/types"
)

// SimpleEngine is the single-node consensus fallback (§4.J, SPEC_FULL.md
// Open Question 2): it applies kv.Ops directly, without a replicated
// log, and always reports itself as leader. Used for standalone
// deployments and tests that don't need multi-node durability.
type SimpleEngine struct {
	mu    sync.Mutex
	store kv.Store
	state *cluster.State
	self  types.NodeID
}

// NewSimpleEngine wraps store/state for single-node operation.
func NewSimpleEngine(self types.NodeID, store kv.Store, state *cluster.State) *SimpleEngine {
	return &SimpleEngine{store: store, state: state, self: self}
}

// Join registers a node directly into the cluster projection; since
// there is no log to replicate through, this is immediate.
func (e *SimpleEngine) Join(nodeID, addr string, voting bool) error {
	e.state.AddNode(&types.Node{
		ID:      nodeID,
		Address: addr,
		Role:    types.NodeRoleFollower,
		Status:  types.NodeStatusJoining,
		Voting:  voting,
	})
	return nil
}

// Leave removes a node directly.
func (e *SimpleEngine) Leave(nodeID string) error {
	e.state.RemoveNode(nodeID)
	return nil
}

// TransferLeadership is a no-op in single-node mode: there is only ever
// one voter, so transfer always fails to find a target.
func (e *SimpleEngine) TransferLeadership() error {
	return vpnerrors.NewConsensusError(vpnerrors.ConsensusElectionFailed, "no peer to transfer leadership to in simple-consensus mode")
}

// ProposeKV applies the op directly against the store, bypassing any log.
func (e *SimpleEngine) ProposeKV(op kv.Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Transaction([]kv.Op{op})
}

// IsLeader is always true: the sole node is always its own leader.
func (e *SimpleEngine) IsLeader() bool { return true }

// LeaderAddr returns this node's own id, since it is always leader.
func (e *SimpleEngine) LeaderAddr() string { return string(e.self) }

// Stats reports a minimal, raft-shaped diagnostic map.
func (e *SimpleEngine) Stats() map[string]string {
	return map[string]string{"state": "Leader", "mode": "simple"}
}

// Shutdown is a no-op; there is no background goroutine to stop.
func (e *SimpleEngine) Shutdown() error { return nil }

// ConsensusEngine is the interface pkg/cluster callers and the API layer consume;
// both *consensus.Engine (raft-backed) and *SimpleEngine satisfy it.
type ConsensusEngine interface {
	Join(nodeID, addr string, voting bool) error
	Leave(nodeID string) error
	TransferLeadership() error
	ProposeKV(op kv.Op) error
	IsLeader() bool
	LeaderAddr() string
	Stats() map[string]string
	Shutdown() error
}

var (
	_ ConsensusEngine = (*Engine)(nil)
	_ ConsensusEngine = (*SimpleEngine)(nil)
)
