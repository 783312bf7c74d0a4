package consensus

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/cuemby/vpncoord/pkg/cluster"
	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/kv"
	"github.com/cuemby/vpncoord/pkg/types"
)

// electionTimeoutMin/Max bound raft's randomized election timer, per §4.J
// ("randomized election timeout 150-300ms").
const (
	electionTimeoutMin = 150 * time.Millisecond
	electionTimeoutMax = 300 * time.Millisecond
)

// Config configures a multi-node Engine. BindAddr is the Raft transport
// listen address; DataDir holds the log store and stable store (raft.db)
// and the snapshot store, directly under DataDir.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
	Bootstrap bool
}

// Engine wraps a hashicorp/raft.Raft instance driving an FSM, grounded
// on the standard hashicorp/raft bootstrap/join/apply lifecycle.
type Engine struct {
	raft  *raft.Raft
	fsm   *FSM
	state *cluster.State
}

// NewEngine constructs the Raft transport, log/stable stores and
// snapshot store under cfg.DataDir, and starts (or bootstraps) the Raft
// instance over the given FSM dependencies.
func NewEngine(cfg Config, store kv.Store, state *cluster.State) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, vpnerrors.NewStorageError("create raft data dir", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.ElectionTimeout = electionTimeoutMax
	raftCfg.HeartbeatTimeout = electionTimeoutMin
	raftCfg.LeaderLeaseTimeout = electionTimeoutMin
	raftCfg.LogOutput = os.Stderr

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, vpnerrors.NewNetworkError(cfg.BindAddr, err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, vpnerrors.NewNetworkError(cfg.BindAddr, err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, vpnerrors.NewStorageError("create snapshot store", err)
	}

	boltStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft.db"))
	if err != nil {
		return nil, vpnerrors.NewStorageError("create raft log store", err)
	}

	fsm := NewFSM(store, state)

	r, err := raft.NewRaft(raftCfg, fsm, boltStore, boltStore, snapshots, transport)
	if err != nil {
		return nil, vpnerrors.NewConsensusError(vpnerrors.ConsensusLogConflict, err.Error())
	}

	if cfg.Bootstrap {
		cfgFuture := r.BootstrapCluster(raft.Configuration{
			Servers: []raft.Server{
				{ID: raftCfg.LocalID, Address: transport.LocalAddr()},
			},
		})
		if err := cfgFuture.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, vpnerrors.NewConsensusError(vpnerrors.ConsensusLogConflict, err.Error())
		}
	}

	return &Engine{raft: r, fsm: fsm, state: state}, nil
}

// Join adds a voting or non-voting server to the cluster; only the
// leader may execute this successfully.
func (e *Engine) Join(nodeID, addr string, voting bool) error {
	if e.raft.State() != raft.Leader {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusNotLeader, "join must be proposed to the leader")
	}

	var future raft.IndexFuture
	if voting {
		future = e.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second)
	} else {
		future = e.raft.AddNonvoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second)
	}
	if err := future.Error(); err != nil {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusLogConflict, err.Error())
	}

	cmd := MembershipCommand{NodeID: nodeID, Address: addr, Role: string(types.NodeRoleFollower), Voting: voting}
	return e.propose(cmdAddNode, cmd)
}

// Leave removes a server from the cluster configuration.
func (e *Engine) Leave(nodeID string) error {
	if e.raft.State() != raft.Leader {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusNotLeader, "leave must be proposed to the leader")
	}
	future := e.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusLogConflict, err.Error())
	}
	return e.propose(cmdRemoveNode, MembershipCommand{NodeID: nodeID})
}

// TransferLeadership hands off leadership to another voter, used for
// graceful drain of a node (§4.I/J).
func (e *Engine) TransferLeadership() error {
	future := e.raft.LeadershipTransfer()
	return future.Error()
}

// ProposeKV replicates a single kv.Op through the raft log. It blocks
// until the entry is committed and applied, or times out.
func (e *Engine) ProposeKV(op kv.Op) error {
	if e.raft.State() != raft.Leader {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusNotLeader, "propose must go to the leader")
	}

	kind := "set"
	switch op.Kind {
	case kv.OpDelete:
		kind = "delete"
	case kv.OpConditionalSet:
		kind = "conditional_set"
	}
	cmd := KVCommand{Kind: kind, Key: op.Key, Value: op.Value, ExpectedPresent: op.ExpectedPresent, ExpectedPrior: op.ExpectedPrior}
	return e.propose(cmdKV, cmd)
}

func (e *Engine) propose(kind commandKind, data interface{}) error {
	raw, err := encodeCommand(kind, data)
	if err != nil {
		return vpnerrors.NewOperationError("encode consensus command", err.Error())
	}

	future := e.raft.Apply(raw, 10*time.Second)
	if err := future.Error(); err != nil {
		return vpnerrors.NewConsensusError(vpnerrors.ConsensusLogConflict, err.Error())
	}
	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok {
			return err
		}
	}
	return nil
}

// IsLeader reports whether this node currently holds leadership.
func (e *Engine) IsLeader() bool {
	return e.raft.State() == raft.Leader
}

// LeaderAddr returns the current known leader's transport address.
func (e *Engine) LeaderAddr() string {
	addr, _ := e.raft.LeaderWithID()
	return string(addr)
}

// Stats exposes the underlying raft library's diagnostic map (term,
// commit index, applied index, ...), which pkg/metrics.Collector reads
// into its raft gauges and the API returns in its cluster response.
func (e *Engine) Stats() map[string]string {
	return e.raft.Stats()
}

// Shutdown stops the raft instance.
func (e *Engine) Shutdown() error {
	return e.raft.Shutdown().Error()
}
