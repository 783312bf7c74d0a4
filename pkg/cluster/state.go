// Package cluster owns the replicated ClusterState (§4.I): node
// membership, leader pointer, quorum and failure detection, and a
// publish/subscribe projection of every mutation. It is a derived
// projection that the consensus engine (pkg/consensus) publishes into
// under its own lock; cluster itself never drives elections.
package cluster

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/types"
)

// HealthStatus is the cluster-wide classification from §4.I.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthSummary is the result of State.HealthSummary.
type HealthSummary struct {
	Status      HealthStatus
	HasQuorum   bool
	HasLeader   bool
	HealthyN    int
	TotalN      int
}

// State owns a types.ClusterState behind a reader-writer lock and
// broadcasts membership, leadership, recovery/failure and config changes
// to subscribers over a bounded channel (the DistributedState contract of
// §4.I). UpdateNode and SetTerm change the state without publishing an
// event.
type State struct {
	mu      sync.RWMutex
	cluster *types.ClusterState
	broker  *events.Broker
	log     zerolog.Logger
}

// NewState creates a new cluster state owner for the named cluster.
func NewState(name string, broker *events.Broker) *State {
	now := time.Now()
	return &State{
		cluster: &types.ClusterState{
			Name:      name,
			Nodes:     make(map[types.NodeID]*types.Node),
			Config:    make(map[string]string),
			CreatedAt: now,
			UpdatedAt: now,
		},
		broker: broker,
		log:    log.WithComponent("cluster"),
	}
}

func (s *State) bump() {
	s.cluster.ConfigVersion++
	s.cluster.UpdatedAt = time.Now()
}

func (s *State) publish(evtType events.EventType, msg string, meta map[string]string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(&events.Event{Type: evtType, Message: msg, Metadata: meta})
}

// AddNode registers a new node and immediately recomputes quorum — the
// Rust source (vpn-cluster/src/coordination.rs) does this eagerly on
// join/leave rather than waiting for the next tick; kept here per
// SPEC_FULL.md's "Supplemented features".
func (s *State) AddNode(n *types.Node) {
	s.mu.Lock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.LastSeen = time.Now()
	s.cluster.Nodes[n.ID] = n
	s.bump()
	quorum := s.hasQuorumLocked()
	s.mu.Unlock()

	s.log.Info().Str("node_id", n.ID).Bool("has_quorum", quorum).Msg("node joined")
	s.publish(events.EventNodeJoined, "node joined", map[string]string{"node_id": n.ID})
}

// RemoveNode deletes a node, clearing leadership if it was the leader, and
// recomputes quorum the same way AddNode does.
func (s *State) RemoveNode(id types.NodeID) {
	s.mu.Lock()
	delete(s.cluster.Nodes, id)
	if s.cluster.Leader != nil && *s.cluster.Leader == id {
		s.cluster.Leader = nil
	}
	s.bump()
	quorum := s.hasQuorumLocked()
	s.mu.Unlock()

	s.log.Info().Str("node_id", id).Bool("has_quorum", quorum).Msg("node left")
	s.publish(events.EventNodeLeft, "node left", map[string]string{"node_id": id})
}

// UpdateNode replaces a node's record wholesale.
func (s *State) UpdateNode(n *types.Node) {
	s.mu.Lock()
	s.cluster.Nodes[n.ID] = n
	s.bump()
	s.mu.Unlock()
}

// GetNode returns a copy of the node record, if present.
func (s *State) GetNode(id types.NodeID) (*types.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.cluster.Nodes[id]
	if !ok {
		return nil, false
	}
	cp := *n
	return &cp, true
}

// GetNodes returns a snapshot of all nodes.
func (s *State) GetNodes() []*types.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Node, 0, len(s.cluster.Nodes))
	for _, n := range s.cluster.Nodes {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

// SetLeader sets or clears the current leader pointer.
func (s *State) SetLeader(id *types.NodeID) {
	s.mu.Lock()
	s.cluster.Leader = id
	s.bump()
	s.mu.Unlock()

	if id != nil {
		s.log.Info().Str("node_id", *id).Msg("leader elected")
		s.publish(events.EventLeaderElected, "leader elected", map[string]string{"node_id": *id})
	} else {
		s.log.Warn().Msg("leader lost")
		s.publish(events.EventLeaderLost, "leader lost", nil)
	}
}

// GetLeader returns the current leader id, if any.
func (s *State) GetLeader() (types.NodeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cluster.Leader == nil {
		return "", false
	}
	return *s.cluster.Leader, true
}

// SetTerm records the current consensus term; Term is monotonically
// non-decreasing, so a lower value is ignored.
func (s *State) SetTerm(term uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if term > s.cluster.Term {
		s.cluster.Term = term
	}
}

// Term returns the current term.
func (s *State) Term() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cluster.Term
}

// UpdateNodeLastSeen refreshes a node's heartbeat timestamp and clears
// suspected/failed back to healthy ("recovery").
func (s *State) UpdateNodeLastSeen(id types.NodeID) {
	s.mu.Lock()
	n, ok := s.cluster.Nodes[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	recovered := n.Status == types.NodeStatusSuspected || n.Status == types.NodeStatusFailed
	n.LastSeen = time.Now()
	n.Status = types.NodeStatusHealthy
	s.bump()
	s.mu.Unlock()

	if recovered {
		s.publish(events.EventNodeRecovered, "node recovered", map[string]string{"node_id": id})
	}
}

// DetectFailedNodes promotes healthy/suspected nodes whose LastSeen is
// older than timeout to suspected, and suspected nodes older than
// 2*timeout to failed (clearing leadership if the failed node was
// leader). Returns the ids that changed status this call.
func (s *State) DetectFailedNodes(timeout time.Duration) []types.NodeID {
	now := time.Now()
	var changed []types.NodeID

	s.mu.Lock()
	for id, n := range s.cluster.Nodes {
		age := now.Sub(n.LastSeen)
		switch n.Status {
		case types.NodeStatusHealthy:
			if age > timeout {
				n.Status = types.NodeStatusSuspected
				changed = append(changed, id)
			}
		case types.NodeStatusSuspected:
			if age > 2*timeout {
				n.Status = types.NodeStatusFailed
				if s.cluster.Leader != nil && *s.cluster.Leader == id {
					s.cluster.Leader = nil
				}
				changed = append(changed, id)
			}
		}
	}
	if len(changed) > 0 {
		s.bump()
	}
	s.mu.Unlock()

	for _, id := range changed {
		n, _ := s.GetNode(id)
		if n != nil && n.Status == types.NodeStatusFailed {
			s.log.Warn().Str("node_id", id).Msg("node failed")
			s.publish(events.EventNodeDown, "node failed", map[string]string{"node_id": id})
		} else {
			s.log.Warn().Str("node_id", id).Msg("node suspected")
			s.publish(events.EventNodeSuspected, "node suspected", map[string]string{"node_id": id})
		}
	}
	return changed
}

// HasQuorum reports whether a strict majority of voting nodes are
// healthy.
func (s *State) HasQuorum() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasQuorumLocked()
}

func (s *State) hasQuorumLocked() bool {
	voting, healthy := 0, 0
	for _, n := range s.cluster.Nodes {
		if !n.Voting {
			continue
		}
		voting++
		if n.Status == types.NodeStatusHealthy {
			healthy++
		}
	}
	if voting == 0 {
		return false
	}
	return healthy*2 > voting
}

// HealthSummary classifies the cluster as Healthy (all nodes up, leader
// present, quorum), Degraded (quorum but gaps), or Unhealthy (no quorum).
func (s *State) HealthSummary() HealthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, healthy := 0, 0
	for _, n := range s.cluster.Nodes {
		total++
		if n.Status == types.NodeStatusHealthy {
			healthy++
		}
	}
	quorum := s.hasQuorumLocked()
	hasLeader := s.cluster.Leader != nil

	summary := HealthSummary{HasQuorum: quorum, HasLeader: hasLeader, HealthyN: healthy, TotalN: total}
	switch {
	case !quorum:
		summary.Status = HealthUnhealthy
	case healthy == total && hasLeader:
		summary.Status = HealthHealthy
	default:
		summary.Status = HealthDegraded
	}
	return summary
}

// SetConfig stores a replicated configuration value.
func (s *State) SetConfig(key, value string) {
	s.mu.Lock()
	s.cluster.Config[key] = value
	s.bump()
	s.mu.Unlock()
	s.publish(events.EventConfigChanged, "config changed", map[string]string{"key": key})
}

// GetConfig reads a replicated configuration value.
func (s *State) GetConfig(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cluster.Config[key]
	return v, ok
}

// Snapshot returns a deep-enough copy of the cluster state for callers
// that need a point-in-time read without holding the lock.
func (s *State) Snapshot() types.ClusterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make(map[types.NodeID]*types.Node, len(s.cluster.Nodes))
	for id, n := range s.cluster.Nodes {
		cp := *n
		nodes[id] = &cp
	}
	config := make(map[string]string, len(s.cluster.Config))
	for k, v := range s.cluster.Config {
		config[k] = v
	}
	var leader *types.NodeID
	if s.cluster.Leader != nil {
		id := *s.cluster.Leader
		leader = &id
	}

	return types.ClusterState{
		Name:          s.cluster.Name,
		Nodes:         nodes,
		Leader:        leader,
		Term:          s.cluster.Term,
		ConfigVersion: s.cluster.ConfigVersion,
		Config:        config,
		CreatedAt:     s.cluster.CreatedAt,
		UpdatedAt:     s.cluster.UpdatedAt,
	}
}
