package cluster

import (
	"testing"
	"time"

	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/types"
)

func newTestState() *State {
	broker := events.NewBroker()
	return NewState("test-cluster", broker)
}

func TestAddNodeAndQuorum(t *testing.T) {
	s := newTestState()

	s.AddNode(&types.Node{ID: "n1", Status: types.NodeStatusHealthy, Voting: true})
	if !s.HasQuorum() {
		t.Fatal("HasQuorum() = false with 1 of 1 healthy voting node, want true")
	}

	n, ok := s.GetNode("n1")
	if !ok || n.Status != types.NodeStatusHealthy {
		t.Fatalf("GetNode(n1) = (%+v, %v), want healthy node", n, ok)
	}
}

func TestQuorumMajority(t *testing.T) {
	s := newTestState()
	s.AddNode(&types.Node{ID: "n1", Status: types.NodeStatusHealthy, Voting: true})
	s.AddNode(&types.Node{ID: "n2", Status: types.NodeStatusHealthy, Voting: true})
	s.AddNode(&types.Node{ID: "n3", Status: types.NodeStatusFailed, Voting: true})

	if !s.HasQuorum() {
		t.Fatal("HasQuorum() = false with 2/3 healthy voting nodes, want true")
	}

	s.UpdateNode(&types.Node{ID: "n2", Status: types.NodeStatusFailed, Voting: true})
	if s.HasQuorum() {
		t.Fatal("HasQuorum() = true with 1/3 healthy voting nodes, want false")
	}
}

func TestDetectFailedNodesPromotesThenFails(t *testing.T) {
	s := newTestState()
	s.AddNode(&types.Node{ID: "n1", Status: types.NodeStatusHealthy, Voting: true})

	s.mu.Lock()
	s.cluster.Nodes["n1"].LastSeen = time.Now().Add(-5 * time.Second)
	s.mu.Unlock()

	changed := s.DetectFailedNodes(2 * time.Second)
	if len(changed) != 1 {
		t.Fatalf("DetectFailedNodes() changed = %v, want 1 entry", changed)
	}
	n, _ := s.GetNode("n1")
	if n.Status != types.NodeStatusSuspected {
		t.Fatalf("node status = %v, want suspected", n.Status)
	}

	s.mu.Lock()
	s.cluster.Nodes["n1"].LastSeen = time.Now().Add(-10 * time.Second)
	s.mu.Unlock()

	changed = s.DetectFailedNodes(2 * time.Second)
	if len(changed) != 1 {
		t.Fatalf("DetectFailedNodes() changed = %v, want 1 entry", changed)
	}
	n, _ = s.GetNode("n1")
	if n.Status != types.NodeStatusFailed {
		t.Fatalf("node status = %v, want failed", n.Status)
	}
}

func TestHealthSummary(t *testing.T) {
	s := newTestState()
	s.AddNode(&types.Node{ID: "n1", Status: types.NodeStatusHealthy, Voting: true})
	id := types.NodeID("n1")
	s.SetLeader(&id)

	summary := s.HealthSummary()
	if summary.Status != HealthHealthy {
		t.Fatalf("HealthSummary().Status = %v, want Healthy", summary.Status)
	}
	if !summary.HasLeader || !summary.HasQuorum {
		t.Fatalf("HealthSummary() = %+v, want leader and quorum", summary)
	}
}

func TestUpdateNodeLastSeenRecovers(t *testing.T) {
	s := newTestState()
	s.AddNode(&types.Node{ID: "n1", Status: types.NodeStatusSuspected, Voting: true})
	s.UpdateNodeLastSeen("n1")

	n, _ := s.GetNode("n1")
	if n.Status != types.NodeStatusHealthy {
		t.Fatalf("node status after UpdateNodeLastSeen = %v, want healthy", n.Status)
	}
}

func TestTokenManagerSingleUse(t *testing.T) {
	tm := NewTokenManager()
	tok, err := tm.GenerateToken(types.NodeRoleFollower, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	role, err := tm.ValidateToken(tok.Token)
	if err != nil || role != types.NodeRoleFollower {
		t.Fatalf("ValidateToken() = (%v, %v), want (follower, nil)", role, err)
	}

	if _, err := tm.ValidateToken(tok.Token); err == nil {
		t.Fatal("ValidateToken() on reused token, want error")
	}
}

func TestTokenManagerExpiry(t *testing.T) {
	tm := NewTokenManager()
	tok, err := tm.GenerateToken(types.NodeRoleFollower, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := tm.ValidateToken(tok.Token); err == nil {
		t.Fatal("ValidateToken() on expired token, want error")
	}

	if n := tm.CleanupExpiredTokens(); n != 1 {
		t.Fatalf("CleanupExpiredTokens() = %d, want 1", n)
	}
}
