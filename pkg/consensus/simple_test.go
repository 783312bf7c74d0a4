package consensus

import (
	"testing"

	"github.com/hashicorp/raft"

	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/kv"
)

func TestSimpleEngineProposeKV(t *testing.T) {
	store := kv.NewMemoryStore()
	state := cluster.NewState("test", events.NewBroker())
	e := NewSimpleEngine("n1", store, state)

	if !e.IsLeader() {
		t.Fatal("IsLeader() = false, want true in simple-consensus mode")
	}

	err := e.ProposeKV(kv.Op{Kind: kv.OpSet, Key: "k", Value: []byte("v")})
	if err != nil {
		t.Fatalf("ProposeKV() error = %v", err)
	}

	v, ok, err := store.GetConfig("k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("GetConfig() = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}
}

func TestSimpleEngineJoinLeave(t *testing.T) {
	store := kv.NewMemoryStore()
	state := cluster.NewState("test", events.NewBroker())
	e := NewSimpleEngine("n1", store, state)

	if err := e.Join("n2", "10.0.0.2:7000", true); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, ok := state.GetNode("n2"); !ok {
		t.Fatal("node n2 not present after Join()")
	}

	if err := e.Leave("n2"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if _, ok := state.GetNode("n2"); ok {
		t.Fatal("node n2 still present after Leave()")
	}
}

func TestFSMApplyKVCommand(t *testing.T) {
	store := kv.NewMemoryStore()
	state := cluster.NewState("test", events.NewBroker())
	fsm := NewFSM(store, state)

	raw, err := encodeCommand(cmdKV, KVCommand{Kind: "set", Key: "a", Value: []byte("1")})
	if err != nil {
		t.Fatalf("encodeCommand() error = %v", err)
	}

	result := fsm.Apply(&raft.Log{Data: raw})
	if result != nil {
		t.Fatalf("Apply() = %v, want nil", result)
	}

	v, ok, err := store.GetConfig("a")
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("GetConfig() = (%q, %v, %v), want (1, true, nil)", v, ok, err)
	}
}
