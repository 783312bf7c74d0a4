// Package consensus drives the replicated pkg/kv.Store through either a
// hashicorp/raft log (multi-node) or a direct pass-through (single-node
// "simple consensus" mode), per §4.J and the SPEC_FULL.md decision on
// Open Question 2.
package consensus

import "encoding/json"

// commandKind tags the payload a Command carries through the log.
type commandKind string

const (
	cmdKV        commandKind = "kv"
	cmdAddNode   commandKind = "add_node"
	cmdRemoveNode commandKind = "remove_node"
)

// Command is the unit of replication applied by the FSM to both the
// cluster membership projection and the embedded KV store.
type Command struct {
	Kind commandKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// KVCommand carries a single kv.Op (re-declared locally to avoid a
// circular dependency back onto pkg/cluster's consumers).
type KVCommand struct {
	Kind            string `json:"kind"`
	Key             string `json:"key"`
	Value           []byte `json:"value,omitempty"`
	ExpectedPresent bool   `json:"expected_present,omitempty"`
	ExpectedPrior   []byte `json:"expected_prior,omitempty"`
}

// MembershipCommand carries an add/remove-node mutation.
type MembershipCommand struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
	Role    string `json:"role"`
	Voting  bool   `json:"voting"`
}

func encodeCommand(kind commandKind, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Command{Kind: kind, Data: raw})
}
