package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

type clusterStatusResponse struct {
	IsLeader    bool              `json:"is_leader"`
	LeaderAddr  string            `json:"leader_addr"`
	HasQuorum   bool              `json:"has_quorum"`
	Stats       map[string]string `json:"stats"`
	Snapshot    types.ClusterState `json:"snapshot"`
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.state == nil || s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("cluster not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, clusterStatusResponse{
		IsLeader:   s.engine.IsLeader(),
		LeaderAddr: s.engine.LeaderAddr(),
		HasQuorum:  s.state.HasQuorum(),
		Stats:      s.engine.Stats(),
		Snapshot:   s.state.Snapshot(),
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.state == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("cluster not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, s.state.GetNodes())
}

type joinRequest struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
	Voting  bool   `json:"voting"`
	Token   string `json:"token"`
}

func (s *Server) handleNodeJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("consensus not initialized"))
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.tokens != nil {
		if _, err := s.tokens.ValidateToken(req.Token); err != nil {
			writeError(w, http.StatusForbidden, err)
			return
		}
	}
	if err := s.engine.Join(req.NodeID, req.Address, req.Voting); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

type tokenRequest struct {
	Role types.NodeRole `json:"role"`
	TTL  string         `json:"ttl"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("token manager not initialized"))
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ttl := 24 * time.Hour
		if req.TTL != "" {
			parsed, err := time.ParseDuration(req.TTL)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			ttl = parsed
		}
		tok, err := s.tokens.GenerateToken(req.Role, ttl)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, tok)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.tokens.ListTokens())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
