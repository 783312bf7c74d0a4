package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cuemby/vpncoord/pkg/types"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

type createUserRequest struct {
	Name     string         `json:"name"`
	Protocol types.Protocol `json:"protocol"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("user directory not initialized"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := userDirFilter(q)
		writeJSON(w, http.StatusOK, s.users.ListUsers(filter))
	case http.MethodPost:
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := s.users.CreateUser(req.Name, req.Protocol)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("user directory not initialized"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		u, err := s.users.GetUser(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodDelete:
		if err := s.users.DeleteUser(id); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func userDirFilter(q map[string][]string) (f userdir.Filter) {
	if v, ok := q["status"]; ok && len(v) > 0 {
		f.Status = types.UserStatus(v[0])
	}
	if v, ok := q["protocol"]; ok && len(v) > 0 {
		f.Protocol = types.Protocol(v[0])
	}
	if v, ok := q["name"]; ok && len(v) > 0 {
		f.NameContains = v[0]
	}
	return f
}
