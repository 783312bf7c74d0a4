package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/vpncoord/pkg/lifecycle"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/types"
)

func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	if s.rt == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("runtime not initialized"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := runtime.ContainerFilter{NamePrefix: q.Get("name_prefix")}
		if st := q.Get("state"); st != "" {
			filter.State = types.ContainerState(st)
		}
		list, err := s.rt.List(requestContext(r), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var spec types.ContainerSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c, err := s.rt.Create(requestContext(r), spec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleContainerByID(w http.ResponseWriter, r *http.Request) {
	if s.rt == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("runtime not initialized"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/containers/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	if action != "" {
		s.handleContainerAction(w, r, id, action)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.rt.Get(requestContext(r), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		force := r.URL.Query().Get("force") == "true"
		if err := s.rt.Remove(requestContext(r), id, force); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleContainerAction(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := requestContext(r)
	var err error
	switch action {
	case "start":
		err = s.rt.Start(ctx, id)
	case "stop":
		err = s.rt.Stop(ctx, id, 10*time.Second)
	case "restart":
		if s.lifecycle != nil {
			err = s.lifecycle.Restart(ctx, id, 10*time.Second)
		} else {
			err = s.rt.Restart(ctx, id, 10*time.Second)
		}
	case "pause":
		err = s.rt.Pause(ctx, id)
	case "unpause":
		err = s.rt.Unpause(ctx, id)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": action + "ed"})
}

type bulkRequest struct {
	IDs   []string             `json:"ids"`
	Force bool                 `json:"force"`
	Opts  lifecycle.BulkOptions `json:"options"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request, op string) {
	if s.lifecycle == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("lifecycle engine not initialized"))
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := requestContext(r)
	var result interface{}
	switch op {
	case "start":
		result = s.lifecycle.BulkStart(ctx, req.IDs, req.Opts)
	case "stop":
		result = s.lifecycle.BulkStop(ctx, req.IDs, req.Opts)
	case "restart":
		result = s.lifecycle.BulkRestart(ctx, req.IDs, req.Opts)
	case "remove":
		result = s.lifecycle.BulkRemove(ctx, req.IDs, req.Force, req.Opts)
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBulkRoute dispatches /v1/bulk/<op> to handleBulk.
func (s *Server) handleBulkRoute(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.URL.Path, "/v1/bulk/")
	s.handleBulk(w, r, op)
}
