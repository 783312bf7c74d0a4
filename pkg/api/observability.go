package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/vpncoord/pkg/logs"
	"github.com/cuemby/vpncoord/pkg/types"
)

func (s *Server) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	if s.statsC == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("stats collector not initialized"))
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/stats/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeJSON(w, http.StatusOK, s.statsC.AllCurrent())
		return
	}

	if len(parts) > 1 && parts[1] == "history" {
		writeJSON(w, http.StatusOK, s.statsC.History(id))
		return
	}
	if len(parts) > 1 && parts[1] == "trends" {
		period := parseDuration(r.URL.Query().Get("period"), 0)
		trends, ok := s.statsC.GetUsageTrends(id, period)
		if !ok {
			writeError(w, http.StatusNotFound, errMsg("no trend data for container"))
			return
		}
		writeJSON(w, http.StatusOK, trends)
		return
	}

	data, err := s.statsC.ExportJSON(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	if s.logsC == nil {
		writeError(w, http.StatusServiceUnavailable, errMsg("log collector not initialized"))
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/logs/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	filter := logs.Filter{}
	if tail, err := strconv.Atoi(q.Get("tail")); err == nil {
		filter.Tail = tail
	}
	if lv := q.Get("level"); lv != "" {
		filter.Levels = []types.LogLevel{types.LogLevel(lv)}
	}

	if pattern := q.Get("search"); pattern != "" {
		entries, err := s.logsC.Search(id, pattern, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := s.logsC.ReadEntries(id, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
