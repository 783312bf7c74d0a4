// Package api implements the coordinator's node control API: a plain
// net/http JSON surface, using a ServeMux-and-handler-method shape (see
// DESIGN.md's "Dropped teacher dependencies" for the dropped-gRPC
// rationale).
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpncoord/pkg/batch"
	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/consensus"
	"github.com/cuemby/vpncoord/pkg/lifecycle"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/logs"
	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/stats"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

// Server exposes cluster membership, user directory, container lifecycle,
// stats and logs over JSON-over-HTTP, built as a mux bound to handler
// methods on a single struct.
type Server struct {
	state     *cluster.State
	engine    consensus.ConsensusEngine
	users     *userdir.Directory
	rt        runtime.Runtime
	lifecycle *lifecycle.Engine
	batch     *batch.Engine
	statsC    *stats.Collector
	logsC     *logs.Collector
	tokens    *cluster.TokenManager

	mux *http.ServeMux
	log zerolog.Logger
}

// Deps bundles every component Server dispatches requests to. Fields may
// be nil; handlers that need a missing dependency report 503.
type Deps struct {
	State     *cluster.State
	Engine    consensus.ConsensusEngine
	Users     *userdir.Directory
	Runtime   runtime.Runtime
	Lifecycle *lifecycle.Engine
	Batch     *batch.Engine
	Stats     *stats.Collector
	Logs      *logs.Collector
	Tokens    *cluster.TokenManager
}

// NewServer builds the node control API's handler, registering every
// route on a fresh ServeMux.
func NewServer(deps Deps) *Server {
	s := &Server{
		state:     deps.State,
		engine:    deps.Engine,
		users:     deps.Users,
		rt:        deps.Runtime,
		lifecycle: deps.Lifecycle,
		batch:     deps.Batch,
		statsC:    deps.Stats,
		logsC:     deps.Logs,
		tokens:    deps.Tokens,
		mux:       http.NewServeMux(),
		log:       log.WithComponent("api"),
	}

	s.mux.HandleFunc("/v1/cluster", s.handleCluster)
	s.mux.HandleFunc("/v1/nodes", s.handleNodes)
	s.mux.HandleFunc("/v1/nodes/join", s.handleNodeJoin)
	s.mux.HandleFunc("/v1/tokens", s.handleTokens)
	s.mux.HandleFunc("/v1/users", s.handleUsers)
	s.mux.HandleFunc("/v1/users/", s.handleUserByID)
	s.mux.HandleFunc("/v1/containers", s.handleContainers)
	s.mux.HandleFunc("/v1/containers/", s.handleContainerByID)
	s.mux.HandleFunc("/v1/bulk/", s.handleBulkRoute)
	s.mux.HandleFunc("/v1/stats/", s.handleContainerStats)
	s.mux.HandleFunc("/v1/logs/", s.handleContainerLogs)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { metrics.HealthHandler()(w, r) })
	s.mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) { metrics.ReadyHandler()(w, r) })
	s.mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) { metrics.LivenessHandler()(w, r) })

	return s
}

// Handler returns the API's http.Handler for embedding or direct serving.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the API on addr with conservative read/write/idle
// timeouts.
func (s *Server) ListenAndServe(addr string) error {
	srv := s.newServer(addr)
	s.log.Info().Str("addr", addr).Msg("api server listening")
	return srv.ListenAndServe()
}

// ListenAndServeTLS starts the API on addr under tlsConfig, for clusters
// running with §6 mutual TLS between nodes. A tlsConfig with
// ClientAuth == tls.RequireAndVerifyClientCert rejects any peer that can't
// present a certificate issued by the cluster's root CA.
func (s *Server) ListenAndServeTLS(addr string, tlsConfig *tls.Config) error {
	srv := s.newServer(addr)
	srv.TLSConfig = tlsConfig
	s.log.Info().Str("addr", addr).Bool("mtls", tlsConfig.ClientAuth == tls.RequireAndVerifyClientCert).Msg("api server listening")
	return srv.ListenAndServeTLS("", "")
}

func (s *Server) newServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type errMsg string

func (e errMsg) Error() string { return string(e) }

func requestContext(r *http.Request) context.Context {
	return r.Context()
}
