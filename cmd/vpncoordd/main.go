// Command vpncoordd is the coordinator daemon: it loads the node's TOML
// configuration, stands up the container runtime, cluster state and
// consensus engine, every background collector/engine, the node control
// API and Prometheus metrics server, then blocks until a termination
// signal asks it to shut down in turn.
//
// Startup order: KV storage and core cluster state/consensus first, then
// the container runtime, then the user directory and background loops,
// then HTTP servers, then a signal-driven graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/vpncoord/pkg/api"
	"github.com/cuemby/vpncoord/pkg/batch"
	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/config"
	"github.com/cuemby/vpncoord/pkg/consensus"
	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/health"
	"github.com/cuemby/vpncoord/pkg/kv"
	"github.com/cuemby/vpncoord/pkg/lifecycle"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/logs"
	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/security"
	"github.com/cuemby/vpncoord/pkg/stats"
	"github.com/cuemby/vpncoord/pkg/types"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vpncoordd",
	Short:   "vpncoordd is the VPN cluster coordinator daemon",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("vpncoordd version %s\nCommit: %s\n", Version, Commit))
	rootCmd.Flags().String("config", "/etc/vpncoord/vpncoord.toml", "path to the coordinator's TOML configuration file")
	rootCmd.Flags().Bool("bootstrap", false, "bootstrap a new single-node cluster instead of joining one")
	rootCmd.Flags().String("join", "", "address of an existing node to join (raft BindAddr of a running cluster member)")
	cobra.OnInitialize(func() {})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	bootstrap, _ := cmd.Flags().GetBool("bootstrap")
	joinAddr, _ := cmd.Flags().GetString("join")

	cfg, err := loadOrInitConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Init(log.Config{Level: log.Level(cfg.General.LogLevel), JSONOutput: true})
	logger := log.WithComponent("daemon")
	metrics.SetVersion(Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- storage ---
	dataDir := filepath.Join(cfg.General.InstallDir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := kv.NewBoltStore(dataDir)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	metrics.RegisterComponent("kv", true, "ready")

	// --- cluster state & consensus ---
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	state := cluster.NewState(cfg.General.NodeName, broker)
	tokens := cluster.NewTokenManager()

	nodeID := cfg.General.NodeName
	var engine consensus.ConsensusEngine
	if bootstrap || joinAddr != "" {
		raftDir := filepath.Join(dataDir, "raft")
		raftEngine, err := consensus.NewEngine(consensus.Config{
			NodeID:    nodeID,
			BindAddr:  cfg.Server.BindAddress,
			DataDir:   raftDir,
			Bootstrap: bootstrap,
		}, store, state)
		if err != nil {
			return fmt.Errorf("start consensus engine: %w", err)
		}
		engine = raftEngine
		metrics.RegisterComponent("raft", true, "bootstrapped")
		if joinAddr != "" {
			logger.Info().Str("join_addr", joinAddr).Msg("joining existing cluster")
		}
	} else {
		engine = consensus.NewSimpleEngine(nodeID, store, state)
		metrics.RegisterComponent("raft", true, "simple mode")
	}
	defer engine.Shutdown()

	// --- container runtime ---
	rtDriver := runtime.DriverAuto
	switch {
	case cfg.Runtime.DockerEnabled && !cfg.Runtime.EmbeddedEnabled:
		rtDriver = runtime.DriverDocker
	case cfg.Runtime.EmbeddedEnabled && !cfg.Runtime.DockerEnabled:
		rtDriver = runtime.DriverEmbedded
	}
	rt, err := runtime.New(ctx, rtDriver, runtime.Options{
		EmbeddedDataDir:     filepath.Join(cfg.General.InstallDir, "containerd"),
		UseExternalEmbedded: false,
		Fallback:            true,
	})
	if err != nil {
		return fmt.Errorf("start container runtime: %w", err)
	}
	defer rt.Close()
	metrics.RegisterComponent("runtime", true, "ready")

	// --- user directory ---
	// Private keys are encrypted at rest with a key derived from the node's
	// cluster name; a real deployment should instead provision this key
	// out of band (§6 Security section), but deriving it keeps every node
	// that shares a cluster name able to decrypt the same records.
	clusterKey := security.DeriveKeyFromClusterID(cfg.General.NodeName)
	secrets, err := security.NewSecretsManager(clusterKey)
	if err != nil {
		return fmt.Errorf("init secrets manager: %w", err)
	}
	if err := security.SetClusterEncryptionKey(clusterKey); err != nil {
		return fmt.Errorf("init cluster encryption key: %w", err)
	}
	userDir, err := userdir.NewDirectory(filepath.Join(cfg.General.InstallDir, "users"), broker, secrets)
	if err != nil {
		return fmt.Errorf("open user directory: %w", err)
	}
	metrics.RegisterComponent("userdir", true, "ready")

	// --- engines and background collectors ---
	batchEngine := batch.NewEngine(broker)
	lifecycleEngine := lifecycle.NewEngine(rt)
	healthSupervisor := health.NewSupervisor(rt, 3)
	statsCollector := stats.NewCollector(rt, stats.Config{
		Interval:          cfg.Monitoring.StatsInterval,
		Retention:         time.Duration(cfg.Monitoring.RetentionDays) * 24 * time.Hour,
		MaxHistoryEntries: 240,
	})
	logsCollector := logs.NewCollector(filepath.Join(cfg.General.InstallDir, "logs"))
	metricsCollector := metrics.NewCollector(state, engine)

	lifecycleEngine.SetStats(statsCollector)

	statsCollector.Start(ctx)
	metricsCollector.Start()
	defer statsCollector.Stop()
	defer metricsCollector.Stop()
	metrics.RegisterComponent("stats", true, "ready")
	metrics.RegisterComponent("health", true, "ready")

	// healthSupervisor is ready to Register containers as the lifecycle
	// engine installs them; it has nothing to supervise at daemon start.
	_ = healthSupervisor

	// --- node control API ---
	apiServer := api.NewServer(api.Deps{
		State:     state,
		Engine:    engine,
		Users:     userDir,
		Runtime:   rt,
		Lifecycle: lifecycleEngine,
		Batch:     batchEngine,
		Stats:     statsCollector,
		Logs:      logsCollector,
		Tokens:    tokens,
	})

	apiAddr := cfg.Server.BindAddress
	if apiAddr == "" {
		apiAddr = "0.0.0.0"
	}
	apiListenAddr := fmt.Sprintf("%s:%d", apiAddr, cfg.Server.PortRangeStart)

	var nodeTLSConfig *tls.Config
	if cfg.Security.RequireMTLS {
		nodeTLSConfig, err = bringUpNodeTLS(store, nodeID, apiAddr)
		if err != nil {
			return fmt.Errorf("bring up cluster CA: %w", err)
		}
		metrics.RegisterComponent("ca", true, "ready")
	}

	go func() {
		var serveErr error
		if nodeTLSConfig != nil {
			serveErr = apiServer.ListenAndServeTLS(apiListenAddr, nodeTLSConfig)
		} else {
			serveErr = apiServer.ListenAndServe(apiListenAddr)
		}
		if serveErr != nil {
			logger.Error().Err(serveErr).Msg("api server exited")
		}
	}()
	metrics.RegisterComponent("api", true, "ready")

	if bootstrap {
		tok, err := tokens.GenerateToken(types.NodeRoleFollower, 24*time.Hour)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to mint initial join token")
		} else {
			logger.Info().Str("token", tok.Token).Msg("cluster bootstrapped; share this token with nodes that need to join")
		}
	}

	logger.Info().Str("node_id", nodeID).Str("api_addr", apiListenAddr).Msg("vpncoordd ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()
	return nil
}

// bringUpNodeTLS loads the cluster's internal CA from store, initializing it
// if this is the first node to reach this point, then issues addr's node a
// leaf certificate and returns a server tls.Config that requires every peer
// on the node control API to present a certificate signed by that same CA.
func bringUpNodeTLS(store kv.Store, nodeID, bindHost string) (*tls.Config, error) {
	ca := security.NewCertAuthority(store)
	if err := ca.LoadFromStore(); err != nil {
		if err := ca.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize cluster CA: %w", err)
		}
		if err := ca.SaveToStore(); err != nil {
			return nil, fmt.Errorf("persist cluster CA: %w", err)
		}
	}

	var ips []net.IP
	if ip := net.ParseIP(bindHost); ip != nil {
		ips = append(ips, ip)
	}
	dnsNames := []string{nodeID}
	if !strings.Contains(bindHost, ":") {
		dnsNames = append(dnsNames, bindHost)
	}
	nodeCert, err := ca.IssueNodeCertificate(nodeID, "coordinator", dnsNames, ips)
	if err != nil {
		return nil, fmt.Errorf("issue node certificate: %w", err)
	}

	rootCert, err := x509.ParseCertificate(ca.GetRootCACert())
	if err != nil {
		return nil, fmt.Errorf("parse root CA certificate: %w", err)
	}
	rootPool := x509.NewCertPool()
	rootPool.AddCert(rootCert)

	return &tls.Config{
		Certificates: []tls.Certificate{*nodeCert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    rootPool,
		RootCAs:      rootPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func loadOrInitConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		if err := config.Save(path, cfg); err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}
	return config.Load(path)
}
