package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/vpncoord/pkg/deploy"
	"github.com/cuemby/vpncoord/pkg/stats"
	"github.com/cuemby/vpncoord/pkg/types"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

func TestInstallAndUninstall(t *testing.T) {
	installDir := filepath.Join(t.TempDir(), "install")
	usersDir := filepath.Join(t.TempDir(), "users")

	dir, err := userdir.NewDirectory(usersDir, nil, nil)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	rt := newFakeRuntime()
	engine := NewEngine(rt)

	result, err := engine.Install(context.Background(), InstallSpec{
		InstallDir:      installDir,
		Protocol:        types.ProtocolShadowsocks,
		Compose:         deploy.ComposeSpec{ContainerName: "test-ss"},
		InitialUserName: "alice",
		PrivateKey:      "priv",
		PublicKey:       "pub",
		ShortID:         "short",
	}, dir)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if result.ContainerID == "" {
		t.Fatal("ContainerID is empty")
	}
	if result.InitialUser == nil || result.InitialUser.Name != "alice" {
		t.Fatalf("InitialUser = %v, want alice", result.InitialUser)
	}

	if _, err := os.Stat(filepath.Join(installDir, "docker-compose.yml")); err != nil {
		t.Fatalf("docker-compose.yml not written: %v", err)
	}

	if err := engine.Uninstall(context.Background(), installDir, result.ContainerID, 0); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(installDir); !os.IsNotExist(err) {
		t.Fatalf("install dir still exists after Uninstall: %v", err)
	}
}

func TestInstallRegistersAndUninstallUnregistersStats(t *testing.T) {
	installDir := filepath.Join(t.TempDir(), "install")
	usersDir := filepath.Join(t.TempDir(), "users")

	dir, err := userdir.NewDirectory(usersDir, nil, nil)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	rt := newFakeRuntime()
	engine := NewEngine(rt)
	collector := stats.NewCollector(rt, stats.Config{})
	engine.SetStats(collector)

	result, err := engine.Install(context.Background(), InstallSpec{
		InstallDir: installDir,
		Protocol:   types.ProtocolWireGuard,
		Compose:    deploy.ComposeSpec{ContainerName: "test-wg"},
	}, dir)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	collector.Start(context.Background())
	defer collector.Stop()

	if err := engine.Uninstall(context.Background(), installDir, result.ContainerID, 0); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, ok := collector.CurrentStats(result.ContainerID); ok {
		t.Fatal("CurrentStats() ok = true for a container unregistered by Uninstall")
	}
}
