package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/vpncoord/pkg/types"
)

func TestRenderComposeDefaultImage(t *testing.T) {
	data, err := RenderCompose(ComposeSpec{
		Protocol: types.ProtocolVless,
		Ports:    []types.PortMapping{{ContainerPort: 443, HostPort: 443, Protocol: "tcp"}},
	})
	if err != nil {
		t.Fatalf("RenderCompose() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("RenderCompose() returned empty document")
	}
}

func TestRenderComposeUnknownProtocolNoImage(t *testing.T) {
	_, err := RenderCompose(ComposeSpec{Protocol: "bogus"})
	if err == nil {
		t.Fatal("RenderCompose() error = nil, want error for unknown protocol with no image")
	}
}

func TestPrepareDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	if err := PrepareDirectoryTree(dir); err != nil {
		t.Fatalf("PrepareDirectoryTree() error = %v", err)
	}
	for _, sub := range []string{DirConfig, DirUsers, DirLogs, DirCheckpoints, DirBackups} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("missing directory %s: %v", sub, err)
		}
	}
}

func TestWriteProtocolConfig(t *testing.T) {
	dir := t.TempDir()
	if err := PrepareDirectoryTree(dir); err != nil {
		t.Fatalf("PrepareDirectoryTree() error = %v", err)
	}
	if err := WriteProtocolConfig(dir, []byte(`{"a":1}`), "priv", "pub", "short", "sni.example.com"); err != nil {
		t.Fatalf("WriteProtocolConfig() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, DirConfig, "private_key.txt"))
	if err != nil || string(data) != "priv" {
		t.Fatalf("private_key.txt = %q, %v, want priv", data, err)
	}
}

func TestWriteComposeFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteComposeFile(dir, ComposeSpec{Protocol: types.ProtocolShadowsocks}); err != nil {
		t.Fatalf("WriteComposeFile() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "docker-compose.yml")); err != nil {
		t.Fatalf("docker-compose.yml not written: %v", err)
	}
}
