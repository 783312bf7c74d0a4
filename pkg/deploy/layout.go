package deploy

import (
	"os"
	"path/filepath"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// Subdirectories of an install directory per §6's persisted-state layout.
const (
	DirConfig      = "config"
	DirUsers       = "users"
	DirLogs        = "logs"
	DirCheckpoints = "checkpoints"
	DirBackups     = "backups"
)

var installSubdirs = []string{DirConfig, DirUsers, DirLogs, DirCheckpoints, DirBackups}

// PrepareDirectoryTree creates installDir and every subdirectory the
// persisted-state layout requires (config/, users/, logs/, checkpoints/,
// backups/). Safe to call on an existing tree; it never removes anything.
func PrepareDirectoryTree(installDir string) error {
	if err := os.MkdirAll(installDir, 0700); err != nil {
		return vpnerrors.NewStorageError("create install directory", err)
	}
	for _, sub := range installSubdirs {
		if err := os.MkdirAll(filepath.Join(installDir, sub), 0700); err != nil {
			return vpnerrors.NewStorageError("create "+sub+" directory", err)
		}
	}
	return nil
}

// RemoveDirectoryTree deletes installDir and everything under it. Callers
// orchestrating uninstall must stop and remove the running container
// first; this only reclaims disk state.
func RemoveDirectoryTree(installDir string) error {
	if err := os.RemoveAll(installDir); err != nil {
		return vpnerrors.NewStorageError("remove install directory", err)
	}
	return nil
}

// WriteProtocolConfig persists the protocol-specific key material written
// at install time: config.json (caller-supplied, already-serialized
// configuration record), plus the flat private_key.txt/public_key.txt/
// short_id.txt/sni.txt files §6 names, each mode 0600.
func WriteProtocolConfig(installDir string, configJSON []byte, privateKey, publicKey, shortID, sni string) error {
	cfgDir := filepath.Join(installDir, DirConfig)
	if err := os.MkdirAll(cfgDir, 0700); err != nil {
		return vpnerrors.NewStorageError("create config directory", err)
	}

	files := map[string]string{
		"private_key.txt": privateKey,
		"public_key.txt":  publicKey,
		"short_id.txt":    shortID,
		"sni.txt":         sni,
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0600); err != nil {
			return vpnerrors.NewStorageError("write "+name, err)
		}
	}

	if len(configJSON) > 0 {
		if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), configJSON, 0600); err != nil {
			return vpnerrors.NewStorageError("write config.json", err)
		}
	}
	return nil
}
