// Package deploy renders the docker-compose.yml descriptor for a VPN
// protocol container and scaffolds an install directory's persisted-state
// layout (§6): config/, users/, logs/, checkpoints/, backups/, and the
// compose file itself.
package deploy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
)

// DefaultImage returns the reference image for protocol, used when a
// ComposeSpec doesn't override Image.
func DefaultImage(protocol types.Protocol) string {
	switch protocol {
	case types.ProtocolVless:
		return "teddysun/xray:latest"
	case types.ProtocolShadowsocks:
		return "shadowsocks/shadowsocks-libev:latest"
	case types.ProtocolWireGuard:
		return "linuxserver/wireguard:latest"
	case types.ProtocolSocks5:
		return "serjs/go-socks5-proxy:latest"
	default:
		return ""
	}
}

// ComposeSpec is the input to RenderCompose: the resolved configuration
// for the single protocol container an install directory manages.
type ComposeSpec struct {
	Protocol      types.Protocol
	Image         string // empty uses DefaultImage(Protocol)
	ContainerName string
	Ports         []types.PortMapping
	Volumes       []types.Mount
	Environment   map[string]string
	CapAdd        []string
	RestartPolicy string // docker-compose restart value; empty = "unless-stopped"
}

type composeService struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	Ports         []string          `yaml:"ports,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	CapAdd        []string          `yaml:"cap_add,omitempty"`
}

type composeFile struct {
	Version  string                     `yaml:"version"`
	Services map[string]composeService  `yaml:"services"`
}

// RenderCompose marshals spec into a docker-compose.yml document for the
// chosen protocol's single-service stack.
func RenderCompose(spec ComposeSpec) ([]byte, error) {
	image := spec.Image
	if image == "" {
		image = DefaultImage(spec.Protocol)
	}
	if image == "" {
		return nil, vpnerrors.NewValidationError("protocol", fmt.Sprintf("no default image for protocol %q", spec.Protocol))
	}

	restart := spec.RestartPolicy
	if restart == "" {
		restart = "unless-stopped"
	}

	ports := make([]string, 0, len(spec.Ports))
	for _, p := range spec.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		ports = append(ports, fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto))
	}

	volumes := make([]string, 0, len(spec.Volumes))
	for _, m := range spec.Volumes {
		mode := "rw"
		if m.ReadOnly {
			mode = "ro"
		}
		volumes = append(volumes, fmt.Sprintf("%s:%s:%s", m.Source, m.Target, mode))
	}

	name := spec.ContainerName
	if name == "" {
		name = "vpncoord-" + string(spec.Protocol)
	}

	cf := composeFile{
		Version: "3.8",
		Services: map[string]composeService{
			name: {
				Image:         image,
				ContainerName: name,
				Restart:       restart,
				Ports:         ports,
				Volumes:       volumes,
				Environment:   spec.Environment,
				CapAdd:        spec.CapAdd,
			},
		},
	}

	data, err := yaml.Marshal(cf)
	if err != nil {
		return nil, vpnerrors.NewStorageError("marshal compose file", err)
	}
	return data, nil
}

// WriteComposeFile renders spec and writes it to
// filepath.Join(installDir, "docker-compose.yml").
func WriteComposeFile(installDir string, spec ComposeSpec) error {
	data, err := RenderCompose(spec)
	if err != nil {
		return err
	}
	path := filepath.Join(installDir, "docker-compose.yml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return vpnerrors.NewStorageError("write compose file", err)
	}
	return nil
}
