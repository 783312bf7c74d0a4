package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cuemby/vpncoord/pkg/deploy"
	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

// InstallSpec describes a fresh protocol deployment to stand up.
type InstallSpec struct {
	InstallDir       string
	Protocol         types.Protocol
	Compose          deploy.ComposeSpec
	InitialUserName  string
	PrivateKey       string
	PublicKey        string
	ShortID          string
	SNI              string
}

// InstallResult reports what Install produced.
type InstallResult struct {
	ContainerID  string
	InitialUser  *types.User
}

// Install orchestrates §4.E's install sequence: prepare the directory
// tree, write the protocol config, render the compose descriptor, launch
// the container, verify it reached the running state, then invite the
// initial user into dir.
func (e *Engine) Install(ctx context.Context, spec InstallSpec, dir *userdir.Directory) (*InstallResult, error) {
	if err := deploy.PrepareDirectoryTree(spec.InstallDir); err != nil {
		return nil, err
	}

	cfgJSON, err := json.MarshalIndent(map[string]string{
		"protocol": string(spec.Protocol),
		"sni":      spec.SNI,
	}, "", "  ")
	if err != nil {
		return nil, vpnerrors.NewStorageError("marshal protocol config", err)
	}
	if err := deploy.WriteProtocolConfig(spec.InstallDir, cfgJSON, spec.PrivateKey, spec.PublicKey, spec.ShortID, spec.SNI); err != nil {
		return nil, err
	}

	spec.Compose.Protocol = spec.Protocol
	if err := deploy.WriteComposeFile(spec.InstallDir, spec.Compose); err != nil {
		return nil, err
	}

	containerSpec := types.ContainerSpec{
		Image:   spec.Compose.Image,
		Name:    spec.Compose.ContainerName,
		Ports:   spec.Compose.Ports,
		Mounts:  spec.Compose.Volumes,
		Caps:    spec.Compose.CapAdd,
		Network: "bridge",
	}
	if containerSpec.Image == "" {
		containerSpec.Image = deploy.DefaultImage(spec.Protocol)
	}

	container, err := e.rt.Create(ctx, containerSpec)
	if err != nil {
		return nil, err
	}
	if err := e.rt.Start(ctx, container.ID); err != nil {
		return nil, err
	}

	state, err := e.rt.TaskState(ctx, container.ID)
	if err != nil {
		return nil, err
	}
	if state != types.ContainerStateRunning {
		return nil, vpnerrors.NewOperationError("install:verify", "container did not reach running state after start")
	}
	e.log.Info().Str("container_id", container.ID).Str("protocol", string(spec.Protocol)).Msg("protocol container installed")
	if e.stats != nil {
		e.stats.RegisterProtocol(container.ID, spec.Protocol)
	}

	var initialUser *types.User
	if spec.InitialUserName != "" && dir != nil {
		initialUser, err = dir.CreateUser(spec.InitialUserName, spec.Protocol)
		if err != nil {
			return nil, err
		}
	}

	return &InstallResult{ContainerID: container.ID, InitialUser: initialUser}, nil
}

// Uninstall stops and removes containerID (best-effort — a failure here
// is logged but does not prevent directory cleanup) and then reclaims
// installDir's on-disk state.
func (e *Engine) Uninstall(ctx context.Context, installDir, containerID string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if containerID != "" {
		if err := e.rt.Stop(ctx, containerID, timeout); err != nil {
			e.log.Warn().Str("container_id", containerID).Err(err).Msg("stop failed during uninstall, continuing")
		}
		if err := e.rt.Remove(ctx, containerID, true); err != nil {
			e.log.Warn().Str("container_id", containerID).Err(err).Msg("remove failed during uninstall, continuing")
		}
		if e.stats != nil {
			e.stats.Unregister(containerID)
		}
	}
	return deploy.RemoveDirectoryTree(installDir)
}
