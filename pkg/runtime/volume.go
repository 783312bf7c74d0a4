package runtime

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// volumeStore persists named volumes as directories under a root path,
// shared by every containerd-backed driver since the engine has no native
// volume object.
type volumeStore struct {
	mu   sync.RWMutex
	root string
	vols map[string]*Volume
}

func newVolumeStore() *volumeStore {
	root := "/var/lib/vpncoord/volumes"
	return &volumeStore{root: root, vols: make(map[string]*Volume)}
}

func (s *volumeStore) create(spec VolumeSpec) (*Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.Name == "" {
		return nil, vpnerrors.NewValidationError("name", "volume name must not be empty")
	}
	if _, exists := s.vols[spec.Name]; exists {
		return nil, vpnerrors.NewAlreadyExistsError("volume", spec.Name)
	}

	mountpoint := filepath.Join(s.root, spec.Name)
	if err := os.MkdirAll(mountpoint, 0o755); err != nil {
		return nil, vpnerrors.NewStorageError("create volume directory", err)
	}

	v := &Volume{Name: spec.Name, Mountpoint: mountpoint, CreatedAt: time.Now()}
	s.vols[spec.Name] = v
	return v, nil
}

func (s *volumeStore) list() []*Volume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Volume, 0, len(s.vols))
	for _, v := range s.vols {
		out = append(out, v)
	}
	return out
}

func (s *volumeStore) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vols[name]
	if !ok {
		return vpnerrors.NewNotFoundError("volume", name)
	}
	if err := os.RemoveAll(v.Mountpoint); err != nil {
		return vpnerrors.NewStorageError("remove volume directory", err)
	}
	delete(s.vols, name)
	return nil
}
