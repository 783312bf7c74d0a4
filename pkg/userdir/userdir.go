// Package userdir persists VPN user accounts as a flat directory tree,
// one subdirectory per user id holding config.json and the optional
// connection.link/qr.png artifacts generated on demand. All writes go
// through a write-then-rename so a reader never observes a partial file.
package userdir

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/identity"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/security"
	"github.com/cuemby/vpncoord/pkg/types"
)

// encryptedPrefix tags a persisted PrivateKey as AES-256-GCM ciphertext
// rather than the raw base64 key material, so a directory opened without a
// SecretsManager (or with a different one) fails loudly instead of
// treating ciphertext as a usable key.
const encryptedPrefix = "enc:v1:"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const (
	configFileName     = "config.json"
	connectionFileName = "connection.link"
)

// Filter narrows ListUsers by status, protocol and/or a name substring.
// A nil/empty field is not applied.
type Filter struct {
	Status       types.UserStatus
	Protocol     types.Protocol
	NameContains string
}

func (f Filter) matches(u *types.User) bool {
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Protocol != "" && u.Protocol != f.Protocol {
		return false
	}
	if f.NameContains != "" && !strings.Contains(u.Name, f.NameContains) {
		return false
	}
	return true
}

// Directory owns every User record under baseDir, indexed in memory for
// fast name/status lookups.
type Directory struct {
	mu      sync.RWMutex
	baseDir string
	byID    map[string]*types.User
	byName  map[string]string // name -> id

	broker   *events.Broker
	secrets  *security.SecretsManager
	validate *validator.Validate
	log      zerolog.Logger
}

// NewDirectory opens (creating if absent) baseDir and loads every existing
// user record into memory. secrets may be nil, in which case private keys
// are persisted as plaintext base64 (matching the pre-encryption layout);
// when non-nil, every PrivateKey is encrypted at rest with it and
// transparently decrypted on load.
func NewDirectory(baseDir string, broker *events.Broker, secrets *security.SecretsManager) (*Directory, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, vpnerrors.NewStorageError("create directory root", err)
	}

	d := &Directory{
		baseDir:  baseDir,
		byID:     make(map[string]*types.User),
		byName:   make(map[string]string),
		broker:   broker,
		secrets:  secrets,
		validate: validator.New(),
		log:      log.WithComponent("userdir"),
	}

	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) load() error {
	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return vpnerrors.NewStorageError("read directory root", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(d.baseDir, entry.Name(), configFileName)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return vpnerrors.NewStorageError("read user config", err)
		}
		var u types.User
		if err := json.Unmarshal(data, &u); err != nil {
			d.log.Warn().Str("id", entry.Name()).Err(err).Msg("skipping unreadable user record")
			continue
		}
		if err := d.decryptPrivateKey(&u); err != nil {
			d.log.Warn().Str("id", entry.Name()).Err(err).Msg("skipping user record with undecryptable private key")
			continue
		}
		d.byID[u.ID] = &u
		d.byName[u.Name] = u.ID
	}

	d.log.Info().Int("count", len(d.byID)).Msg("loaded user directory")
	return nil
}

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return vpnerrors.NewValidationError("name", "must be 1-64 chars of [A-Za-z0-9_-]")
	}
	return nil
}

// CreateUser generates a fresh id/short-id/key pair for name and
// persists the record. Fails with AlreadyExistsError on duplicate name.
func (d *Directory) CreateUser(name string, protocol types.Protocol) (*types.User, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.UserCreateDuration)

	if err := validateName(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byName[name]; exists {
		return nil, vpnerrors.NewAlreadyExistsError("user", name)
	}

	shortID, err := identity.GenerateShortID()
	if err != nil {
		return nil, err
	}
	keys, err := identity.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &types.User{
		ID:         identity.NewUUID(),
		ShortID:    shortID,
		Name:       name,
		Protocol:   protocol,
		Status:     types.UserStatusActive,
		CreatedAt:  now,
		LastActive: now,
		Config: types.UserConfig{
			PrivateKey: keys.PrivateKey,
			PublicKey:  keys.PublicKey,
		},
	}

	if err := d.persist(u); err != nil {
		return nil, err
	}

	d.byID[u.ID] = u
	d.byName[u.Name] = u.ID
	d.log.Info().Str("id", u.ID).Str("name", u.Name).Msg("user created")
	d.publish(events.EventUserCreated, fmt.Sprintf("user %s created", u.Name), u)
	return u, nil
}

// GetUser returns the user record for id.
func (d *Directory) GetUser(id string) (*types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, vpnerrors.NewNotFoundError("user", id)
	}
	return u, nil
}

// GetUserByName returns the user record for name.
func (d *Directory) GetUserByName(name string) (*types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[name]
	if !ok {
		return nil, vpnerrors.NewNotFoundError("user", name)
	}
	return d.byID[id], nil
}

// ListUsers returns every user matching filter, sorted by name.
func (d *Directory) ListUsers(filter Filter) []*types.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*types.User, 0, len(d.byID))
	for _, u := range d.byID {
		if filter.matches(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateUser persists the given record in place. The caller must have
// obtained it via GetUser/GetUserByName first; the name may not collide
// with a different existing user.
func (d *Directory) UpdateUser(u *types.User) error {
	if err := validateName(u.Name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.byID[u.ID]
	if !ok {
		return vpnerrors.NewNotFoundError("user", u.ID)
	}
	if owner, exists := d.byName[u.Name]; exists && owner != u.ID {
		return vpnerrors.NewAlreadyExistsError("user", u.Name)
	}

	if err := d.persist(u); err != nil {
		return err
	}

	if existing.Name != u.Name {
		delete(d.byName, existing.Name)
		d.byName[u.Name] = u.ID
	}
	d.byID[u.ID] = u
	d.log.Info().Str("id", u.ID).Msg("user updated")
	d.publish(events.EventUserUpdated, fmt.Sprintf("user %s updated", u.Name), u)
	return nil
}

// DeleteUser removes a user's entire directory tree.
func (d *Directory) DeleteUser(id string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.UserDeleteDuration)

	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return vpnerrors.NewNotFoundError("user", id)
	}

	if err := os.RemoveAll(filepath.Join(d.baseDir, id)); err != nil {
		return vpnerrors.NewStorageError("delete user directory", err)
	}

	delete(d.byID, id)
	delete(d.byName, u.Name)
	d.log.Info().Str("id", id).Str("name", u.Name).Msg("user deleted")
	d.publish(events.EventUserDeleted, fmt.Sprintf("user %s deleted", u.Name), u)
	return nil
}

// GenerateConnectionLink builds the protocol-specific connection URI for
// id, persists it as connection.link, and returns it.
func (d *Directory) GenerateConnectionLink(id, host string, port int, sni string) (string, error) {
	d.mu.RLock()
	u, ok := d.byID[id]
	d.mu.RUnlock()
	if !ok {
		return "", vpnerrors.NewNotFoundError("user", id)
	}

	var uri string
	switch u.Protocol {
	case types.ProtocolVless:
		uri = identity.VlessRealityURI(u.ID, host, port, u.Config.PublicKey, u.ShortID, sni, u.Name)
	case types.ProtocolShadowsocks:
		uri = identity.ShadowsocksURI(u.Config.Method, u.Config.Password, host, port, u.Name)
	case types.ProtocolSocks5:
		uri = identity.Socks5URI(u.Name, u.Config.Password, host, port)
	default:
		return "", vpnerrors.NewValidationError("protocol", fmt.Sprintf("no connection-link format for %q", u.Protocol))
	}

	path := filepath.Join(d.baseDir, id, connectionFileName)
	if err := atomicWrite(path, []byte(uri)); err != nil {
		return "", err
	}
	return uri, nil
}

// GenerateQRCode renders the connection link for id as a PNG at path.
func (d *Directory) GenerateQRCode(id, uri, path string) error {
	d.mu.RLock()
	_, ok := d.byID[id]
	d.mu.RUnlock()
	if !ok {
		return vpnerrors.NewNotFoundError("user", id)
	}

	png, err := identity.RenderQRPNG(uri, 256)
	if err != nil {
		return err
	}
	return atomicWrite(path, png)
}

func (d *Directory) persist(u *types.User) error {
	dir := filepath.Join(d.baseDir, u.ID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return vpnerrors.NewStorageError("create user directory", err)
	}

	onDisk := *u
	if err := d.encryptPrivateKey(&onDisk); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&onDisk, "", "  ")
	if err != nil {
		return vpnerrors.NewStorageError("marshal user config", err)
	}
	return atomicWrite(filepath.Join(dir, configFileName), data)
}

// encryptPrivateKey replaces u.Config.PrivateKey with its AES-256-GCM
// ciphertext, base64-encoded and tagged with encryptedPrefix, when d.secrets
// is configured. A no-op otherwise, so a directory without a SecretsManager
// keeps writing plaintext base64 keys.
func (d *Directory) encryptPrivateKey(u *types.User) error {
	if d.secrets == nil || u.Config.PrivateKey == "" {
		return nil
	}
	ciphertext, err := d.secrets.EncryptSecret([]byte(u.Config.PrivateKey))
	if err != nil {
		return vpnerrors.NewCryptoError(vpnerrors.CryptoEncodingError, "encrypt private key: "+err.Error())
	}
	u.Config.PrivateKey = encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	return nil
}

// decryptPrivateKey reverses encryptPrivateKey on load. A record whose
// PrivateKey carries encryptedPrefix but for which d.secrets is nil (or
// decryption fails, e.g. the wrong key) is an error, not a silent pass
// through of ciphertext as if it were a usable key.
func (d *Directory) decryptPrivateKey(u *types.User) error {
	if !strings.HasPrefix(u.Config.PrivateKey, encryptedPrefix) {
		return nil
	}
	if d.secrets == nil {
		return vpnerrors.NewCryptoError(vpnerrors.CryptoInvalidKey, "record is encrypted but no secrets manager is configured")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u.Config.PrivateKey, encryptedPrefix))
	if err != nil {
		return vpnerrors.NewCryptoError(vpnerrors.CryptoEncodingError, "decrypt private key: "+err.Error())
	}
	plaintext, err := d.secrets.DecryptSecret(raw)
	if err != nil {
		return vpnerrors.NewCryptoError(vpnerrors.CryptoInvalidKey, "decrypt private key: "+err.Error())
	}
	u.Config.PrivateKey = string(plaintext)
	return nil
}

func (d *Directory) publish(eventType events.EventType, msg string, u *types.User) {
	if d.broker == nil {
		return
	}
	d.broker.Publish(&events.Event{
		Type:    eventType,
		Message: msg,
		Metadata: map[string]string{
			"user_id": u.ID,
			"name":    u.Name,
		},
	})
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return vpnerrors.NewStorageError("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return vpnerrors.NewStorageError("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return vpnerrors.NewStorageError("close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return vpnerrors.NewStorageError("rename into place", err)
	}
	return nil
}
