// Package identity provides the cryptographic primitives every VPN user
// account is built from: X25519 key pairs, Reality short IDs, UUIDs,
// connection-URI builders and QR rendering. Key pairs, short IDs and
// UUIDs are drawn from crypto/rand inside each call, so they are not
// reproducible and no RNG can be passed in; the URI builders and QR
// rendering are pure functions of their inputs. None of them touch the
// user directory or any other component.
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/curve25519"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// KeyPair is an X25519 key pair rendered as base64, matching the wire
// format UserConfig stores.
type KeyPair struct {
	PrivateKey string // base64
	PublicKey  string // base64
}

// NewUUID generates a fresh RFC 4122 v4 identifier.
func NewUUID() string {
	return uuid.NewString()
}

// GenerateShortID produces the 16-hex-character Reality selector from 8
// random bytes.
func GenerateShortID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", vpnerrors.NewCryptoError(vpnerrors.CryptoInvalidKey, fmt.Sprintf("short id: %v", err))
	}
	return hex.EncodeToString(buf), nil
}

// GenerateKeyPair produces a new X25519 key pair, base64-encoded.
func GenerateKeyPair() (KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return KeyPair{}, vpnerrors.NewCryptoError(vpnerrors.CryptoInvalidKey, fmt.Sprintf("private key: %v", err))
	}
	// Clamp per RFC 7748 so the scalar is a valid X25519 private key.
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, vpnerrors.NewCryptoError(vpnerrors.CryptoInvalidKey, fmt.Sprintf("public key: %v", err))
	}

	return KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
	}, nil
}

// EncodeBase64 is a thin wrapper kept for symmetry with DecodeBase64 and
// to give callers a single import for both directions.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes a base64 string, wrapping failures as CryptoError.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, vpnerrors.NewCryptoError(vpnerrors.CryptoEncodingError, err.Error())
	}
	return data, nil
}

// VlessRealityURI builds a VLESS+Reality connection URI (§6).
func VlessRealityURI(id, host string, port int, publicKey, shortID, sni, name string) string {
	return fmt.Sprintf(
		"vless://%s@%s:%d?security=reality&pbk=%s&sid=%s&sni=%s&fp=chrome&type=tcp#%s",
		id, host, port, publicKey, shortID, sni, name,
	)
}

// ShadowsocksURI builds a Shadowsocks connection URI (§6).
func ShadowsocksURI(method, password, host string, port int, name string) string {
	cred := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", method, password)))
	return fmt.Sprintf("ss://%s@%s:%d#%s", cred, host, port, name)
}

// Socks5URI builds a SOCKS5 connection URI (§6).
func Socks5URI(user, pass, host string, port int) string {
	return fmt.Sprintf("socks5://%s:%s@%s:%d", user, pass, host, port)
}

// RenderQRPNG renders uri as a QR code and returns the PNG bytes at the
// given pixel size.
func RenderQRPNG(uri string, size int) ([]byte, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, vpnerrors.NewCryptoError(vpnerrors.CryptoEncodingError, fmt.Sprintf("qr encode: %v", err))
	}
	return png, nil
}
