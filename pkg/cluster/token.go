package cluster

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
)

// JoinToken authorizes a node to join the cluster in a given role,
// until Expiry.
type JoinToken struct {
	Token     string
	Role      types.NodeRole
	CreatedAt time.Time
	Expiry    time.Time
	Used      bool
}

// Expired reports whether the token is past its expiry.
func (t *JoinToken) Expired() bool {
	return time.Now().After(t.Expiry)
}

// TokenManager issues and validates single-use join tokens, grounded on
// a single-use, TTL-expiring token store kept in memory.
type TokenManager struct {
	mu     sync.Mutex
	tokens map[string]*JoinToken
}

// NewTokenManager creates an empty token manager.
func NewTokenManager() *TokenManager {
	return &TokenManager{tokens: make(map[string]*JoinToken)}
}

// GenerateToken mints a new 32-byte hex-encoded join token valid for ttl.
func (m *TokenManager) GenerateToken(role types.NodeRole, ttl time.Duration) (*JoinToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, vpnerrors.NewOperationError("generate join token", err.Error())
	}

	now := time.Now()
	tok := &JoinToken{
		Token:     hex.EncodeToString(buf),
		Role:      role,
		CreatedAt: now,
		Expiry:    now.Add(ttl),
	}

	m.mu.Lock()
	m.tokens[tok.Token] = tok
	m.mu.Unlock()

	return tok, nil
}

// ValidateToken checks a presented token and, if still valid and unused,
// marks it used (single-use) and returns its role.
func (m *TokenManager) ValidateToken(token string) (types.NodeRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[token]
	if !ok {
		return "", vpnerrors.NewPermissionError("unknown join token")
	}
	if tok.Used {
		return "", vpnerrors.NewPermissionError("join token already used")
	}
	if tok.Expired() {
		return "", vpnerrors.NewPermissionError("join token expired")
	}

	tok.Used = true
	return tok.Role, nil
}

// RevokeToken removes a token immediately, used or not.
func (m *TokenManager) RevokeToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

// CleanupExpiredTokens drops every token past its expiry and returns the
// count removed; callers run this periodically from a maintenance loop
// ticker.
func (m *TokenManager) CleanupExpiredTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, tok := range m.tokens {
		if tok.Expired() {
			delete(m.tokens, k)
			removed++
		}
	}
	return removed
}

// ListTokens returns a snapshot of all live tokens.
func (m *TokenManager) ListTokens() []*JoinToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*JoinToken, 0, len(m.tokens))
	for _, tok := range m.tokens {
		cp := *tok
		out = append(out, &cp)
	}
	return out
}
