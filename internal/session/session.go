// Package session supplies the current owner identity and the sign-in /
// sign-out boundary. Failures here are never fatal: they land in an error
// slot the UI reads, and the session falls back to signed-out.
package session

import (
	"context"
	"log/slog"
	"sync"

	"flowledger/internal/core"
)

// Identity is a resolved owner.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// Demo is the built-in identity used whenever the remote stack is
// unconfigured. Its records always stay in the local store.
var Demo = Identity{
	UID:         core.DemoOwnerID,
	DisplayName: "Demo Analyst",
	Email:       "demo@flowledger.app",
}

// Provider authenticates a credential into an identity.
type Provider interface {
	// Verify resolves a raw credential (an ID token) into an identity.
	Verify(ctx context.Context, credential string) (Identity, error)
}

// State is a read snapshot of the session: the current identity (nil
// while resolving or signed out), a loading flag and the error slot.
type State struct {
	Identity *Identity `json:"identity"`
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
}

// Manager tracks the current session. SignIn and SignOut are
// fire-and-forget: errors are reported through the error slot, never
// returned or thrown at the caller.
type Manager struct {
	mu       sync.Mutex
	provider Provider
	current  *Identity
	loading  bool
	lastErr  string
}

// NewManager creates a session manager. With a nil provider every
// sign-in resolves the demo identity.
func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

// Current returns a snapshot of the session state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Identity: m.current, Loading: m.loading, Error: m.lastErr}
}

// SignIn resolves the credential into the current identity. A failed
// verification leaves the session signed out with the error slot set.
func (m *Manager) SignIn(ctx context.Context, credential string) {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	provider := m.provider
	m.mu.Unlock()

	if provider == nil {
		m.resolve(&Demo, "")
		return
	}

	identity, err := provider.Verify(ctx, credential)
	if err != nil {
		slog.WarnContext(ctx, "Sign-in failed", "error", err)
		m.resolve(nil, "Unable to verify your account. Please try again.")
		return
	}
	m.resolve(&identity, "")
}

// SignOut clears the session.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.loading = false
	m.lastErr = ""
}

func (m *Manager) resolve(identity *Identity, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = identity
	m.loading = false
	m.lastErr = errMsg
}
