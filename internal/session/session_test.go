package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"google.golang.org/api/idtoken"
)

type fakeProvider struct {
	identity Identity
	err      error
	calls    int
}

func (f *fakeProvider) Verify(ctx context.Context, credential string) (Identity, error) {
	f.calls++
	if f.err != nil {
		return Identity{}, f.err
	}
	return f.identity, nil
}

func TestManagerDemoFallback(t *testing.T) {
	m := NewManager(nil)

	state := m.Current()
	if state.Identity != nil || state.Loading {
		t.Fatalf("fresh manager should be signed out, got %+v", state)
	}

	m.SignIn(context.Background(), "anything")
	state = m.Current()
	if state.Identity == nil || state.Identity.UID != Demo.UID {
		t.Fatalf("expected demo identity, got %+v", state.Identity)
	}
	if state.Error != "" {
		t.Fatalf("unexpected error slot: %q", state.Error)
	}
}

func TestManagerSignInSuccess(t *testing.T) {
	p := &fakeProvider{identity: Identity{UID: "user-1", Email: "u@example.com"}}
	m := NewManager(p)

	m.SignIn(context.Background(), "token")
	state := m.Current()
	if state.Identity == nil || state.Identity.UID != "user-1" {
		t.Fatalf("identity = %+v, want user-1", state.Identity)
	}
	if state.Loading {
		t.Fatal("loading should clear after resolution")
	}
}

func TestManagerSignInFailureUsesErrorSlot(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("boom")}
	m := NewManager(p)

	m.SignIn(context.Background(), "bad-token")
	state := m.Current()
	if state.Identity != nil {
		t.Fatal("failed sign-in must leave the session signed out")
	}
	if state.Error == "" {
		t.Fatal("error slot should carry a message")
	}
	if state.Loading {
		t.Fatal("loading should clear even on failure")
	}
}

func TestManagerSignOut(t *testing.T) {
	p := &fakeProvider{identity: Identity{UID: "user-1"}}
	m := NewManager(p)

	m.SignIn(context.Background(), "token")
	m.SignOut(context.Background())

	state := m.Current()
	if state.Identity != nil || state.Error != "" {
		t.Fatalf("expected clean signed-out state, got %+v", state)
	}
}

func TestTokenProviderCachesVerification(t *testing.T) {
	p := NewTokenProvider("audience", 8, time.Minute)

	validations := 0
	p.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		validations++
		if audience != "audience" {
			t.Fatalf("audience = %q", audience)
		}
		return &idtoken.Payload{
			Subject: "user-9",
			Claims: map[string]interface{}{
				"name":    "Test User",
				"email":   "test@example.com",
				"picture": "https://example.com/p.png",
			},
		}, nil
	}

	for i := 0; i < 3; i++ {
		identity, err := p.Verify(context.Background(), "tok")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if identity.UID != "user-9" || identity.Email != "test@example.com" {
			t.Fatalf("identity = %+v", identity)
		}
	}
	if validations != 1 {
		t.Fatalf("validate called %d times, want 1 (cached)", validations)
	}
}

func TestTokenProviderRejectsEmptyCredential(t *testing.T) {
	p := NewTokenProvider("audience", 8, time.Minute)
	if _, err := p.Verify(context.Background(), ""); err == nil {
		t.Fatal("empty credential should fail")
	}
}
