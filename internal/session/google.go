package session

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"

	"flowledger/internal/cache"
)

// TokenProvider verifies Google ID tokens. Verified identities are cached
// by raw token so repeated requests in one session skip the round trip to
// Google's certificate endpoint.
type TokenProvider struct {
	audience string
	verified *cache.LRU[Identity]
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewTokenProvider creates a provider that accepts ID tokens minted for
// the given audience.
func NewTokenProvider(audience string, cacheSize int, cacheTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		audience: audience,
		verified: cache.NewLRU[Identity](cacheSize, cacheTTL),
		validate: idtoken.Validate,
	}
}

// Cache exposes the token cache for cleanup registration.
func (p *TokenProvider) Cache() *cache.LRU[Identity] {
	return p.verified
}

// Verify implements Provider.
func (p *TokenProvider) Verify(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, fmt.Errorf("empty credential")
	}

	if identity, ok := p.verified.Get(credential); ok {
		return identity, nil
	}

	payload, err := p.validate(ctx, credential, p.audience)
	if err != nil {
		return Identity{}, fmt.Errorf("validate id token: %w", err)
	}

	identity := Identity{
		UID:         payload.Subject,
		DisplayName: claimString(payload, "name"),
		Email:       claimString(payload, "email"),
		PhotoURL:    claimString(payload, "picture"),
	}
	if identity.UID == "" {
		return Identity{}, fmt.Errorf("id token missing subject")
	}

	p.verified.Set(credential, identity)
	return identity, nil
}

func claimString(payload *idtoken.Payload, key string) string {
	if v, ok := payload.Claims[key].(string); ok {
		return v
	}
	return ""
}
