package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/rcrtd/rcrt/pkg/config"
)

// claimTenantID, claimAgentID, and claimRoles are the private claim names
// a token is expected to carry alongside the registered sub/iss/aud/exp
// claims.
const (
	claimTenantID = "tenant_id"
	claimAgentID  = "agent_id"
	claimRoles    = "roles"
)

// Validator verifies bearer tokens against either a JWKS endpoint (fetched
// and cached, refreshed on cfg.RefreshInterval) or a static signing key, or
// both — a JWKS-backed deployment can still keep a static key around
// purely to mint /auth/token development tokens the same JWKS will accept.
type Validator struct {
	cfg *config.AuthConfig

	jwksURL   string
	cache     *jwk.Cache
	staticKey jwk.Key
}

// NewValidator builds a Validator from cfg. cfg must already have
// SetDefaults/Validate applied. When cfg.JWKSURL is set, the key set is
// fetched immediately so misconfiguration surfaces at startup rather than
// on the first request.
func NewValidator(ctx context.Context, cfg *config.AuthConfig) (*Validator, error) {
	v := &Validator{cfg: cfg}

	if cfg.JWKSURL != "" {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(cfg.RefreshInterval)); err != nil {
			return nil, fmt.Errorf("auth: register jwks url: %w", err)
		}
		if _, err := cache.Refresh(ctx, cfg.JWKSURL); err != nil {
			return nil, fmt.Errorf("auth: initial jwks fetch from %s: %w", cfg.JWKSURL, err)
		}
		v.jwksURL = cfg.JWKSURL
		v.cache = cache
	}

	if cfg.SigningKey != "" {
		key, err := parsePEMKey(cfg.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("auth: parse signing_key: %w", err)
		}
		v.staticKey = key
	}

	return v, nil
}

// ValidateToken parses and verifies tokenString, returning the Claims
// carried by its tenant_id/agent_id/roles private claims.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (Claims, error) {
	keySet, err := v.keySet(ctx)
	if err != nil {
		return Claims{}, err
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	return claimsFromToken(token)
}

// keySet returns the public key set to verify against: the JWKS cache's
// current set, the static key's public half, or both when configured
// together.
func (v *Validator) keySet(ctx context.Context) (jwk.Set, error) {
	set := jwk.NewSet()

	if v.cache != nil {
		jwks, err := v.cache.Get(ctx, v.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("auth: fetch jwks: %w", err)
		}
		for i := 0; i < jwks.Len(); i++ {
			key, _ := jwks.Key(i)
			_ = set.AddKey(key)
		}
	}

	if v.staticKey != nil {
		pub, err := publicKeyOf(v.staticKey)
		if err != nil {
			return nil, err
		}
		_ = set.AddKey(pub)
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("auth: no verification keys configured")
	}
	return set, nil
}

func claimsFromToken(token jwt.Token) (Claims, error) {
	c := Claims{}

	if v, ok := token.Get(claimTenantID); ok {
		if s, ok := v.(string); ok {
			c.TenantID = s
		}
	}
	if v, ok := token.Get(claimAgentID); ok {
		if s, ok := v.(string); ok {
			c.AgentID = s
		} else {
			c.AgentID = token.Subject()
		}
	} else {
		c.AgentID = token.Subject()
	}
	if c.TenantID == "" {
		return c, fmt.Errorf("auth: token missing %s claim", claimTenantID)
	}

	if v, ok := token.Get(claimRoles); ok {
		raw, ok := v.([]interface{})
		if !ok {
			return c, fmt.Errorf("auth: %s claim has unexpected shape", claimRoles)
		}
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				continue
			}
			role := Role(s)
			if role.Valid() {
				c.Roles = append(c.Roles, role)
			}
		}
	}
	if len(c.Roles) == 0 {
		return c, fmt.Errorf("auth: token carries no recognized role")
	}

	return c, nil
}

// parsePEMKey parses a PEM-encoded key (public or private, RSA or Ed25519)
// into a jwk.Key.
func parsePEMKey(pemData string) (jwk.Key, error) {
	key, err := jwk.ParseKey([]byte(pemData), jwk.WithPEM(true))
	if err != nil {
		return nil, err
	}
	return key, nil
}

// publicKeyOf derives the public half of key, a no-op when key is already
// public (the static key's common use is minting, which needs the private
// half; verification only ever needs the public half).
func publicKeyOf(key jwk.Key) (jwk.Key, error) {
	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("auth: derive public key: %w", err)
	}
	return pub, nil
}

// signingAlgorithm picks the JWS algorithm matching key's key type:
// RS256 for RSA, EdDSA for Ed25519 — the two families the admission
// layer's documented key material supports.
func signingAlgorithm(key jwk.Key) (jwa.SignatureAlgorithm, error) {
	switch key.KeyType() {
	case jwa.RSA:
		return jwa.RS256, nil
	case jwa.OKP:
		return jwa.EdDSA, nil
	default:
		return "", fmt.Errorf("auth: unsupported signing key type %q", key.KeyType())
	}
}

// devTokenTTL is how long a /auth/token development shortcut token lives.
const devTokenTTL = time.Hour
