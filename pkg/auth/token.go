package auth

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/rcrtd/rcrt/pkg/config"
)

// MintDevToken signs a short-lived token for the POST /auth/token
// development shortcut. Requires cfg.SigningKey; never available when the
// deployment only verifies against an external JWKS, since this process
// would have no private key to sign with.
func MintDevToken(cfg *config.AuthConfig, tenantID, agentID string, roles []Role) (string, error) {
	if cfg.SigningKey == "" {
		return "", fmt.Errorf("auth: dev token minting requires signing_key")
	}
	key, err := parsePEMKey(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("auth: parse signing_key: %w", err)
	}
	alg, err := signingAlgorithm(key)
	if err != nil {
		return "", err
	}

	roleStrs := make([]string, len(roles))
	for i, r := range roles {
		roleStrs[i] = string(r)
	}

	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(agentID).
		IssuedAt(now).
		Expiration(now.Add(devTokenTTL)).
		Claim(claimTenantID, tenantID).
		Claim(claimAgentID, agentID).
		Claim(claimRoles, roleStrs)
	if cfg.Issuer != "" {
		builder = builder.Issuer(cfg.Issuer)
	}
	if cfg.Audience != "" {
		builder = builder.Audience([]string{cfg.Audience})
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(alg, key))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}
