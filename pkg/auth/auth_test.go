package auth_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/config"
)

func generateSigningKeyPEM(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block))
}

func TestRole_Allows_RespectsHierarchy(t *testing.T) {
	assert.True(t, auth.RoleCurator.Allows(auth.RoleEmitter))
	assert.True(t, auth.RoleCurator.Allows(auth.RoleSubscriber))
	assert.True(t, auth.RoleEmitter.Allows(auth.RoleSubscriber))
	assert.False(t, auth.RoleSubscriber.Allows(auth.RoleEmitter))
	assert.False(t, auth.RoleEmitter.Allows(auth.RoleCurator))
	assert.True(t, auth.RoleSubscriber.Allows(auth.RoleSubscriber))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, auth.RoleCurator.Valid())
	assert.False(t, auth.Role("made-up").Valid())
}

func TestRole_Allows_UnrecognizedRoleSatisfiesNothing(t *testing.T) {
	assert.False(t, auth.Role("made-up").Allows(auth.RoleSubscriber))
}

func TestMintAndValidateToken_RoundTrip(t *testing.T) {
	cfg := &config.AuthConfig{SigningKey: generateSigningKeyPEM(t), Issuer: "rcrt-test", Audience: "rcrt-api"}
	cfg.SetDefaults()

	token, err := auth.MintDevToken(cfg, "tenant-a", "agent-1", []auth.Role{auth.RoleEmitter})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	v, err := auth.NewValidator(context.Background(), cfg)
	require.NoError(t, err)

	claims, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, "agent-1", claims.AgentID)
	require.Len(t, claims.Roles, 1)
	assert.Equal(t, auth.RoleEmitter, claims.Roles[0])
}

func TestMintDevToken_RequiresSigningKey(t *testing.T) {
	cfg := &config.AuthConfig{}
	_, err := auth.MintDevToken(cfg, "tenant-a", "agent-1", []auth.Role{auth.RoleEmitter})
	assert.Error(t, err)
}

func TestValidateToken_WrongAudienceRejected(t *testing.T) {
	cfg := &config.AuthConfig{SigningKey: generateSigningKeyPEM(t), Issuer: "rcrt-test", Audience: "rcrt-api"}
	cfg.SetDefaults()

	token, err := auth.MintDevToken(cfg, "tenant-a", "agent-1", []auth.Role{auth.RoleEmitter})
	require.NoError(t, err)

	wrongAudCfg := &config.AuthConfig{SigningKey: cfg.SigningKey, Issuer: cfg.Issuer, Audience: "some-other-api"}
	wrongAudCfg.SetDefaults()
	v, err := auth.NewValidator(context.Background(), wrongAudCfg)
	require.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestClaims_WithContext_RoundTrip(t *testing.T) {
	c := auth.Claims{TenantID: "tenant-a", AgentID: "agent-1", Roles: []auth.Role{auth.RoleCurator}}
	ctx := auth.WithClaims(context.Background(), c)

	got, ok := auth.ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, c, got)
	assert.True(t, got.IsCurator())
	assert.True(t, got.HasRole(auth.RoleSubscriber))
}

func TestClaimsFromContext_AbsentReportsFalse(t *testing.T) {
	_, ok := auth.ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestAuthConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{"disabled skips validation", config.AuthConfig{Enabled: false}, false},
		{"enabled requires a key source", config.AuthConfig{Enabled: true, Issuer: "i", Audience: "a"}, true},
		{"enabled requires issuer", config.AuthConfig{Enabled: true, SigningKey: "x", Audience: "a"}, true},
		{"enabled requires audience", config.AuthConfig{Enabled: true, SigningKey: "x", Issuer: "i"}, true},
		{"dev token endpoint requires signing key", config.AuthConfig{Enabled: true, JWKSURL: "https://x", Issuer: "i", Audience: "a", DevTokenEndpoint: true}, true},
		{"fully configured", config.AuthConfig{Enabled: true, SigningKey: "x", Issuer: "i", Audience: "a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.SetDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
