// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"testing"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	db := TestDb(t)
	ctx := context.Background()

	t.Run("valid-with-builtins", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		repo := TestRepository(t, db)
		m, err := NewManager(ctx, DefaultConfig(), repo)
		require.NoError(err)

		assert.Equal([]string{base62GeneratorName, uuidGeneratorName}, m.generators.Names())
		assert.Equal([]string{bcryptHasherName, sha256HasherName}, m.hashers.Names())
		assert.Equal([]string{auditDbDriverName}, m.auditDrivers.Names())
		assert.Equal([]string{RevocationCascade, RevocationPartial, RevocationSingle, RevocationTimed}, m.revocations.Names())
		assert.Equal([]string{RotationDualValid, RotationGracePeriod, RotationImmediate}, m.rotations.Names())

		// First registered wins as default when the config doesn't pick.
		h, err := m.resolveHasher(ctx, "")
		require.NoError(err)
		assert.IsType(&Sha256Hasher{}, h)
		r, err := m.resolveRevocation(ctx, "")
		require.NoError(err)
		assert.Equal(RevocationSingle, r.Name())
		rot, err := m.resolveRotation(ctx, "")
		require.NoError(err)
		assert.Equal(RotationImmediate, rot.Name())
	})
	t.Run("nil-conf-gets-defaults", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		repo := TestRepository(t, db)
		m, err := NewManager(ctx, nil, repo)
		require.NoError(err)
		got := m.Config()
		assert.Equal(DefaultEnvironment, got.DefaultEnvironment)
		assert.Equal(DefaultMaxDerivationDepth, got.MaxDerivationDepth)
	})
	t.Run("missing-repository", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := NewManager(ctx, DefaultConfig(), nil)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
		assert.Contains(err.Error(), "missing repository")
	})
	t.Run("invalid-conf", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		repo := TestRepository(t, db)
		conf := DefaultConfig()
		conf.MaxDerivationDepth = -1
		_, err := NewManager(ctx, conf, repo)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidConfiguration), err), "Unexpected error %s", err)
	})
	t.Run("caller-conf-stays-isolated", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		repo := TestRepository(t, db)
		conf := DefaultConfig()
		m, err := NewManager(ctx, conf, repo)
		require.NoError(err)
		conf.DefaultEnvironment = "mutated"
		assert.Equal(DefaultEnvironment, m.Config().DefaultEnvironment)

		got := m.Config()
		got.DefaultEnvironment = "also-mutated"
		assert.Equal(DefaultEnvironment, m.Config().DefaultEnvironment)
	})
	t.Run("configured-defaults-win", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		repo := TestRepository(t, db)
		conf := DefaultConfig()
		conf.DefaultHasher = bcryptHasherName
		conf.DefaultRevocationStrategy = RevocationCascade
		conf.DefaultRotationStrategy = RotationGracePeriod
		m, err := NewManager(ctx, conf, repo)
		require.NoError(err)

		h, err := m.resolveHasher(ctx, "")
		require.NoError(err)
		assert.IsType(&BcryptHasher{}, h)
		r, err := m.resolveRevocation(ctx, "")
		require.NoError(err)
		assert.Equal(RevocationCascade, r.Name())
		rot, err := m.resolveRotation(ctx, "")
		require.NoError(err)
		assert.Equal(RotationGracePeriod, rot.Name())
	})
}

func TestManager_Register(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()

	t.Run("type-with-invalid-name", func(t *testing.T) {
		assert := assert.New(t)
		typ, err := NewTokenType(ctx, TypeConfig{Prefix: "zz"})
		require.NoError(t, err)
		err = m.RegisterType(ctx, "has space", typ)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
		err = m.RegisterType(ctx, "", typ)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
	})
	t.Run("nil-components", func(t *testing.T) {
		assert := assert.New(t)
		assert.Error(m.RegisterType(ctx, "ok", nil))
		assert.Error(m.RegisterGenerator(ctx, "gen", nil))
		assert.Error(m.RegisterHasher(ctx, "hash", nil))
		assert.Error(m.RegisterAuditDriver(ctx, "sink", nil))
		assert.Error(m.RegisterRevocationStrategy(ctx, nil))
		assert.Error(m.RegisterRotationStrategy(ctx, nil))
		assert.Error(m.RegisterPrincipalLoader(ctx, "user", nil))
		assert.Error(m.RegisterPrincipalLoader(ctx, "", func(context.Context, string) (TokenHolder, error) { return nil, nil }))
	})
	t.Run("type-config-with-bad-prefix", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		err := m.RegisterTypeConfig(ctx, "shouty", TypeConfig{Prefix: "SK"})
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
	})
}

// suffixRotation is a custom strategy for exercising the registration seam.
type suffixRotation struct {
	m *Manager
}

func (s *suffixRotation) Name() string { return "suffix" }

func (s *suffixRotation) Rotate(ctx context.Context, old *AccessToken, opt ...Option) (*RotationResult, error) {
	created, secret, err := s.m.mintRotated(ctx, old, s.Name(), getOpts(opt...))
	if err != nil {
		return nil, err
	}
	created.HashedSecret = ""
	return &RotationResult{
		Mode:       s.Name(),
		Token:      created,
		Plaintext:  secret,
		OldTokenId: old.PublicId,
	}, nil
}

func TestManager_CustomStrategy(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()

	assert, require := assert.New(t), require.New(t)
	require.NoError(m.RegisterRotationStrategy(ctx, &suffixRotation{m: m}))

	tok, _ := TestToken(t, m, TestTokenOwner("u_custom"), TestTypeSecret, "ci")
	result, err := m.Rotate(ctx, tok.PublicId, WithStrategy("suffix"))
	require.NoError(err)
	assert.Equal("suffix", result.Mode)
	assert.Equal("suffix", result.Token.Metadata["rotation_mode"])

	// The custom strategy left the old token untouched.
	gotOld, err := m.repo.LookupToken(ctx, tok.PublicId)
	require.NoError(err)
	assert.Nil(gotOld.RevokedAt)
}

func TestManager_CheckOwnerLink(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()

	require.NoError(t, m.RegisterPrincipalLoader(ctx, "ghost", func(context.Context, string) (TokenHolder, error) {
		return nil, nil
	}))
	require.NoError(t, m.RegisterPrincipalLoader(ctx, "flaky", func(context.Context, string) (TokenHolder, error) {
		return nil, fmt.Errorf("directory unavailable")
	}))
	require.NoError(t, m.RegisterPrincipalLoader(ctx, "hollow", func(context.Context, string) (TokenHolder, error) {
		return &TestPrincipal{}, nil
	}))

	tests := []struct {
		name       string
		token      *AccessToken
		wantErrMsg string
	}{
		{
			name:  "resolves",
			token: &AccessToken{OwnerType: TestPrincipalType, OwnerId: "u_1"},
		},
		{
			name:       "no-owner-reference",
			token:      &AccessToken{},
			wantErrMsg: "the token has no owner reference",
		},
		{
			name:       "no-loader",
			token:      &AccessToken{OwnerType: "martian", OwnerId: "m_1"},
			wantErrMsg: `no principal loader is registered for owner type "martian"`,
		},
		{
			name:       "owner-does-not-exist",
			token:      &AccessToken{OwnerType: "ghost", OwnerId: "g_1"},
			wantErrMsg: `owner ghost "g_1" does not exist`,
		},
		{
			name:       "loader-failure",
			token:      &AccessToken{OwnerType: "flaky", OwnerId: "f_1"},
			wantErrMsg: `unable to load owner flaky "f_1"`,
		},
		{
			name:       "empty-principal-reference",
			token:      &AccessToken{OwnerType: "hollow", OwnerId: "h_1"},
			wantErrMsg: `owner hollow "h_1" has an empty principal reference`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			err := m.checkOwnerLink(ctx, tt.token)
			if tt.wantErrMsg == "" {
				require.NoError(err)
				return
			}
			require.Error(err)
			assert.Truef(errors.Match(errors.T(errors.MissingOwner), err), "Unexpected error %s", err)
			assert.Contains(err.Error(), tt.wantErrMsg)
		})
	}
}

func TestManager_MintSecret(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()

	t.Run("unknown-generator", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, _, err := m.mintSecret(ctx, "sk", "live", "ulid", "")
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.NotRegistered), err), "Unexpected error %s", err)
	})
	t.Run("unknown-hasher", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, _, err := m.mintSecret(ctx, "sk", "live", "", "argon2")
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.NotRegistered), err), "Unexpected error %s", err)
	})
	t.Run("hasher-round-trip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		secret, digest, err := m.mintSecret(ctx, "sk", "live", "", "")
		require.NoError(err)
		assert.NotEmpty(secret)
		assert.NotEmpty(digest)
		assert.NotEqual(secret, digest)
		assert.True(m.verifySecret(ctx, secret, digest))
		assert.False(m.verifySecret(ctx, "sk_live_other", digest))
	})
}
