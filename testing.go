// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"testing"

	"github.com/hashicorp/go-dbw"
	"github.com/stretchr/testify/require"
)

// Token type names registered by TestManager.
const (
	// TestTypeSecret is a server-side secret key type with prefix sk.
	TestTypeSecret = "secret"

	// TestTypePublishable is a client-side key type with prefix pk that
	// allows domain restriction.
	TestTypePublishable = "publishable"

	// TestTypeRestricted is a server-side key type with prefix rk.
	TestTypeRestricted = "restricted"
)

// TestPrincipalType is the owner type tag TestManager registers a
// permissive loader for.
const TestPrincipalType = "user"

// TestDb creates an in-memory test database with the package's schema. The
// DB_DIALECT and DB_DSN env vars switch the dialect the way dbw.TestSetup
// supports.
func TestDb(t *testing.T) *dbw.DB {
	t.Helper()
	db, _ := dbw.TestSetup(t, dbw.WithTestMigrationUsingDB(MigrateStore))
	return db
}

// TestRepository creates a Repository over the test database.
func TestRepository(t *testing.T, db *dbw.DB, opt ...Option) *Repository {
	t.Helper()
	rw := dbw.New(db)
	repo, err := NewRepository(context.Background(), rw, rw, opt...)
	require.NoError(t, err)
	return repo
}

// TestManager creates a Manager over the test database with three token
// types registered (TestTypeSecret, TestTypePublishable, TestTypeRestricted)
// and a permissive principal loader for TestPrincipalType that resolves any
// non-empty id.
func TestManager(t *testing.T, db *dbw.DB, opt ...Option) *Manager {
	t.Helper()
	return TestManagerWithConfig(t, db, DefaultConfig(), opt...)
}

// TestManagerWithConfig is TestManager with a caller-supplied Config.
func TestManagerWithConfig(t *testing.T, db *dbw.DB, conf *Config, opt ...Option) *Manager {
	t.Helper()
	ctx := context.Background()
	repo := TestRepository(t, db)
	m, err := NewManager(ctx, conf, repo, opt...)
	require.NoError(t, err)
	require.NoError(t, m.RegisterTypeConfig(ctx, TestTypeSecret, TypeConfig{Prefix: "sk"}))
	require.NoError(t, m.RegisterTypeConfig(ctx, TestTypePublishable, TypeConfig{Prefix: "pk", ClientSide: true, DomainRestriction: true}))
	require.NoError(t, m.RegisterTypeConfig(ctx, TestTypeRestricted, TypeConfig{Prefix: "rk"}))
	require.NoError(t, m.RegisterPrincipalLoader(ctx, TestPrincipalType, func(_ context.Context, id string) (TokenHolder, error) {
		if id == "" {
			return nil, nil
		}
		return &TestPrincipal{Type: TestPrincipalType, Id: id}, nil
	}))
	return m
}

// TestPrincipal is a TokenHolder for tests.
type TestPrincipal struct {
	Type string
	Id   string
}

// PrincipalRef returns the principal's (type, id) pair.
func (p *TestPrincipal) PrincipalRef() PrincipalRef {
	return PrincipalRef{Type: p.Type, Id: p.Id}
}

// TestTokenOwner returns a TokenHolder of TestPrincipalType with the given
// id.
func TestTokenOwner(id string) *TestPrincipal {
	return &TestPrincipal{Type: TestPrincipalType, Id: id}
}

// TestToken issues a token through the manager and returns it with its
// plaintext secret.
func TestToken(t *testing.T, m *Manager, owner TokenHolder, typeName, name string, opt ...Option) (*AccessToken, string) {
	t.Helper()
	tok, secret, err := m.Issuance(owner).Issue(context.Background(), typeName, name, opt...)
	require.NoError(t, err)
	require.NotNil(t, tok)
	require.NotEmpty(t, secret)
	return tok, secret
}
