// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenIds(tokens []*AccessToken) []string {
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.PublicId)
	}
	return ids
}

func TestQueryConductor_Filters(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()
	owner := TestTokenOwner("u_qc")
	other := TestTokenOwner("u_elsewhere")

	tokSecret, _ := TestToken(t, m, owner, TestTypeSecret, "n1", WithAbilities("read", "write"))
	tokPub, _ := TestToken(t, m, owner, TestTypePublishable, "n2", WithAbilities("read"))
	tokTest, _ := TestToken(t, m, owner, TestTypeSecret, "n3", WithEnvironment("test"))
	tokAdmin, _ := TestToken(t, m, owner, TestTypeSecret, "n4", WithAbilities("*"))
	group, _, err := m.Issuance(owner).IssueGroup(ctx, []string{TestTypeRestricted}, "svc")
	require.NoError(t, err)
	tokGrouped := group.Members[0]
	tokExpired, _ := TestToken(t, m, owner, TestTypeSecret, "n5",
		WithExpiration(time.Now().UTC().Add(-time.Hour)))
	tokRevoked, _ := TestToken(t, m, owner, TestTypeSecret, "n6")
	_, err = m.Revoke(ctx, tokRevoked.PublicId)
	require.NoError(t, err)
	tokGrace, _ := TestToken(t, m, owner, TestTypeSecret, "n7")
	_, err = m.repo.RevokeTokens(ctx, []string{tokGrace.PublicId}, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	TestToken(t, m, other, TestTypeSecret, "noise")

	all := []string{
		tokSecret.PublicId, tokPub.PublicId, tokTest.PublicId, tokAdmin.PublicId,
		tokGrouped.PublicId, tokExpired.PublicId, tokRevoked.PublicId, tokGrace.PublicId,
	}

	t.Run("scoped-to-owner", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Get(ctx)
		require.NoError(err)
		assert.ElementsMatch(all, tokenIds(got))
		for _, tok := range got {
			assert.Empty(tok.HashedSecret)
		}
	})
	t.Run("type", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Type(TestTypePublishable, TestTypeRestricted).Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokPub.PublicId, tokGrouped.PublicId}, tokenIds(got))
	})
	t.Run("environment", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Environment("test").Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokTest.PublicId}, tokenIds(got))
	})
	t.Run("group", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Group(group.PublicId).Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokGrouped.PublicId}, tokenIds(got))
	})
	t.Run("ungrouped", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Ungrouped().Get(ctx)
		require.NoError(err)
		assert.NotContains(tokenIds(got), tokGrouped.PublicId)
		assert.Len(got, len(all)-1)
	})
	t.Run("with-ability-includes-wildcard-holders", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).WithAbility("write").Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokSecret.PublicId, tokAdmin.PublicId}, tokenIds(got))
	})
	t.Run("valid-includes-pending-grace-boundary", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Valid().Get(ctx)
		require.NoError(err)
		ids := tokenIds(got)
		assert.NotContains(ids, tokExpired.PublicId)
		assert.NotContains(ids, tokRevoked.PublicId)
		assert.Contains(ids, tokGrace.PublicId)
		assert.Len(got, len(all)-2)
	})
	t.Run("expired", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Expired().Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokExpired.PublicId}, tokenIds(got))
	})
	t.Run("revoked-excludes-pending-grace-boundary", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Revoked().Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokRevoked.PublicId}, tokenIds(got))
	})
	t.Run("filters-compose", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Type(TestTypeSecret).Valid().Ungrouped().WithAbility("read").Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokSecret.PublicId, tokAdmin.PublicId}, tokenIds(got))
	})
	t.Run("matching", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Matching(`name="n1"`).Get(ctx)
		require.NoError(err)
		assert.ElementsMatch([]string{tokSecret.PublicId}, tokenIds(got))
	})
	t.Run("matching-parse-error-surfaces-at-terminal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := m.Tokens(owner).Matching(`name=`)
		_, err := c.Get(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
		_, err = c.Count(ctx)
		require.Error(err)
	})
	t.Run("count-and-exists", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		cnt, err := m.Tokens(owner).Type(TestTypeSecret).Count(ctx)
		require.NoError(err)
		got, err := m.Tokens(owner).Type(TestTypeSecret).Get(ctx)
		require.NoError(err)
		assert.Equal(len(got), cnt)

		ok, err := m.Tokens(owner).Environment("test").Exists(ctx)
		require.NoError(err)
		assert.True(ok)
		ok, err = m.Tokens(owner).Environment("nonesuch").Exists(ctx)
		require.NoError(err)
		assert.False(ok)
	})
	t.Run("first-returns-nil-on-no-match", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Environment("nonesuch").First(ctx)
		require.NoError(err)
		assert.Nil(got)
	})
	t.Run("limit", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Limit(2).Get(ctx)
		require.NoError(err)
		assert.Len(got, 2)
	})
	t.Run("negative-limit-defers", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := m.Tokens(owner).Limit(-1).Get(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
	})
	t.Run("missing-owner-defers", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := m.Tokens(nil).Get(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.MissingOwner), err), "Unexpected error %s", err)
		_, err = m.Tokens(nil).Type(TestTypeSecret).Count(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.MissingOwner), err), "Unexpected error %s", err)
		_, err = m.Tokens(&TestPrincipal{}).First(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.MissingOwner), err), "Unexpected error %s", err)
	})
	t.Run("conductor-forks-independently", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		base := m.Tokens(owner).Type(TestTypeSecret)
		narrowed := base.Environment("test")

		gotBase, err := base.Get(ctx)
		require.NoError(err)
		gotNarrowed, err := narrowed.Get(ctx)
		require.NoError(err)
		assert.Greater(len(gotBase), len(gotNarrowed))
		assert.ElementsMatch([]string{tokTest.PublicId}, tokenIds(gotNarrowed))
	})
}

func TestQueryConductor_Ordering(t *testing.T) {
	db := TestDb(t)
	m := TestManager(t, db)
	ctx := context.Background()
	owner := TestTokenOwner("u_order")

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	mk := func(created, lastUsed time.Time) *AccessToken {
		return testTokenRow(t, m.repo, func(tok *AccessToken) {
			tok.OwnerId = owner.Id
			tok.CreateTime = &created
			lu := lastUsed
			tok.LastUsedAt = &lu
		})
	}
	oldest := mk(base.Add(-3*time.Hour), base.Add(-1*time.Minute))
	middle := mk(base.Add(-2*time.Hour), base.Add(-3*time.Minute))
	newest := mk(base.Add(-1*time.Hour), base.Add(-2*time.Minute))

	t.Run("created-descending", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).OrderByCreated(DescendingOrderBy).Get(ctx)
		require.NoError(err)
		require.Len(got, 3)
		assert.Equal([]string{newest.PublicId, middle.PublicId, oldest.PublicId}, tokenIds(got))
	})
	t.Run("default-is-created-ascending", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).Get(ctx)
		require.NoError(err)
		require.Len(got, 3)
		assert.Equal([]string{oldest.PublicId, middle.PublicId, newest.PublicId}, tokenIds(got))
	})
	t.Run("last-used-ascending", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).OrderByLastUsed(AscendingOrderBy).Get(ctx)
		require.NoError(err)
		require.Len(got, 3)
		assert.Equal([]string{middle.PublicId, newest.PublicId, oldest.PublicId}, tokenIds(got))
	})
	t.Run("first-honors-order", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := m.Tokens(owner).OrderByCreated(DescendingOrderBy).First(ctx)
		require.NoError(err)
		require.NotNil(got)
		assert.Equal(newest.PublicId, got.PublicId)
	})
	t.Run("invalid-order-defers", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := m.Tokens(owner).OrderByCreated(UnknownOrderBy).Get(ctx)
		require.Error(err)
		assert.Truef(errors.Match(errors.T(errors.InvalidParameter), err), "Unexpected error %s", err)
	})
}
