// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/mql"
)

// OrderBy defines an ordering for query conductor results.
type OrderBy int

const (
	// UnknownOrderBy would designate an unknown ordering of the returned
	// results. This is the standard ordering.
	UnknownOrderBy OrderBy = iota

	// AscendingOrderBy would designate ordering the returned results in
	// ascending order.
	AscendingOrderBy

	// DescendingOrderBy would designate ordering the returned results in
	// descending order.
	DescendingOrderBy
)

// QueryConductor is a chainable read-only filter over one owner's tokens.
// Filter methods have value receivers and return copies, so a partially
// built conductor can be reused as a shared base. Errors raised while
// chaining are deferred and surfaced by the terminal methods Get, First,
// Count, and Exists. Secrets are never included in results.
type QueryConductor struct {
	m     *Manager
	owner PrincipalRef
	where []string
	args  []any
	order []string
	limit int
	err   error
}

// Tokens starts a query over the owner's tokens.
func (m *Manager) Tokens(owner TokenHolder) QueryConductor {
	c := QueryConductor{m: m}
	if isNil(owner) {
		c.err = errors.NewDeferred(errors.MissingOwner, "apitoken.(Manager).Tokens", "missing owner")
		return c
	}
	c.owner = owner.PrincipalRef()
	if c.owner.IsZero() {
		c.err = errors.NewDeferred(errors.MissingOwner, "apitoken.(Manager).Tokens", "the owner's principal reference is empty")
	}
	return c
}

func (c QueryConductor) and(clause string, args ...any) QueryConductor {
	c.where = append(append([]string(nil), c.where...), clause)
	c.args = append(append([]any(nil), c.args...), args...)
	return c
}

func (c QueryConductor) fail(code errors.Code, op, msg string) QueryConductor {
	if c.err == nil {
		c.err = errors.NewDeferred(code, errors.Op(op), msg)
	}
	return c
}

// Type keeps tokens whose type is one of the given names.
func (c QueryConductor) Type(typeNames ...string) QueryConductor {
	if len(typeNames) == 0 {
		return c.fail(errors.InvalidParameter, "apitoken.(QueryConductor).Type", "missing type names")
	}
	return c.and("type in ?", append([]string(nil), typeNames...))
}

// Environment keeps tokens minted for the given environment tag.
func (c QueryConductor) Environment(environment string) QueryConductor {
	if environment == "" {
		return c.fail(errors.InvalidParameter, "apitoken.(QueryConductor).Environment", "missing environment")
	}
	return c.and("environment = ?", environment)
}

// Group keeps tokens belonging to the given group.
func (c QueryConductor) Group(groupId string) QueryConductor {
	if groupId == "" {
		return c.fail(errors.InvalidParameter, "apitoken.(QueryConductor).Group", "missing group id")
	}
	return c.and("group_id = ?", groupId)
}

// Ungrouped keeps tokens that belong to no group.
func (c QueryConductor) Ungrouped() QueryConductor {
	return c.and("(group_id is null or group_id = '')")
}

// WithAbility keeps tokens granting the ability, either by exact string or
// by carrying the wildcard ability.
func (c QueryConductor) WithAbility(ability string) QueryConductor {
	if ability == "" {
		return c.fail(errors.InvalidParameter, "apitoken.(QueryConductor).WithAbility", "missing ability")
	}
	return c.and("(abilities like ? or abilities like ?)", fmt.Sprintf("%%%q%%", ability), `%"*"%`)
}

// Valid keeps tokens that are not revoked and not expired as of now.
func (c QueryConductor) Valid() QueryConductor {
	now := c.m.timeNow()
	return c.and("(revoked_at is null or revoked_at > ?) and (expires_at is null or expires_at > ?)", now, now)
}

// Expired keeps tokens whose expiration has passed, regardless of
// revocation state.
func (c QueryConductor) Expired() QueryConductor {
	return c.and("expires_at is not null and expires_at <= ?", c.m.timeNow())
}

// Revoked keeps tokens whose revocation timestamp has passed, regardless of
// expiration state. A revocation timestamp still in the future (a pending
// grace-period boundary) does not count.
func (c QueryConductor) Revoked() QueryConductor {
	return c.and("revoked_at is not null and revoked_at <= ?", c.m.timeNow())
}

// Matching ANDs an mql filter expression over the token's queryable fields
// into the query.
func (c QueryConductor) Matching(query string) QueryConductor {
	const op = "apitoken.(QueryConductor).Matching"
	if query == "" {
		return c.fail(errors.InvalidParameter, op, "missing query")
	}
	w, err := mql.Parse(query, AccessToken{}, mql.WithIgnoredFields("HashedSecret"))
	if err != nil {
		if c.err == nil {
			c.err = errors.WrapDeferred(err, op, errors.WithCode(errors.InvalidParameter))
		}
		return c
	}
	return c.and("("+w.Condition+")", w.Args...)
}

// OrderByCreated orders results by creation time.
func (c QueryConductor) OrderByCreated(orderBy OrderBy) QueryConductor {
	return c.orderBy("create_time", orderBy, "apitoken.(QueryConductor).OrderByCreated")
}

// OrderByLastUsed orders results by last authentication time.
func (c QueryConductor) OrderByLastUsed(orderBy OrderBy) QueryConductor {
	return c.orderBy("last_used_at", orderBy, "apitoken.(QueryConductor).OrderByLastUsed")
}

func (c QueryConductor) orderBy(column string, orderBy OrderBy, op string) QueryConductor {
	var dir string
	switch orderBy {
	case AscendingOrderBy:
		dir = "asc"
	case DescendingOrderBy:
		dir = "desc"
	default:
		return c.fail(errors.InvalidParameter, op, fmt.Sprintf("invalid order by %d", orderBy))
	}
	c.order = append(append([]string(nil), c.order...), column+" "+dir)
	return c
}

// Limit caps the number of results Get returns.
func (c QueryConductor) Limit(limit int) QueryConductor {
	if limit < 0 {
		return c.fail(errors.InvalidParameter, "apitoken.(QueryConductor).Limit", "limit must not be negative")
	}
	c.limit = limit
	return c
}

func (c QueryConductor) compile() (string, []any, string) {
	where := []string{"owner_type = ? and owner_id = ?"}
	args := []any{c.owner.Type, c.owner.Id}
	where = append(where, c.where...)
	args = append(args, c.args...)
	order := "create_time asc"
	if len(c.order) > 0 {
		order = strings.Join(c.order, ", ")
	}
	return strings.Join(where, " and "), args, order
}

// Get returns all matching tokens.
func (c QueryConductor) Get(ctx context.Context) ([]*AccessToken, error) {
	const op = "apitoken.(QueryConductor).Get"
	if c.err != nil {
		return nil, errors.Wrap(ctx, c.err, op)
	}
	where, args, order := c.compile()
	var opt []Option
	if c.limit > 0 {
		opt = append(opt, WithLimit(c.limit))
	}
	tokens, err := c.m.repo.searchTokens(ctx, where, args, order, opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	for _, t := range tokens {
		t.HashedSecret = ""
	}
	return tokens, nil
}

// First returns the first matching token under the current ordering, or nil
// when nothing matches.
func (c QueryConductor) First(ctx context.Context) (*AccessToken, error) {
	const op = "apitoken.(QueryConductor).First"
	if c.err != nil {
		return nil, errors.Wrap(ctx, c.err, op)
	}
	where, args, order := c.compile()
	tokens, err := c.m.repo.searchTokens(ctx, where, args, order, WithLimit(1))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	tokens[0].HashedSecret = ""
	return tokens[0], nil
}

// Count returns the number of matching tokens.
func (c QueryConductor) Count(ctx context.Context) (int, error) {
	const op = "apitoken.(QueryConductor).Count"
	if c.err != nil {
		return 0, errors.Wrap(ctx, c.err, op)
	}
	where, args, _ := c.compile()
	cnt, err := c.m.repo.countTokens(ctx, where, args)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	return cnt, nil
}

// Exists reports whether any token matches.
func (c QueryConductor) Exists(ctx context.Context) (bool, error) {
	const op = "apitoken.(QueryConductor).Exists"
	if c.err != nil {
		return false, errors.Wrap(ctx, c.err, op)
	}
	cnt, err := c.Count(ctx)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return cnt > 0, nil
}
