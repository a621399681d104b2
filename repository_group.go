// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
)

// CreateGroup persists a group and its member tokens in one transaction, so
// a failed member rolls back the whole issuance. The returned group is
// reloaded from the store with its members attached.
func (r *Repository) CreateGroup(ctx context.Context, g *AccessTokenGroup, members []*AccessToken, opt ...Option) (*AccessTokenGroup, error) {
	const op = "apitoken.(Repository).CreateGroup"
	switch {
	case g == nil:
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing group")
	case len(members) == 0:
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing members")
	}
	for _, m := range members {
		if m == nil {
			return nil, errors.New(ctx, errors.InvalidParameter, op, "nil member token")
		}
		if m.GroupId != g.PublicId {
			return nil, errors.New(ctx, errors.InvalidParameter, op,
				fmt.Sprintf("member %q does not reference the group", m.PublicId))
		}
	}
	opts := getOpts(opt...)
	createdGroup := g.Clone()
	createdGroup.Members = nil
	createdMembers := make([]*AccessToken, 0, len(members))
	for _, m := range members {
		createdMembers = append(createdMembers, m.Clone())
	}
	_, err := r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) error {
			if err := w.Create(ctx, createdGroup); err != nil {
				return err
			}
			return w.CreateItems(ctx, createdMembers)
		},
	)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", g.PublicId)))
	}
	reloaded, err := r.LookupGroup(ctx, createdGroup.PublicId)
	switch {
	case err != nil:
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.GroupRefreshFailure),
			errors.WithMsg(fmt.Sprintf("unable to reload group %q after creation", createdGroup.PublicId)))
	case reloaded == nil || len(reloaded.Members) == 0:
		return nil, errors.New(ctx, errors.GroupRefreshFailure, op,
			fmt.Sprintf("group %q reloaded empty after creation", createdGroup.PublicId))
	}
	return reloaded, nil
}

// LookupGroup returns the group with its member tokens attached, hashed
// secrets cleared, or nil, nil when it doesn't exist.
func (r *Repository) LookupGroup(ctx context.Context, publicId string, opt ...Option) (*AccessTokenGroup, error) {
	const op = "apitoken.(Repository).LookupGroup"
	if publicId == "" {
		return nil, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	g := allocAccessTokenGroup()
	g.PublicId = publicId
	if err := r.reader.LookupByPublicId(ctx, g); err != nil {
		if errors.Is(err, dbw.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", publicId)))
	}
	members, err := r.GroupMemberTokens(ctx, publicId, opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	g.Members = members
	return g, nil
}

// GroupMemberTokens returns the member tokens of a group, hashed secrets
// cleared, ordered by type for stable output.
func (r *Repository) GroupMemberTokens(ctx context.Context, groupId string, opt ...Option) ([]*AccessToken, error) {
	const op = "apitoken.(Repository).GroupMemberTokens"
	if groupId == "" {
		return nil, errors.New(ctx, errors.InvalidPublicId, op, "missing group id")
	}
	members, err := r.searchTokens(ctx, "group_id = ?", []any{groupId}, "type asc", opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", groupId)))
	}
	for _, m := range members {
		m.HashedSecret = ""
	}
	return members, nil
}

// ListGroups returns an owner's groups, without members, newest first.
func (r *Repository) ListGroups(ctx context.Context, owner PrincipalRef, opt ...Option) ([]*AccessTokenGroup, error) {
	const op = "apitoken.(Repository).ListGroups"
	if owner.IsZero() {
		return nil, errors.New(ctx, errors.MissingOwner, op, "missing owner")
	}
	opts := getOpts(opt...)
	var groups []*AccessTokenGroup
	err := r.reader.SearchWhere(ctx, &groups,
		"owner_type = ? and owner_id = ?",
		[]any{owner.Type, owner.Id},
		dbw.WithLimit(r.limitFor(opts)),
		dbw.WithOrder("create_time desc"),
	)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return groups, nil
}
