// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-apitoken/errors"
)

// Derive creates a child token from an existing parent. The child carries
// the parent's type, environment, owner, context, boundary, and restrictions
// and may only narrow the contract: its abilities must be a subset of the
// parent's and its expiration may not outlast the parent's. When no
// expiration is requested the parent's is inherited. The child records its
// parent and sits one level deeper in the derivation chain; chains stop at
// the configured maximum depth. Derived tokens are never group members.
//
// WithDerivedMetadata attaches caller data to the child without touching the
// metadata inherited from the parent.
func (m *Manager) Derive(ctx context.Context, parentId string, abilities []string, opt ...Option) (*AccessToken, string, error) {
	const op = "apitoken.(Manager).Derive"
	parent, err := m.repo.lookupToken(ctx, parentId)
	switch {
	case err != nil:
		return nil, "", errors.Wrap(ctx, err, op)
	case parent == nil:
		return nil, "", errors.New(ctx, errors.RecordNotFound, op, fmt.Sprintf("token %q not found", parentId))
	}
	now := m.timeNow()
	if !parent.CanDerive(now, m.conf.MaxDerivationDepth) {
		return nil, "", errors.New(ctx, errors.CannotDeriveToken, op,
			fmt.Sprintf("token %q cannot derive children: it is revoked, expired, or already at depth %d", parentId, parent.Depth))
	}
	if !abilitiesContain(parent.Abilities, abilities) {
		return nil, "", errors.New(ctx, errors.InvalidDerivedAbilities, op,
			"requested abilities are not a subset of the parent's")
	}
	opts := getOpts(opt...)
	expiresAt := parent.ExpiresAt
	if opts.withExpiration != nil {
		if parent.ExpiresAt != nil && opts.withExpiration.After(*parent.ExpiresAt) {
			return nil, "", errors.New(ctx, errors.InvalidDerivedExpiration, op,
				"requested expiration is after the parent's")
		}
		expiresAt = opts.withExpiration
	}
	if err := m.checkOwnerLink(ctx, parent); err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}

	secret, digest, err := m.mintSecret(ctx, parent.Prefix, parent.Environment, opts.withGenerator, opts.withHasher)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	id, err := newTokenId(ctx)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	name := parent.Name
	if opts.withName != "" {
		name = opts.withName
	}
	var derivedMd StringMap
	if len(opts.withDerivedMetadata) > 0 {
		derivedMd = StringMap(opts.withDerivedMetadata).Clone()
	}

	child := &AccessToken{
		PublicId:           id,
		OwnerType:          parent.OwnerType,
		OwnerId:            parent.OwnerId,
		ContextType:        parent.ContextType,
		ContextId:          parent.ContextId,
		BoundaryType:       parent.BoundaryType,
		BoundaryId:         parent.BoundaryId,
		Type:               parent.Type,
		Prefix:             parent.Prefix,
		Environment:        parent.Environment,
		Name:               name,
		HashedSecret:       digest,
		Abilities:          append(StringList(nil), abilities...),
		AllowedIps:         parent.AllowedIps.Clone(),
		AllowedDomains:     parent.AllowedDomains.Clone(),
		RateLimitPerMinute: parent.RateLimitPerMinute,
		Metadata:           parent.Metadata.Clone(),
		DerivedMetadata:    derivedMd,
		ParentId:           parent.PublicId,
		Depth:              parent.Depth + 1,
	}
	if expiresAt != nil {
		at := *expiresAt
		child.ExpiresAt = &at
	}
	created, err := m.repo.CreateToken(ctx, child)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	m.audit.write(ctx, AuditDerived, created.PublicId, map[string]string{
		"parent_id": parent.PublicId,
		"depth":     strconv.Itoa(created.Depth),
	})
	created.HashedSecret = ""
	return created, secret, nil
}
