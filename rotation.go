// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
)

const (
	// RotationImmediate revokes the old token as soon as the replacement
	// exists.
	RotationImmediate = "immediate"

	// RotationGracePeriod leaves the old token valid for the configured
	// grace window after the replacement exists.
	RotationGracePeriod = "grace_period"

	// RotationDualValid leaves the old token valid indefinitely; something
	// else must revoke it later or credentials accumulate.
	RotationDualValid = "dual_valid"
)

// RotationResult reports what a rotation did.
type RotationResult struct {
	// Mode is the strategy name that ran.
	Mode string

	// Token is the new persisted token.
	Token *AccessToken

	// Plaintext is the new token's secret, observable only here.
	Plaintext string

	// OldTokenId is the rotated-out token.
	OldTokenId string

	// OldValidUntil is when the old token stops being valid: the rotation
	// instant for immediate, the grace boundary for grace_period, nil for
	// dual_valid.
	OldValidUntil *time.Time
}

// RotationStrategy governs the old token's fate after its replacement is
// created. Strategies are registered by name; WithStrategy selects one per
// call, otherwise the configured default wins.
type RotationStrategy interface {
	// Name returns the strategy's registry name.
	Name() string

	// Rotate creates the replacement token and disposes of the old one per
	// the strategy.
	Rotate(ctx context.Context, old *AccessToken, opt ...Option) (*RotationResult, error)
}

// Rotate replaces the token's credential: a new token duplicating the old
// one's type, environment, name, abilities, group membership, restrictions,
// and expiration is created with a fresh secret, and the old token is
// disposed of per the strategy named by WithStrategy or the configured
// default. Fails MissingOwner when the token's owner link doesn't resolve
// through the registered principal loaders.
func (m *Manager) Rotate(ctx context.Context, tokenId string, opt ...Option) (*RotationResult, error) {
	const op = "apitoken.(Manager).Rotate"
	old, err := m.repo.lookupToken(ctx, tokenId)
	switch {
	case err != nil:
		return nil, errors.Wrap(ctx, err, op)
	case old == nil:
		return nil, errors.New(ctx, errors.RecordNotFound, op, fmt.Sprintf("token %q not found", tokenId))
	}
	if err := m.checkOwnerLink(ctx, old); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	opts := getOpts(opt...)
	strategy, err := m.resolveRotation(ctx, opts.withStrategy)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	result, err := strategy.Rotate(ctx, old, opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// immediateRotation revokes the old token at the rotation instant.
type immediateRotation struct {
	m *Manager
}

func (s *immediateRotation) Name() string { return RotationImmediate }

func (s *immediateRotation) Rotate(ctx context.Context, old *AccessToken, opt ...Option) (*RotationResult, error) {
	const op = "apitoken.(immediateRotation).Rotate"
	if old == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	created, secret, err := s.m.mintRotated(ctx, old, RotationImmediate, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	now := s.m.timeNow()
	if _, err := s.m.repo.RevokeTokens(ctx, []string{old.PublicId}, now); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to revoke the rotated-out token"))
	}
	s.m.auditRotated(ctx, old, created, RotationImmediate, 0)
	created.HashedSecret = ""
	return &RotationResult{
		Mode:          RotationImmediate,
		Token:         created,
		Plaintext:     secret,
		OldTokenId:    old.PublicId,
		OldValidUntil: &now,
	}, nil
}

// gracePeriodRotation leaves the old token valid for the configured grace
// window by writing a future revocation timestamp.
type gracePeriodRotation struct {
	m *Manager
}

func (s *gracePeriodRotation) Name() string { return RotationGracePeriod }

func (s *gracePeriodRotation) Rotate(ctx context.Context, old *AccessToken, opt ...Option) (*RotationResult, error) {
	const op = "apitoken.(gracePeriodRotation).Rotate"
	if old == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	created, secret, err := s.m.mintRotated(ctx, old, RotationGracePeriod, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	minutes := s.m.conf.GracePeriodMinutes
	graceUntil := s.m.timeNow().Add(time.Duration(minutes) * time.Minute)
	if _, err := s.m.repo.RevokeTokens(ctx, []string{old.PublicId}, graceUntil); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to schedule the rotated-out token's revocation"))
	}
	stamped := old.Metadata.Clone()
	if stamped == nil {
		stamped = StringMap{}
	}
	stamped["grace_until"] = graceUntil.Format(time.RFC3339)
	if _, err := s.m.repo.updateMetadata(ctx, old.PublicId, stamped); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to stamp the grace boundary"))
	}
	s.m.auditRotated(ctx, old, created, RotationGracePeriod, minutes)
	created.HashedSecret = ""
	return &RotationResult{
		Mode:          RotationGracePeriod,
		Token:         created,
		Plaintext:     secret,
		OldTokenId:    old.PublicId,
		OldValidUntil: &graceUntil,
	}, nil
}

// dualValidRotation leaves the old token valid indefinitely, only stamping
// its metadata so the linkage is discoverable.
type dualValidRotation struct {
	m *Manager
}

func (s *dualValidRotation) Name() string { return RotationDualValid }

func (s *dualValidRotation) Rotate(ctx context.Context, old *AccessToken, opt ...Option) (*RotationResult, error) {
	const op = "apitoken.(dualValidRotation).Rotate"
	if old == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	created, secret, err := s.m.mintRotated(ctx, old, RotationDualValid, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	stamped := old.Metadata.Clone()
	if stamped == nil {
		stamped = StringMap{}
	}
	stamped["rotated"] = "true"
	stamped["rotated_at"] = s.m.timeNow().Format(time.RFC3339)
	if _, err := s.m.repo.updateMetadata(ctx, old.PublicId, stamped); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to stamp the rotation linkage"))
	}
	s.m.auditRotated(ctx, old, created, RotationDualValid, 0)
	created.HashedSecret = ""
	return &RotationResult{
		Mode:       RotationDualValid,
		Token:      created,
		Plaintext:  secret,
		OldTokenId: old.PublicId,
	}, nil
}

// mintRotated builds and persists the replacement token. It duplicates the
// old token's identity and contract, including its expiration and its place
// in any group or derivation chain; only the credential itself is new.
// last_used_at starts null.
func (m *Manager) mintRotated(ctx context.Context, old *AccessToken, mode string, opts options) (*AccessToken, string, error) {
	const op = "apitoken.(Manager).mintRotated"
	secret, digest, err := m.mintSecret(ctx, old.Prefix, old.Environment, opts.withGenerator, opts.withHasher)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	id, err := newTokenId(ctx)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	metadata := old.Metadata.Clone()
	if metadata == nil {
		metadata = StringMap{}
	}
	metadata["rotated_from"] = old.PublicId
	metadata["rotation_mode"] = mode

	t := &AccessToken{
		PublicId:           id,
		OwnerType:          old.OwnerType,
		OwnerId:            old.OwnerId,
		ContextType:        old.ContextType,
		ContextId:          old.ContextId,
		BoundaryType:       old.BoundaryType,
		BoundaryId:         old.BoundaryId,
		Type:               old.Type,
		Prefix:             old.Prefix,
		Environment:        old.Environment,
		Name:               old.Name,
		HashedSecret:       digest,
		Abilities:          old.Abilities.Clone(),
		AllowedIps:         old.AllowedIps.Clone(),
		AllowedDomains:     old.AllowedDomains.Clone(),
		RateLimitPerMinute: old.RateLimitPerMinute,
		GroupId:            old.GroupId,
		ParentId:           old.ParentId,
		Depth:              old.Depth,
		Metadata:           metadata,
		DerivedMetadata:    old.DerivedMetadata.Clone(),
	}
	if old.ExpiresAt != nil {
		at := *old.ExpiresAt
		t.ExpiresAt = &at
	}
	created, err := m.repo.CreateToken(ctx, t)
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	return created, secret, nil
}

// auditRotated emits the Rotated audit event for the old token.
func (m *Manager) auditRotated(ctx context.Context, old, created *AccessToken, mode string, graceMinutes int) {
	md := map[string]string{
		"mode":         mode,
		"new_token_id": created.PublicId,
	}
	if graceMinutes > 0 {
		md["grace_minutes"] = strconv.Itoa(graceMinutes)
	}
	m.audit.write(ctx, AuditRotated, old.PublicId, md)
}
