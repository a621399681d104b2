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
	// RevocationSingle revokes the target token only.
	RevocationSingle = "single"

	// RevocationCascade revokes every member of the target's group, falling
	// back to single for ungrouped tokens.
	RevocationCascade = "cascade"

	// RevocationPartial revokes the group members whose type is in the
	// configured partial type set, falling back to single for ungrouped
	// tokens.
	RevocationPartial = "partial"

	// RevocationTimed revokes the target immediately while recording the
	// configured delay; executing a truly deferred revocation belongs to an
	// external scheduler.
	RevocationTimed = "timed"
)

// RevocationResult reports what a revocation did.
type RevocationResult struct {
	// Mode is the strategy name that ran.
	Mode string

	// GroupId is set when the strategy operated on the target's group.
	GroupId string

	// TokenIds are the candidate tokens the strategy selected.
	TokenIds []string

	// AffectedCount is how many tokens actually transitioned to revoked.
	// Already revoked candidates don't count.
	AffectedCount int

	// RevokedAt is the revocation instant written.
	RevokedAt time.Time
}

// RevocationStrategy decides which tokens a revocation touches. Strategies
// are registered by name; WithStrategy selects one per call, otherwise the
// configured default wins.
//
// Supported options for all built-in strategies: WithReason records a
// caller-supplied reason in the audit metadata, and WithDescendants revokes
// the target's entire derivation subtree instead of the strategy's usual
// selection.
type RevocationStrategy interface {
	// Name returns the strategy's registry name.
	Name() string

	// Revoke revokes per the strategy's selection rule.
	Revoke(ctx context.Context, t *AccessToken, opt ...Option) (*RevocationResult, error)
}

// Revoke revokes the token with the given id using the strategy named by
// WithStrategy, or the configured default.
func (m *Manager) Revoke(ctx context.Context, tokenId string, opt ...Option) (*RevocationResult, error) {
	const op = "apitoken.(Manager).Revoke"
	t, err := m.repo.lookupToken(ctx, tokenId)
	switch {
	case err != nil:
		return nil, errors.Wrap(ctx, err, op)
	case t == nil:
		return nil, errors.New(ctx, errors.RecordNotFound, op, fmt.Sprintf("token %q not found", tokenId))
	}
	opts := getOpts(opt...)
	strategy, err := m.resolveRevocation(ctx, opts.withStrategy)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	result, err := strategy.Revoke(ctx, t, opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// singleRevocation revokes the target only.
type singleRevocation struct {
	m *Manager
}

func (s *singleRevocation) Name() string { return RevocationSingle }

func (s *singleRevocation) Revoke(ctx context.Context, t *AccessToken, opt ...Option) (*RevocationResult, error) {
	const op = "apitoken.(singleRevocation).Revoke"
	if t == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	result, err := s.m.executeRevocation(ctx, t, RevocationSingle, []string{t.PublicId}, "", nil, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// cascadeRevocation revokes the whole group.
type cascadeRevocation struct {
	m *Manager
}

func (s *cascadeRevocation) Name() string { return RevocationCascade }

func (s *cascadeRevocation) Revoke(ctx context.Context, t *AccessToken, opt ...Option) (*RevocationResult, error) {
	const op = "apitoken.(cascadeRevocation).Revoke"
	if t == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	ids := []string{t.PublicId}
	if t.GroupId != "" {
		members, err := s.m.repo.GroupMemberTokens(ctx, t.GroupId)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		ids = make([]string, 0, len(members))
		for _, member := range members {
			ids = append(ids, member.PublicId)
		}
	}
	result, err := s.m.executeRevocation(ctx, t, RevocationCascade, ids, t.GroupId, nil, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// partialRevocation revokes the group members whose type is in the
// configured partial type set. The set is fixed configuration, independent
// of the triggering token's own type.
type partialRevocation struct {
	m *Manager
}

func (s *partialRevocation) Name() string { return RevocationPartial }

func (s *partialRevocation) Revoke(ctx context.Context, t *AccessToken, opt ...Option) (*RevocationResult, error) {
	const op = "apitoken.(partialRevocation).Revoke"
	if t == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	ids := []string{t.PublicId}
	if t.GroupId != "" {
		partialTypes := make(map[string]struct{}, len(s.m.conf.PartialRevocationTypes))
		for _, pt := range s.m.conf.PartialRevocationTypes {
			partialTypes[pt] = struct{}{}
		}
		members, err := s.m.repo.GroupMemberTokens(ctx, t.GroupId)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		ids = nil
		for _, member := range members {
			if _, ok := partialTypes[member.Type]; ok {
				ids = append(ids, member.PublicId)
			}
		}
	}
	result, err := s.m.executeRevocation(ctx, t, RevocationPartial, ids, t.GroupId, nil, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// timedRevocation revokes immediately and records the configured delay. The
// delay is advisory: honoring it requires an external scheduler, so the
// minimal compliant behavior is an immediate revocation that audits the
// intent.
type timedRevocation struct {
	m *Manager
}

func (s *timedRevocation) Name() string { return RevocationTimed }

func (s *timedRevocation) Revoke(ctx context.Context, t *AccessToken, opt ...Option) (*RevocationResult, error) {
	const op = "apitoken.(timedRevocation).Revoke"
	if t == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	md := map[string]string{
		"delay_minutes": strconv.Itoa(s.m.conf.TimedRevocationDelayMinutes),
	}
	result, err := s.m.executeRevocation(ctx, t, RevocationTimed, []string{t.PublicId}, "", md, getOpts(opt...))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return result, nil
}

// executeRevocation revokes the selected id set, replacing it with the
// target's derivation subtree when WithDescendants was requested, and emits
// one Revoked audit event. An empty selection (a partial revocation whose
// group has no matching types) writes nothing but still audits.
func (m *Manager) executeRevocation(ctx context.Context, target *AccessToken, mode string, ids []string, groupId string, extraMd map[string]string, opts options) (*RevocationResult, error) {
	const op = "apitoken.(Manager).executeRevocation"
	if opts.withDescendants {
		descendants, err := m.repo.DescendantTokenIds(ctx, target.PublicId)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		ids = append([]string{target.PublicId}, descendants...)
		groupId = ""
	}
	revokedAt := m.timeNow()
	var affected int
	if len(ids) > 0 {
		var err error
		affected, err = m.repo.RevokeTokens(ctx, ids, revokedAt)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	}

	md := map[string]string{
		"mode":           mode,
		"affected_count": strconv.Itoa(affected),
	}
	if groupId != "" {
		md["group_id"] = groupId
	}
	if opts.withDescendants {
		md["descendants"] = "true"
	}
	if opts.withReason != "" {
		md["reason"] = opts.withReason
	}
	for k, v := range extraMd {
		md[k] = v
	}
	m.audit.write(ctx, AuditRevoked, target.PublicId, md)

	return &RevocationResult{
		Mode:          mode,
		GroupId:       groupId,
		TokenIds:      ids,
		AffectedCount: affected,
		RevokedAt:     revokedAt,
	}, nil
}
