// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
)

// IssuanceBuilder accumulates defaults for issuing tokens on behalf of one
// owner. It is an immutable value: every chain method returns a copy, so a
// builder can be shared and forked freely. Per-call options passed to Issue
// and IssueGroup win over builder defaults.
type IssuanceBuilder struct {
	m *Manager

	owner    PrincipalRef
	context  PrincipalRef
	boundary PrincipalRef

	abilities      []string
	environment    string
	allowedIps     []string
	allowedDomains []string
	rateLimit      uint32
	expiresAt      *time.Time
	metadata       map[string]string
	generator      string
	hasher         string
}

// Context returns a copy of the builder with the entity the tokens act on
// behalf of.
func (b IssuanceBuilder) Context(ref PrincipalRef) IssuanceBuilder {
	b.context = ref
	return b
}

// Boundary returns a copy of the builder with the tenant or workspace scope.
func (b IssuanceBuilder) Boundary(ref PrincipalRef) IssuanceBuilder {
	b.boundary = ref
	return b
}

// Abilities returns a copy of the builder with default abilities.
func (b IssuanceBuilder) Abilities(abilities ...string) IssuanceBuilder {
	b.abilities = append([]string(nil), abilities...)
	return b
}

// Environment returns a copy of the builder with a default environment tag.
func (b IssuanceBuilder) Environment(env string) IssuanceBuilder {
	b.environment = env
	return b
}

// AllowedIps returns a copy of the builder with a default IP allowlist.
func (b IssuanceBuilder) AllowedIps(ips ...string) IssuanceBuilder {
	b.allowedIps = append([]string(nil), ips...)
	return b
}

// AllowedDomains returns a copy of the builder with a default domain
// allowlist. Only token types that allow domain restriction accept one.
func (b IssuanceBuilder) AllowedDomains(domains ...string) IssuanceBuilder {
	b.allowedDomains = append([]string(nil), domains...)
	return b
}

// RateLimitPerMinute returns a copy of the builder with a default per-minute
// authentication limit. Zero means no limit.
func (b IssuanceBuilder) RateLimitPerMinute(limit uint32) IssuanceBuilder {
	b.rateLimit = limit
	return b
}

// ExpiresAt returns a copy of the builder with a default expiration.
func (b IssuanceBuilder) ExpiresAt(t time.Time) IssuanceBuilder {
	b.expiresAt = &t
	return b
}

// Metadata returns a copy of the builder with default issuer metadata.
func (b IssuanceBuilder) Metadata(md map[string]string) IssuanceBuilder {
	b.metadata = StringMap(md).Clone()
	return b
}

// Generator returns a copy of the builder naming the generator to use,
// overriding the configured default.
func (b IssuanceBuilder) Generator(name string) IssuanceBuilder {
	b.generator = name
	return b
}

// Hasher returns a copy of the builder naming the hasher to use, overriding
// the configured default.
func (b IssuanceBuilder) Hasher(name string) IssuanceBuilder {
	b.hasher = name
	return b
}

// Issue resolves the token type, generates and hashes a secret, and
// persists a new token. The plaintext secret is returned alongside the
// persisted token and is not observable again.
//
// Supported options: WithAbilities, WithEnvironment, WithAllowedIps,
// WithAllowedDomains, WithRateLimitPerMinute, WithExpiration, WithMetadata,
// WithGenerator, WithHasher. Options win over builder defaults.
func (b IssuanceBuilder) Issue(ctx context.Context, typeName, name string, opt ...Option) (*AccessToken, string, error) {
	const op = "apitoken.(IssuanceBuilder).Issue"
	t, secret, err := b.issueOne(ctx, typeName, name, "", getOpts(opt...))
	if err != nil {
		return nil, "", errors.Wrap(ctx, err, op)
	}
	b.m.audit.write(ctx, AuditCreated, t.PublicId, map[string]string{
		"type":        t.Type,
		"environment": t.Environment,
	})
	t.HashedSecret = ""
	return t, secret, nil
}

// IssueGroup persists a group and one token per requested type. Members
// share the builder's name, metadata, and environment but carry distinct
// types and secrets. The plaintext secrets are returned keyed by type name
// and are not observable again.
//
// Supports the same options as Issue.
func (b IssuanceBuilder) IssueGroup(ctx context.Context, typeNames []string, name string, opt ...Option) (*AccessTokenGroup, map[string]string, error) {
	const op = "apitoken.(IssuanceBuilder).IssueGroup"
	opts := getOpts(opt...)
	if b.owner.IsZero() {
		return nil, nil, errors.New(ctx, errors.MissingOwner, op, "missing owner")
	}
	if len(typeNames) == 0 {
		return nil, nil, errors.New(ctx, errors.InvalidParameter, op, "missing type names")
	}
	if name == "" {
		return nil, nil, errors.New(ctx, errors.InvalidParameter, op, "missing name")
	}
	seen := make(map[string]struct{}, len(typeNames))
	for _, tn := range typeNames {
		if _, ok := seen[tn]; ok {
			return nil, nil, errors.New(ctx, errors.InvalidParameter, op,
				fmt.Sprintf("duplicate type %q; group members must have distinct types", tn))
		}
		seen[tn] = struct{}{}
	}

	groupId, err := newGroupId(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	environment := b.resolveEnvironment(opts)
	metadata := b.resolveMetadata(opts)
	group := &AccessTokenGroup{
		PublicId:    groupId,
		OwnerType:   b.owner.Type,
		OwnerId:     b.owner.Id,
		Name:        name,
		Environment: environment,
		Metadata:    metadata,
	}

	members := make([]*AccessToken, 0, len(typeNames))
	secrets := make(map[string]string, len(typeNames))
	for _, tn := range typeNames {
		member, secret, err := b.buildToken(ctx, tn, name, groupId, opts)
		if err != nil {
			return nil, nil, errors.Wrap(ctx, err, op)
		}
		members = append(members, member)
		secrets[tn] = secret
	}

	reloaded, err := b.m.repo.CreateGroup(ctx, group, members)
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	for _, member := range reloaded.Members {
		b.m.audit.write(ctx, AuditCreated, member.PublicId, map[string]string{
			"type":        member.Type,
			"environment": member.Environment,
			"group_id":    groupId,
		})
	}
	return reloaded, secrets, nil
}

// issueOne builds and persists a single token.
func (b IssuanceBuilder) issueOne(ctx context.Context, typeName, name, groupId string, opts options) (*AccessToken, string, error) {
	const op = "apitoken.(IssuanceBuilder).issueOne"
	if b.owner.IsZero() {
		return nil, "", errors.New(ctx, errors.MissingOwner, op, "missing owner")
	}
	t, secret, err := b.buildToken(ctx, typeName, name, groupId, opts)
	if err != nil {
		return nil, "", err
	}
	created, err := b.m.repo.CreateToken(ctx, t)
	if err != nil {
		return nil, "", err
	}
	return created, secret, nil
}

// buildToken assembles an unpersisted token from the builder's defaults and
// the call's options, generating and hashing its secret.
func (b IssuanceBuilder) buildToken(ctx context.Context, typeName, name, groupId string, opts options) (*AccessToken, string, error) {
	const op = "apitoken.(IssuanceBuilder).buildToken"
	if typeName == "" {
		return nil, "", errors.New(ctx, errors.InvalidParameter, op, "missing type name")
	}
	typ, err := b.m.types.Get(ctx, typeName)
	if err != nil {
		return nil, "", err
	}

	environment := b.resolveEnvironment(opts)
	abilities := b.abilities
	if opts.withAbilitiesSet {
		abilities = opts.withAbilities
	}
	allowedIps := b.allowedIps
	if opts.withAllowedIps != nil {
		allowedIps = opts.withAllowedIps
	}
	allowedDomains := b.allowedDomains
	if opts.withAllowedDomains != nil {
		allowedDomains = opts.withAllowedDomains
	}
	if len(allowedDomains) > 0 && !typ.AllowsDomainRestriction() {
		return nil, "", errors.New(ctx, errors.InvalidParameter, op,
			fmt.Sprintf("type %q does not allow domain restriction", typeName))
	}
	rateLimit := b.rateLimit
	if opts.withRateLimit != nil {
		rateLimit = *opts.withRateLimit
	}
	expiresAt := b.expiresAt
	if opts.withExpiration != nil {
		expiresAt = opts.withExpiration
	}
	metadata := b.resolveMetadata(opts)

	generatorName := b.generator
	if opts.withGenerator != "" {
		generatorName = opts.withGenerator
	}
	hasherName := b.hasher
	if opts.withHasher != "" {
		hasherName = opts.withHasher
	}
	secret, digest, err := b.m.mintSecret(ctx, typ.Prefix(), environment, generatorName, hasherName)
	if err != nil {
		return nil, "", err
	}
	id, err := newTokenId(ctx)
	if err != nil {
		return nil, "", err
	}

	t := &AccessToken{
		PublicId:           id,
		OwnerType:          b.owner.Type,
		OwnerId:            b.owner.Id,
		ContextType:        b.context.Type,
		ContextId:          b.context.Id,
		BoundaryType:       b.boundary.Type,
		BoundaryId:         b.boundary.Id,
		Type:               typeName,
		Prefix:             typ.Prefix(),
		Environment:        environment,
		Name:               name,
		HashedSecret:       digest,
		Abilities:          StringList(abilities).Clone(),
		AllowedIps:         StringList(allowedIps).Clone(),
		AllowedDomains:     StringList(allowedDomains).Clone(),
		RateLimitPerMinute: rateLimit,
		GroupId:            groupId,
		Metadata:           StringMap(metadata).Clone(),
	}
	if expiresAt != nil {
		at := *expiresAt
		t.ExpiresAt = &at
	}
	return t, secret, nil
}

func (b IssuanceBuilder) resolveEnvironment(opts options) string {
	switch {
	case opts.withEnvironment != "":
		return opts.withEnvironment
	case b.environment != "":
		return b.environment
	default:
		return b.m.conf.DefaultEnvironment
	}
}

func (b IssuanceBuilder) resolveMetadata(opts options) map[string]string {
	if opts.withMetadata != nil {
		return opts.withMetadata
	}
	return b.metadata
}
