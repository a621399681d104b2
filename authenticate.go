// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/hashicorp/go-apitoken/errors"
)

// FindByCredential resolves a presented credential to its token without
// performing any authentication checks. The credential is either a raw
// secret or an "{id}|{secret}" composite split on the first pipe only; extra
// pipes stay in the secret portion and fail verification. Returns nil, nil
// when nothing matches, whether the id is unknown or the secret is wrong.
// The returned token's secret digest is cleared.
func (m *Manager) FindByCredential(ctx context.Context, presented string) (*AccessToken, error) {
	const op = "apitoken.(Manager).FindByCredential"
	t, err := m.findByCredential(ctx, presented)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	if t == nil {
		return nil, nil
	}
	t.HashedSecret = ""
	return t, nil
}

// findByCredential is FindByCredential without clearing the digest.
func (m *Manager) findByCredential(ctx context.Context, presented string) (*AccessToken, error) {
	const op = "apitoken.(Manager).findByCredential"
	if presented == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing credential")
	}
	if strings.Contains(presented, "|") {
		parts := strings.SplitN(presented, "|", 2)
		t, err := m.repo.lookupToken(ctx, parts[0])
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		if t == nil {
			return nil, nil
		}
		if !m.verifySecret(ctx, parts[1], t.HashedSecret) {
			return nil, nil
		}
		return t, nil
	}

	// Deterministic hashers make the digest itself an index key.
	for _, name := range m.hashers.Names() {
		h, err := m.hashers.Get(ctx, name)
		if err != nil {
			continue
		}
		digest, err := h.Hash(ctx, presented)
		if err != nil {
			continue
		}
		t, err := m.repo.lookupTokenByHashedSecret(ctx, digest)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		if t != nil {
			return t, nil
		}
	}

	// Salted digests can't be looked up directly; narrow by the secret's
	// prefix and environment and verify each candidate.
	for _, name := range m.generators.Names() {
		g, err := m.generators.Get(ctx, name)
		if err != nil {
			continue
		}
		parts, ok := g.Parse(presented)
		if !ok {
			continue
		}
		candidates, err := m.repo.searchTokens(ctx, "prefix = ? and environment = ?",
			[]any{parts.Prefix, parts.Environment}, "create_time asc")
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		for _, candidate := range candidates {
			if m.verifySecret(ctx, presented, candidate.HashedSecret) {
				return candidate, nil
			}
		}
	}
	return nil, nil
}

// verifySecret tries every registered hasher against the digest.
func (m *Manager) verifySecret(ctx context.Context, secret, digest string) bool {
	for _, name := range m.hashers.Names() {
		h, err := m.hashers.Get(ctx, name)
		if err != nil {
			continue
		}
		if h.Verify(ctx, secret, digest) {
			return true
		}
	}
	return false
}

// Authenticate resolves a presented credential and enforces the token's
// contract: expiration, revocation, the IP allowlist against WithClientIp,
// the domain allowlist against WithOriginDomain for domain-restrictable
// client-side types, and the per-minute rate limit. Checks run in that
// order and the first failure wins. Success touches last_used_at. Every
// outcome is audited; all failures return an Unauthenticated error.
func (m *Manager) Authenticate(ctx context.Context, presented string, opt ...Option) (*AccessToken, error) {
	const op = "apitoken.(Manager).Authenticate"
	t, err := m.findByCredential(ctx, presented)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	if t == nil {
		m.audit.write(ctx, AuditFailed, "", map[string]string{"reason": "unknown_credential"})
		return nil, errors.New(ctx, errors.Unauthenticated, op, "unknown credential")
	}
	opts := getOpts(opt...)
	now := m.timeNow()

	if t.IsExpired(now) {
		m.audit.write(ctx, AuditExpired, t.PublicId, nil)
		return nil, errors.New(ctx, errors.Unauthenticated, op, fmt.Sprintf("token %q is expired", t.PublicId))
	}
	if t.IsRevoked(now) {
		m.audit.write(ctx, AuditFailed, t.PublicId, map[string]string{"reason": "revoked"})
		return nil, errors.New(ctx, errors.Unauthenticated, op, fmt.Sprintf("token %q is revoked", t.PublicId))
	}
	if len(t.AllowedIps) > 0 {
		if !ipAllowed(t.AllowedIps, opts.withClientIp) {
			m.audit.write(ctx, AuditIpBlocked, t.PublicId, map[string]string{"client_ip": opts.withClientIp})
			return nil, errors.New(ctx, errors.Unauthenticated, op, fmt.Sprintf("client ip %q is not allowed", opts.withClientIp))
		}
	}
	if len(t.AllowedDomains) > 0 && m.domainRestricted(ctx, t.Type) {
		if !domainAllowed(t.AllowedDomains, opts.withOriginDomain) {
			m.audit.write(ctx, AuditDomainBlocked, t.PublicId, map[string]string{"origin_domain": opts.withOriginDomain})
			return nil, errors.New(ctx, errors.Unauthenticated, op, fmt.Sprintf("origin domain %q is not allowed", opts.withOriginDomain))
		}
	}
	if t.RateLimitPerMinute > 0 {
		if !m.limiters.allow(t.PublicId, t.RateLimitPerMinute) {
			m.audit.write(ctx, AuditRateLimited, t.PublicId, map[string]string{"limit_per_minute": fmt.Sprintf("%d", t.RateLimitPerMinute)})
			return nil, errors.New(ctx, errors.Unauthenticated, op, fmt.Sprintf("token %q exceeded its rate limit", t.PublicId))
		}
	}

	if _, err := m.repo.TouchLastUsed(ctx, t.PublicId, now); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to record the authentication time"))
	}
	m.audit.write(ctx, AuditAuthenticated, t.PublicId, nil)
	t.LastUsedAt = &now
	t.HashedSecret = ""
	return t, nil
}

// domainRestricted reports whether the named type enforces its domain
// allowlist. A type that is no longer registered keeps enforcing: the
// allowlist could only have been set when the type allowed it.
func (m *Manager) domainRestricted(ctx context.Context, typeName string) bool {
	typ, err := m.types.Get(ctx, typeName)
	if err != nil {
		return true
	}
	return typ.IsClientSide() && typ.AllowsDomainRestriction()
}

// ipAllowed reports whether clientIp matches the allowlist, where entries
// are exact addresses or CIDR blocks.
func ipAllowed(allowed StringList, clientIp string) bool {
	if clientIp == "" {
		return false
	}
	addr, addrErr := netip.ParseAddr(clientIp)
	for _, entry := range allowed {
		if entry == clientIp {
			return true
		}
		if strings.Contains(entry, "/") && addrErr == nil {
			if prefix, err := netip.ParsePrefix(entry); err == nil && prefix.Contains(addr) {
				return true
			}
		}
	}
	return false
}

// domainAllowed reports whether origin matches the allowlist, where entries
// are exact domains or "*.example.com" wildcards covering one or more
// subdomain levels.
func domainAllowed(allowed StringList, origin string) bool {
	if origin == "" {
		return false
	}
	for _, entry := range allowed {
		if strings.EqualFold(entry, origin) {
			return true
		}
		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			if strings.HasSuffix(strings.ToLower(origin), "."+strings.ToLower(suffix)) {
				return true
			}
		}
	}
	return false
}
