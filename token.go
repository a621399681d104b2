// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
)

// tokenTableName is the table access tokens are stored in.
const tokenTableName = "api_token"

// AccessToken is an opaque bearer credential issued to a principal. Only the
// one-way digest of its secret is stored; the plaintext is observable once,
// at the call that created it.
type AccessToken struct {
	// PublicId is used to access the token via an API. It is generated with
	// the apit prefix and is immutable.
	PublicId string `json:"public_id,omitempty" gorm:"primary_key"`

	// OwnerType and OwnerId reference the principal holding the token,
	// resolved through a registered principal loader. Required.
	OwnerType string `json:"owner_type,omitempty" gorm:"default:null"`
	OwnerId   string `json:"owner_id,omitempty" gorm:"default:null"`

	// ContextType and ContextId optionally reference the entity the token
	// acts on behalf of.
	ContextType string `json:"context_type,omitempty" gorm:"default:null"`
	ContextId   string `json:"context_id,omitempty" gorm:"default:null"`

	// BoundaryType and BoundaryId optionally reference the tenant or
	// workspace the token is scoped to.
	BoundaryType string `json:"boundary_type,omitempty" gorm:"default:null"`
	BoundaryId   string `json:"boundary_id,omitempty" gorm:"default:null"`

	// Type is the token type key the token was issued under.
	Type string `json:"type,omitempty" gorm:"default:null"`

	// Prefix is denormalized from the token type at issuance.
	Prefix string `json:"prefix,omitempty" gorm:"default:null"`

	// Environment is the deployment scope tag embedded in the secret, e.g.
	// "production" or "test".
	Environment string `json:"environment,omitempty" gorm:"default:null"`

	// Name is an optional human readable label, shared by group members.
	Name string `json:"name,omitempty" gorm:"default:null"`

	// HashedSecret is the one-way digest of the secret. The plaintext is
	// never persisted.
	HashedSecret string `json:"-" gorm:"default:null"`

	// Abilities is the ordered list of capability strings the token grants.
	// The literal "*" grants all capabilities.
	Abilities StringList `json:"abilities,omitempty" gorm:"type:text;default:null"`

	// AllowedIps optionally restricts which client IPs may authenticate
	// with the token.
	AllowedIps StringList `json:"allowed_ips,omitempty" gorm:"type:text;default:null"`

	// AllowedDomains optionally restricts which origin domains may
	// authenticate with the token. Only token types that allow domain
	// restriction accept one.
	AllowedDomains StringList `json:"allowed_domains,omitempty" gorm:"type:text;default:null"`

	// RateLimitPerMinute optionally limits authentications per minute.
	// Zero means no limit.
	RateLimitPerMinute uint32 `json:"rate_limit_per_minute,omitempty" gorm:"default:null"`

	// ExpiresAt is the optional expiration.
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"default:null"`

	// RevokedAt is the revocation timestamp. It may be in the future (a
	// grace period); the token is invalid once the timestamp has passed.
	RevokedAt *time.Time `json:"revoked_at,omitempty" gorm:"default:null"`

	// LastUsedAt is when the token last authenticated. Reset on rotation.
	LastUsedAt *time.Time `json:"last_used_at,omitempty" gorm:"default:null"`

	// GroupId optionally links sibling tokens issued together.
	GroupId string `json:"group_id,omitempty" gorm:"default:null"`

	// ParentId optionally references the token this one was derived from.
	ParentId string `json:"parent_id,omitempty" gorm:"default:null"`

	// Depth is the derivation depth, zero for root tokens.
	Depth int `json:"depth,omitempty" gorm:"default:0"`

	// Metadata is the issuer's free-form key/value map. Derived tokens
	// inherit the parent's metadata here.
	Metadata StringMap `json:"metadata,omitempty" gorm:"type:text;default:null"`

	// DerivedMetadata is populated only during derivation and is kept
	// distinct from the inherited Metadata.
	DerivedMetadata StringMap `json:"derived_metadata,omitempty" gorm:"type:text;default:null"`

	// CreateTime is set by the db.
	CreateTime *time.Time `json:"create_time,omitempty" gorm:"default:current_timestamp"`

	// UpdateTime is set by the db.
	UpdateTime *time.Time `json:"update_time,omitempty" gorm:"default:current_timestamp"`
}

func allocAccessToken() *AccessToken {
	return &AccessToken{}
}

// Clone an AccessToken.
func (t *AccessToken) Clone() *AccessToken {
	cp := *t
	cp.Abilities = t.Abilities.Clone()
	cp.AllowedIps = t.AllowedIps.Clone()
	cp.AllowedDomains = t.AllowedDomains.Clone()
	cp.Metadata = t.Metadata.Clone()
	cp.DerivedMetadata = t.DerivedMetadata.Clone()
	if t.ExpiresAt != nil {
		at := *t.ExpiresAt
		cp.ExpiresAt = &at
	}
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		cp.RevokedAt = &at
	}
	if t.LastUsedAt != nil {
		at := *t.LastUsedAt
		cp.LastUsedAt = &at
	}
	if t.CreateTime != nil {
		at := *t.CreateTime
		cp.CreateTime = &at
	}
	if t.UpdateTime != nil {
		at := *t.UpdateTime
		cp.UpdateTime = &at
	}
	return &cp
}

// TableName returns the table name.
func (t *AccessToken) TableName() string {
	return tokenTableName
}

// GetPublicId returns the token's public id.
func (t *AccessToken) GetPublicId() string {
	return t.PublicId
}

// VetForWrite validates the token before it's written.
func (t *AccessToken) VetForWrite(ctx context.Context, r dbw.Reader, opType dbw.OpType, opt ...dbw.Option) error {
	const op = "apitoken.(AccessToken).VetForWrite"
	if opType != dbw.CreateOp {
		return nil
	}
	switch {
	case t.PublicId == "":
		return errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	case t.OwnerType == "" || t.OwnerId == "":
		return errors.New(ctx, errors.MissingOwner, op, "missing owner reference")
	case t.Type == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing type")
	case t.Prefix == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing prefix")
	case t.Environment == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing environment")
	case t.HashedSecret == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing hashed secret")
	case t.Depth < 0:
		return errors.New(ctx, errors.InvalidParameter, op, "negative depth")
	}
	return nil
}

// OwnerRef returns the owner's (type, id) pair.
func (t *AccessToken) OwnerRef() PrincipalRef {
	return PrincipalRef{Type: t.OwnerType, Id: t.OwnerId}
}

// ContextRef returns the context's (type, id) pair, which may be zero.
func (t *AccessToken) ContextRef() PrincipalRef {
	return PrincipalRef{Type: t.ContextType, Id: t.ContextId}
}

// BoundaryRef returns the boundary's (type, id) pair, which may be zero.
func (t *AccessToken) BoundaryRef() PrincipalRef {
	return PrincipalRef{Type: t.BoundaryType, Id: t.BoundaryId}
}

// IsRevoked reports whether the token's revocation timestamp has passed as
// of now. A future RevokedAt (a grace period) leaves the token valid until
// that instant.
func (t *AccessToken) IsRevoked(now time.Time) bool {
	return t.RevokedAt != nil && !t.RevokedAt.After(now)
}

// IsExpired reports whether the token has an expiration and it has passed
// as of now, regardless of revocation.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IsValid reports whether the token is neither revoked nor expired as of
// now.
func (t *AccessToken) IsValid(now time.Time) bool {
	return !t.IsRevoked(now) && !t.IsExpired(now)
}

// CanDerive reports whether child tokens may be derived from this token: it
// must be valid and below the maximum derivation depth.
func (t *AccessToken) CanDerive(now time.Time, maxDepth int) bool {
	return t.IsValid(now) && t.Depth < maxDepth
}

// HasAbility reports whether the token grants the ability, honoring the "*"
// wildcard.
func (t *AccessToken) HasAbility(ability string) bool {
	return t.Abilities.Contains("*") || t.Abilities.Contains(ability)
}

// abilitiesContain reports whether every requested ability is granted by
// parent abilities, where "*" in the parent satisfies any request.
func abilitiesContain(parent StringList, requested []string) bool {
	if parent.Contains("*") {
		return true
	}
	for _, a := range requested {
		if !parent.Contains(a) {
			return false
		}
	}
	return true
}
