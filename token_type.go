// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-apitoken/errors"
)

// TokenType describes a credential class: the prefix embedded in its
// secrets, whether its secrets may be exposed to client-side code, and
// whether tokens of this type accept a domain allowlist.
type TokenType interface {
	// Prefix is the short tag identifying the type, embedded in the
	// plaintext secret and stored denormalized on the token.
	Prefix() string

	// IsClientSide reports whether secrets of this type are intended to be
	// exposed to client-side code (for example a publishable key).
	IsClientSide() bool

	// AllowsDomainRestriction reports whether tokens of this type accept a
	// domain allowlist.
	AllowsDomainRestriction() bool
}

// TypeConfig declaratively describes a token type, for credential classes
// that don't require custom code. The zero value is not valid: a Prefix is
// required.
type TypeConfig struct {
	// Prefix is the secret prefix tag, e.g. "sk". Lowercase letters and
	// digits only.
	Prefix string

	// ClientSide marks secrets of this type as exposable to client-side
	// code.
	ClientSide bool

	// DomainRestriction allows tokens of this type to carry a domain
	// allowlist.
	DomainRestriction bool
}

// configuredType is a TokenType built from a TypeConfig.
type configuredType struct {
	prefix            string
	clientSide        bool
	domainRestriction bool
}

// NewTokenType creates a TokenType from a declarative TypeConfig.
func NewTokenType(ctx context.Context, c TypeConfig) (TokenType, error) {
	const op = "apitoken.NewTokenType"
	if c.Prefix == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing prefix")
	}
	for _, r := range c.Prefix {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return nil, errors.New(ctx, errors.InvalidParameter, op,
				fmt.Sprintf("prefix %q contains characters outside [a-z0-9]", c.Prefix))
		}
	}
	return &configuredType{
		prefix:            c.Prefix,
		clientSide:        c.ClientSide,
		domainRestriction: c.DomainRestriction,
	}, nil
}

func (t *configuredType) Prefix() string {
	return t.prefix
}

func (t *configuredType) IsClientSide() bool {
	return t.clientSide
}

func (t *configuredType) AllowsDomainRestriction() bool {
	return t.domainRestriction
}

// validTypeName reports whether name is usable as a token type registry key.
func validTypeName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\n")
}
