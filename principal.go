// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
)

// PrincipalRef identifies an owner, context, or boundary entity as a
// (type tag, id) pair. The engine never assumes the pair resolves into one
// fixed table; resolution goes through a loader registered for the type tag.
type PrincipalRef struct {
	// Type is the principal's type tag, e.g. "user" or "service_account".
	Type string

	// Id is the principal's id within its type.
	Id string
}

// IsZero reports whether the ref is unset.
func (r PrincipalRef) IsZero() bool {
	return r.Type == "" && r.Id == ""
}

// TokenHolder is the capability a principal entity implements to hold
// tokens. Any entity type can hold tokens by implementing it; the engine
// depends only on this interface.
type TokenHolder interface {
	// PrincipalRef returns the entity's (type tag, id) pair.
	PrincipalRef() PrincipalRef
}

// PrincipalLoaderFunc loads the principal entity with the given id.
// Returning a nil TokenHolder without an error means the entity does not
// exist.
type PrincipalLoaderFunc func(ctx context.Context, id string) (TokenHolder, error)
