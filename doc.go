// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package apitoken is an embeddable engine for the lifecycle of API bearer
// tokens: issuance, authentication, revocation, rotation, ability-scoped
// derivation, grouping, auditing, and pruning.
//
// The engine owns no tables beyond its own three (tokens, groups, audit
// entries) and holds no global state. Storage is injected as a go-dbw
// reader/writer pair wrapped in a Repository; principals (owners, contexts,
// boundaries) are opaque (type, id) pairs resolved through registered
// loaders, so any entity in the embedding application can hold tokens by
// implementing TokenHolder.
//
// Every pluggable concern is a named registry on the Manager: token types,
// secret generators, secret hashers, audit drivers, revocation strategies,
// and rotation strategies. Built-ins cover the common cases and the
// Config's default names select among them.
//
// Plaintext secrets have the form {prefix}_{environment}_{random} and are
// observable exactly once, at issuance, rotation, or derivation. Only
// digests are stored.
//
// The engine is synchronous and takes no row locks beyond what single
// statements provide. Two concurrent rotations of the same token can both
// succeed, each minting its own replacement; callers who care must
// serialize externally. Timed revocation and pruning record intent but rely
// on an external scheduler to run PruneTokens and PruneAuditEntries.
package apitoken
