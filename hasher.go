// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/hashicorp/go-apitoken/errors"
	"golang.org/x/crypto/bcrypt"
)

// A Hasher produces one-way digests of token secrets. Verify(s, Hash(s)) is
// always true and there is no decode path.
type Hasher interface {
	// Hash returns a one-way digest of secret.
	Hash(ctx context.Context, secret string) (string, error)

	// Verify reports whether secret matches digest.
	Verify(ctx context.Context, secret, digest string) bool
}

// Sha256Hasher hashes secrets with SHA-256 and hex-encodes the digest.
// Digests are deterministic, so stored digests can be matched with an
// indexed equality lookup. Appropriate for high-entropy generated secrets.
type Sha256Hasher struct{}

// NewSha256Hasher creates a Sha256Hasher.
func NewSha256Hasher() *Sha256Hasher {
	return &Sha256Hasher{}
}

// Hash returns the hex encoded SHA-256 digest of secret.
func (h *Sha256Hasher) Hash(ctx context.Context, secret string) (string, error) {
	const op = "apitoken.(Sha256Hasher).Hash"
	if secret == "" {
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing secret")
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

// Verify compares in constant time.
func (h *Sha256Hasher) Verify(ctx context.Context, secret, digest string) bool {
	if secret == "" || digest == "" {
		return false
	}
	sum := sha256.Sum256([]byte(secret))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// BcryptHasher hashes secrets with bcrypt. Digests are salted and
// non-deterministic, so credential lookup falls back to scanning candidate
// tokens and verifying each digest.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. Supports WithBcryptCost; the
// default is bcrypt.DefaultCost.
func NewBcryptHasher(opt ...Option) *BcryptHasher {
	opts := getOpts(opt...)
	cost := bcrypt.DefaultCost
	if opts.withBcryptCost > 0 {
		cost = opts.withBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt digest of secret.
func (h *BcryptHasher) Hash(ctx context.Context, secret string) (string, error) {
	const op = "apitoken.(BcryptHasher).Hash"
	if secret == "" {
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing secret")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", errors.Wrap(ctx, err, op, errors.WithMsg("unable to hash secret"), errors.WithCode(errors.Io))
	}
	return string(digest), nil
}

// Verify reports whether secret matches the bcrypt digest.
func (h *BcryptHasher) Verify(ctx context.Context, secret, digest string) bool {
	if secret == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
