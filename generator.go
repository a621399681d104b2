// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/hashicorp/go-uuid"
)

// defaultSecretLength is the length of the random portion of a generated
// secret.
const defaultSecretLength = 24

// A Generator produces opaque token secrets and best-effort parses them back
// into their components.
type Generator interface {
	// Generate produces a globally unique secret in the form
	// {prefix}_{environment}_{random}.
	Generate(ctx context.Context, prefix, environment string) (string, error)

	// Parse decomposes a secret produced by Generate. It's best-effort: the
	// second return is false when the secret doesn't match the expected
	// shape.
	Parse(secret string) (*SecretParts, bool)
}

// SecretParts are the components of a parsed secret.
type SecretParts struct {
	Prefix      string
	Environment string
	Random      string
}

// Base62Generator generates secrets whose random portion is base62 text,
// giving effectively unbounded collision resistance at the default length.
type Base62Generator struct {
	secretLength int
}

// NewBase62Generator creates a Base62Generator. Supports WithSecretLength to
// override the length of the random portion.
func NewBase62Generator(opt ...Option) *Base62Generator {
	opts := getOpts(opt...)
	length := defaultSecretLength
	if opts.withSecretLength > 0 {
		length = opts.withSecretLength
	}
	return &Base62Generator{secretLength: length}
}

// Generate produces a secret in the form {prefix}_{environment}_{random}.
// Neither prefix nor environment may contain the underscore separator.
func (g *Base62Generator) Generate(ctx context.Context, prefix, environment string) (string, error) {
	const op = "apitoken.(Base62Generator).Generate"
	switch {
	case prefix == "":
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing prefix")
	case environment == "":
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing environment")
	case strings.Contains(prefix, "_"):
		return "", errors.New(ctx, errors.InvalidParameter, op, "prefix contains the separator character")
	case strings.Contains(environment, "_"):
		return "", errors.New(ctx, errors.InvalidParameter, op, "environment contains the separator character")
	}
	random, err := base62.Random(g.secretLength)
	if err != nil {
		return "", errors.Wrap(ctx, err, op, errors.WithMsg("unable to generate random secret"), errors.WithCode(errors.Io))
	}
	return fmt.Sprintf("%s_%s_%s", prefix, environment, random), nil
}

// Parse decomposes a secret into prefix, environment, and random portions.
func (g *Base62Generator) Parse(secret string) (*SecretParts, bool) {
	return parseSecret(secret)
}

// UuidGenerator generates secrets whose random portion is a v4 UUID. The
// fixed shape is easier to pick out of logs than base62 text at the cost of
// a fixed 122 bits of entropy.
type UuidGenerator struct{}

// NewUuidGenerator creates a UuidGenerator.
func NewUuidGenerator() *UuidGenerator {
	return &UuidGenerator{}
}

// Generate produces a secret in the form {prefix}_{environment}_{uuid}.
// Neither prefix nor environment may contain the underscore separator.
func (g *UuidGenerator) Generate(ctx context.Context, prefix, environment string) (string, error) {
	const op = "apitoken.(UuidGenerator).Generate"
	switch {
	case prefix == "":
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing prefix")
	case environment == "":
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing environment")
	case strings.Contains(prefix, "_"):
		return "", errors.New(ctx, errors.InvalidParameter, op, "prefix contains the separator character")
	case strings.Contains(environment, "_"):
		return "", errors.New(ctx, errors.InvalidParameter, op, "environment contains the separator character")
	}
	random, err := uuid.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(ctx, err, op, errors.WithMsg("unable to generate random secret"), errors.WithCode(errors.Io))
	}
	return fmt.Sprintf("%s_%s_%s", prefix, environment, random), nil
}

// Parse decomposes a secret into prefix, environment, and random portions.
func (g *UuidGenerator) Parse(secret string) (*SecretParts, bool) {
	return parseSecret(secret)
}

func parseSecret(secret string) (*SecretParts, bool) {
	parts := strings.SplitN(secret, "_", 3)
	if len(parts) != 3 {
		return nil, false
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, false
	}
	return &SecretParts{
		Prefix:      parts[0],
		Environment: parts[1],
		Random:      parts[2],
	}, true
}
