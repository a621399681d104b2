// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-apitoken/errors"
)

const (
	// DefaultEnvironment is the environment tag used when the configuration
	// doesn't name one.
	DefaultEnvironment = "live"

	// DefaultMaxDerivationDepth bounds how deep a derivation chain may grow
	// unless the configuration overrides it.
	DefaultMaxDerivationDepth = 3

	// DefaultGracePeriodMinutes is the rotation grace window used when the
	// configuration doesn't set one.
	DefaultGracePeriodMinutes = 30

	// DefaultTimedRevocationDelayMinutes is the deferred-revocation delay
	// recorded when the configuration doesn't set one.
	DefaultTimedRevocationDelayMinutes = 60
)

// Config carries the engine-wide defaults and strategy parameters. There is
// no package-level state: a Config is constructed once and handed to
// NewManager. The zero value is usable; DefaultConfig fills in the stock
// defaults explicitly.
type Config struct {
	// DefaultEnvironment is the environment tag embedded in secrets when
	// neither the issuance builder nor the call names one.
	DefaultEnvironment string

	// DefaultGenerator optionally names the generator used when no explicit
	// name is given. Empty falls through to the registry's own default.
	DefaultGenerator string

	// DefaultHasher optionally names the hasher used when no explicit name
	// is given. Empty falls through to the registry's own default.
	DefaultHasher string

	// DefaultAuditDriver optionally names the audit driver lifecycle events
	// are written through. Empty falls through to the registry's own
	// default.
	DefaultAuditDriver string

	// DefaultRevocationStrategy optionally names the strategy Revoke uses
	// when the call doesn't pick one. Empty falls through to the registry's
	// own default.
	DefaultRevocationStrategy string

	// DefaultRotationStrategy optionally names the strategy Rotate uses
	// when the call doesn't pick one. Empty falls through to the registry's
	// own default.
	DefaultRotationStrategy string

	// MaxDerivationDepth bounds derivation chains. A parent at
	// MaxDerivationDepth cannot derive children.
	MaxDerivationDepth int

	// GracePeriodMinutes is how long a rotated-out token stays valid under
	// the grace_period rotation strategy.
	GracePeriodMinutes int

	// TimedRevocationDelayMinutes is the delay the timed revocation
	// strategy records. Execution of the deferred revocation belongs to an
	// external scheduler; the strategy itself revokes immediately.
	TimedRevocationDelayMinutes int

	// PartialRevocationTypes is the fixed type set the partial revocation
	// strategy limits itself to. It is independent of the triggering
	// token's own type.
	PartialRevocationTypes []string
}

// DefaultConfig returns a Config populated with the stock defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment:          DefaultEnvironment,
		MaxDerivationDepth:          DefaultMaxDerivationDepth,
		GracePeriodMinutes:          DefaultGracePeriodMinutes,
		TimedRevocationDelayMinutes: DefaultTimedRevocationDelayMinutes,
	}
}

// clone returns a copy of the config so a caller mutating theirs after
// NewManager can't change the engine's behavior.
func (c *Config) clone() *Config {
	cp := *c
	if c.PartialRevocationTypes != nil {
		cp.PartialRevocationTypes = make([]string, len(c.PartialRevocationTypes))
		copy(cp.PartialRevocationTypes, c.PartialRevocationTypes)
	}
	return &cp
}

// validate normalizes the zero value into the stock defaults and rejects
// nonsensical settings.
func (c *Config) validate(ctx context.Context) error {
	const op = "apitoken.(Config).validate"
	if c.DefaultEnvironment == "" {
		c.DefaultEnvironment = DefaultEnvironment
	}
	if c.MaxDerivationDepth == 0 {
		c.MaxDerivationDepth = DefaultMaxDerivationDepth
	}
	if c.GracePeriodMinutes == 0 {
		c.GracePeriodMinutes = DefaultGracePeriodMinutes
	}
	if c.TimedRevocationDelayMinutes == 0 {
		c.TimedRevocationDelayMinutes = DefaultTimedRevocationDelayMinutes
	}
	switch {
	case c.MaxDerivationDepth < 0:
		return errors.New(ctx, errors.InvalidConfiguration, op,
			fmt.Sprintf("max derivation depth %d is negative", c.MaxDerivationDepth))
	case c.GracePeriodMinutes < 0:
		return errors.New(ctx, errors.InvalidConfiguration, op,
			fmt.Sprintf("grace period of %d minutes is negative", c.GracePeriodMinutes))
	case c.TimedRevocationDelayMinutes < 0:
		return errors.New(ctx, errors.InvalidConfiguration, op,
			fmt.Sprintf("timed revocation delay of %d minutes is negative", c.TimedRevocationDelayMinutes))
	}
	for _, t := range c.PartialRevocationTypes {
		if !validTypeName(t) {
			return errors.New(ctx, errors.InvalidConfiguration, op,
				fmt.Sprintf("partial revocation type %q is not a valid type name", t))
		}
	}
	return nil
}
