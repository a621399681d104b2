// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// getOpts gets the defaults and applies the opt overrides passed in.
func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// Option is a function that takes in an options struct and sets values or
// overrides defaults.
type Option func(*options)

// options is the set of available options for the apitoken package.
type options struct {
	withLimit           int
	withReason          string
	withStrategy        string
	withDescendants     bool
	withAbilities       []string
	withAbilitiesSet    bool
	withExpiration      *time.Time
	withMetadata        map[string]string
	withDerivedMetadata map[string]string
	withAllowedIps      []string
	withAllowedDomains  []string
	withRateLimit       *uint32
	withEnvironment     string
	withName            string
	withGenerator       string
	withHasher          string
	withClientIp        string
	withOriginDomain    string
	withTimeNow         func() time.Time
	withLogger          hclog.Logger
	withDefaultName     string
	withSecretLength    int
	withBcryptCost      int
	withRetryCnt        uint
	withErrorsMatching  func(err error) bool
}

func getDefaultOptions() options {
	return options{
		withRetryCnt:       stdRetryCnt,
		withErrorsMatching: noOpErrorMatchingFn,
	}
}

// WithLimit provides an option to provide a limit. Intentionally allowing
// negative integers. If WithLimit < 0, then unlimited results are returned.
// If WithLimit == 0, then default limits are used for results.
func WithLimit(limit int) Option {
	return func(o *options) {
		o.withLimit = limit
	}
}

// WithReason provides an optional caller-supplied reason string recorded in
// the audit metadata of a revocation.
func WithReason(reason string) Option {
	return func(o *options) {
		o.withReason = reason
	}
}

// WithStrategy provides an optional strategy name, overriding the configured
// default for a single revocation or rotation call.
func WithStrategy(name string) Option {
	return func(o *options) {
		o.withStrategy = name
	}
}

// WithDescendants provides an option to revoke the token's entire derivation
// subtree instead of its group.
func WithDescendants() Option {
	return func(o *options) {
		o.withDescendants = true
	}
}

// WithAbilities provides an optional ability list, overriding the issuance
// builder's default abilities.
func WithAbilities(abilities ...string) Option {
	return func(o *options) {
		o.withAbilities = abilities
		o.withAbilitiesSet = true
	}
}

// WithExpiration provides an optional expiration time.
func WithExpiration(t time.Time) Option {
	return func(o *options) {
		o.withExpiration = &t
	}
}

// WithMetadata provides optional issuer metadata for a token.
func WithMetadata(md map[string]string) Option {
	return func(o *options) {
		o.withMetadata = md
	}
}

// WithDerivedMetadata provides optional metadata stored separately on a
// derived token, distinct from the metadata inherited from its parent.
func WithDerivedMetadata(md map[string]string) Option {
	return func(o *options) {
		o.withDerivedMetadata = md
	}
}

// WithAllowedIps provides an optional IP allowlist.
func WithAllowedIps(ips ...string) Option {
	return func(o *options) {
		o.withAllowedIps = ips
	}
}

// WithAllowedDomains provides an optional domain allowlist. Only token types
// that allow domain restriction accept one.
func WithAllowedDomains(domains ...string) Option {
	return func(o *options) {
		o.withAllowedDomains = domains
	}
}

// WithRateLimitPerMinute provides an optional per-minute rate limit enforced
// during authentication. Zero means no limit.
func WithRateLimitPerMinute(limit uint32) Option {
	return func(o *options) {
		o.withRateLimit = &limit
	}
}

// WithEnvironment provides an optional environment tag, overriding the
// issuance builder's default environment.
func WithEnvironment(env string) Option {
	return func(o *options) {
		o.withEnvironment = env
	}
}

// WithName provides an optional name for a token.
func WithName(name string) Option {
	return func(o *options) {
		o.withName = name
	}
}

// WithGenerator provides an optional generator name for a single call,
// overriding the builder and configured defaults.
func WithGenerator(name string) Option {
	return func(o *options) {
		o.withGenerator = name
	}
}

// WithHasher provides an optional hasher name for a single call, overriding
// the builder and configured defaults.
func WithHasher(name string) Option {
	return func(o *options) {
		o.withHasher = name
	}
}

// WithClientIp provides the presenting client's IP address for
// authentication checks.
func WithClientIp(ip string) Option {
	return func(o *options) {
		o.withClientIp = ip
	}
}

// WithOriginDomain provides the presenting client's origin domain for
// authentication checks.
func WithOriginDomain(domain string) Option {
	return func(o *options) {
		o.withOriginDomain = domain
	}
}

// WithTimeNow provides an option to substitute the time source, which is
// useful for testing lifecycle boundaries.
func WithTimeNow(now func() time.Time) Option {
	return func(o *options) {
		o.withTimeNow = now
	}
}

// WithLogger provides an option to specify an hclog logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		o.withLogger = l
	}
}

// WithDefaultName provides an option to set a registry's default component
// name explicitly, instead of relying on first-registered-wins.
func WithDefaultName(name string) Option {
	return func(o *options) {
		o.withDefaultName = name
	}
}

// WithSecretLength provides an option to set the length of the random
// portion of a generated secret.
func WithSecretLength(n int) Option {
	return func(o *options) {
		o.withSecretLength = n
	}
}

// WithBcryptCost provides an option to set the bcrypt cost parameter.
func WithBcryptCost(cost int) Option {
	return func(o *options) {
		o.withBcryptCost = cost
	}
}

// withRetryCount provides an optional specified retry count, otherwise the
// stdRetryCnt is used. You must specify withRetryErrorsMatching if you want
// any retries at all.
func withRetryCount(cnt uint) Option {
	return func(o *options) {
		o.withRetryCnt = cnt
	}
}

// withRetryErrorsMatching provides an optional function to match transaction
// errors that should be retried.
func withRetryErrorsMatching(matchingFn func(error) bool) Option {
	return func(o *options) {
		o.withErrorsMatching = matchingFn
	}
}

// noOpErrorMatchingFn is the default fn used to determine which errors
// should be retried in a db transaction; by default none are.
var noOpErrorMatchingFn = func(error) bool { return false }

// stdRetryCnt is the standard number of times a db transaction is retried.
const stdRetryCnt = 20
