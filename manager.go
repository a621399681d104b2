// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-hclog"
)

// Registry names of the built-in components.
const (
	base62GeneratorName = "base62"
	uuidGeneratorName   = "uuid"
	sha256HasherName    = "sha256"
	bcryptHasherName    = "bcrypt"
)

// Manager is the engine's front door. It owns the pluggable component
// registries, the configured defaults, and the lifecycle operations built
// on them: issuance, authentication, revocation, rotation, and derivation.
// A Manager is safe for concurrent use.
type Manager struct {
	conf    *Config
	repo    *Repository
	logger  hclog.Logger
	timeNow func() time.Time

	types        *Registry[TokenType]
	generators   *Registry[Generator]
	hashers      *Registry[Hasher]
	auditDrivers *Registry[AuditSink]
	revocations  *Registry[RevocationStrategy]
	rotations    *Registry[RotationStrategy]
	loaders      *Registry[PrincipalLoaderFunc]

	audit    *auditWriter
	limiters *rateLimiterPool
}

// NewManager creates a Manager backed by the repository. A nil conf gets
// the stock defaults. The built-ins are registered up front: the base62
// and uuid generators, the sha256 and bcrypt hashers, the db audit driver, the
// single, cascade, partial, and timed revocation strategies, and the
// immediate, grace_period, and dual_valid rotation strategies. Component
// names from conf become registry defaults even when the component is
// registered later.
//
// Supports WithLogger and WithTimeNow.
func NewManager(ctx context.Context, conf *Config, repo *Repository, opt ...Option) (*Manager, error) {
	const op = "apitoken.NewManager"
	if repo == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing repository")
	}
	if conf == nil {
		conf = DefaultConfig()
	}
	conf = conf.clone()
	if err := conf.validate(ctx); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	opts := getOpts(opt...)
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	timeNow := opts.withTimeNow
	if timeNow == nil {
		timeNow = time.Now
	}
	m := &Manager{
		conf:         conf,
		repo:         repo,
		logger:       logger,
		timeNow:      timeNow,
		types:        NewRegistry[TokenType](),
		generators:   NewRegistry[Generator](WithDefaultName(conf.DefaultGenerator)),
		hashers:      NewRegistry[Hasher](WithDefaultName(conf.DefaultHasher)),
		auditDrivers: NewRegistry[AuditSink](WithDefaultName(conf.DefaultAuditDriver)),
		revocations:  NewRegistry[RevocationStrategy](WithDefaultName(conf.DefaultRevocationStrategy)),
		rotations:    NewRegistry[RotationStrategy](WithDefaultName(conf.DefaultRotationStrategy)),
		loaders:      NewRegistry[PrincipalLoaderFunc](),
	}
	m.audit = &auditWriter{
		drivers: m.auditDrivers,
		logger:  logger,
		timeNow: timeNow,
	}
	m.limiters = newRateLimiterPool(timeNow)
	if err := m.registerBuiltins(ctx); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return m, nil
}

func (m *Manager) registerBuiltins(ctx context.Context) error {
	const op = "apitoken.(Manager).registerBuiltins"
	if err := m.generators.Register(ctx, base62GeneratorName, NewBase62Generator()); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := m.generators.Register(ctx, uuidGeneratorName, NewUuidGenerator()); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := m.hashers.Register(ctx, sha256HasherName, NewSha256Hasher()); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := m.hashers.Register(ctx, bcryptHasherName, NewBcryptHasher()); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	dbSink, err := NewDbSink(ctx, m.repo)
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := m.auditDrivers.Register(ctx, auditDbDriverName, dbSink); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	for _, s := range []RevocationStrategy{
		&singleRevocation{m: m},
		&cascadeRevocation{m: m},
		&partialRevocation{m: m},
		&timedRevocation{m: m},
	} {
		if err := m.revocations.Register(ctx, s.Name(), s); err != nil {
			return errors.Wrap(ctx, err, op)
		}
	}
	for _, s := range []RotationStrategy{
		&immediateRotation{m: m},
		&gracePeriodRotation{m: m},
		&dualValidRotation{m: m},
	} {
		if err := m.rotations.Register(ctx, s.Name(), s); err != nil {
			return errors.Wrap(ctx, err, op)
		}
	}
	return nil
}

// RegisterType registers a token type under name. Registering an existing
// name replaces it.
func (m *Manager) RegisterType(ctx context.Context, name string, typ TokenType) error {
	const op = "apitoken.(Manager).RegisterType"
	switch {
	case !validTypeName(name):
		return errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("invalid type name %q", name))
	case isNil(typ):
		return errors.New(ctx, errors.InvalidParameter, op, "missing token type")
	}
	if err := m.types.Register(ctx, name, typ); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterTypeConfig builds a TokenType from the declarative config and
// registers it under name.
func (m *Manager) RegisterTypeConfig(ctx context.Context, name string, c TypeConfig) error {
	const op = "apitoken.(Manager).RegisterTypeConfig"
	typ, err := NewTokenType(ctx, c)
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := m.RegisterType(ctx, name, typ); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterGenerator registers a secret generator under name.
func (m *Manager) RegisterGenerator(ctx context.Context, name string, g Generator) error {
	const op = "apitoken.(Manager).RegisterGenerator"
	if isNil(g) {
		return errors.New(ctx, errors.InvalidParameter, op, "missing generator")
	}
	if err := m.generators.Register(ctx, name, g); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterHasher registers a secret hasher under name.
func (m *Manager) RegisterHasher(ctx context.Context, name string, h Hasher) error {
	const op = "apitoken.(Manager).RegisterHasher"
	if isNil(h) {
		return errors.New(ctx, errors.InvalidParameter, op, "missing hasher")
	}
	if err := m.hashers.Register(ctx, name, h); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterAuditDriver registers an audit sink under name. The sink named by
// the configuration's DefaultAuditDriver receives all lifecycle events;
// with no configured name the first registered driver does, which is the
// built-in db driver.
func (m *Manager) RegisterAuditDriver(ctx context.Context, name string, sink AuditSink) error {
	const op = "apitoken.(Manager).RegisterAuditDriver"
	if isNil(sink) {
		return errors.New(ctx, errors.InvalidParameter, op, "missing audit sink")
	}
	if err := m.auditDrivers.Register(ctx, name, sink); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterRevocationStrategy registers the strategy under its own name.
func (m *Manager) RegisterRevocationStrategy(ctx context.Context, s RevocationStrategy) error {
	const op = "apitoken.(Manager).RegisterRevocationStrategy"
	if isNil(s) {
		return errors.New(ctx, errors.InvalidParameter, op, "missing revocation strategy")
	}
	if err := m.revocations.Register(ctx, s.Name(), s); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterRotationStrategy registers the strategy under its own name.
func (m *Manager) RegisterRotationStrategy(ctx context.Context, s RotationStrategy) error {
	const op = "apitoken.(Manager).RegisterRotationStrategy"
	if isNil(s) {
		return errors.New(ctx, errors.InvalidParameter, op, "missing rotation strategy")
	}
	if err := m.rotations.Register(ctx, s.Name(), s); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// RegisterPrincipalLoader registers the loader that resolves principal ids
// of the given type tag. Rotation and derivation refuse to run against
// tokens whose owner type has no loader.
func (m *Manager) RegisterPrincipalLoader(ctx context.Context, typeTag string, loader PrincipalLoaderFunc) error {
	const op = "apitoken.(Manager).RegisterPrincipalLoader"
	switch {
	case typeTag == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing type tag")
	case loader == nil:
		return errors.New(ctx, errors.InvalidParameter, op, "missing loader")
	}
	if err := m.loaders.Register(ctx, typeTag, loader); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// Issuance starts an issuance builder for tokens owned by owner.
func (m *Manager) Issuance(owner TokenHolder) IssuanceBuilder {
	b := IssuanceBuilder{m: m}
	if !isNil(owner) {
		b.owner = owner.PrincipalRef()
	}
	return b
}

// Config returns a copy of the manager's effective configuration.
func (m *Manager) Config() *Config {
	return m.conf.clone()
}

// mintSecret generates a plaintext secret for the prefix and environment
// and hashes it, using the named generator and hasher or the defaults when
// the names are empty. Returns the plaintext and the digest.
func (m *Manager) mintSecret(ctx context.Context, prefix, environment, generatorName, hasherName string) (string, string, error) {
	const op = "apitoken.(Manager).mintSecret"
	g, err := m.resolveGenerator(ctx, generatorName)
	if err != nil {
		return "", "", errors.Wrap(ctx, err, op)
	}
	h, err := m.resolveHasher(ctx, hasherName)
	if err != nil {
		return "", "", errors.Wrap(ctx, err, op)
	}
	secret, err := g.Generate(ctx, prefix, environment)
	if err != nil {
		return "", "", errors.Wrap(ctx, err, op)
	}
	digest, err := h.Hash(ctx, secret)
	if err != nil {
		return "", "", errors.Wrap(ctx, err, op)
	}
	return secret, digest, nil
}

// checkOwnerLink verifies the token's owner reference resolves to a live
// principal through the registered loaders.
func (m *Manager) checkOwnerLink(ctx context.Context, t *AccessToken) error {
	const op = "apitoken.(Manager).checkOwnerLink"
	if t.OwnerType == "" || t.OwnerId == "" {
		return errors.New(ctx, errors.MissingOwner, op, "the token has no owner reference")
	}
	loader, err := m.loaders.Get(ctx, t.OwnerType)
	if err != nil {
		return errors.New(ctx, errors.MissingOwner, op,
			fmt.Sprintf("no principal loader is registered for owner type %q", t.OwnerType), errors.WithWrap(err))
	}
	holder, err := loader(ctx, t.OwnerId)
	if err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(errors.MissingOwner),
			errors.WithMsg(fmt.Sprintf("unable to load owner %s %q", t.OwnerType, t.OwnerId)))
	}
	if isNil(holder) {
		return errors.New(ctx, errors.MissingOwner, op,
			fmt.Sprintf("owner %s %q does not exist", t.OwnerType, t.OwnerId))
	}
	if holder.PrincipalRef().IsZero() {
		return errors.New(ctx, errors.MissingOwner, op,
			fmt.Sprintf("owner %s %q has an empty principal reference", t.OwnerType, t.OwnerId))
	}
	return nil
}

func (m *Manager) resolveGenerator(ctx context.Context, name string) (Generator, error) {
	if name != "" {
		return m.generators.Get(ctx, name)
	}
	return m.generators.Default(ctx)
}

func (m *Manager) resolveHasher(ctx context.Context, name string) (Hasher, error) {
	if name != "" {
		return m.hashers.Get(ctx, name)
	}
	return m.hashers.Default(ctx)
}

func (m *Manager) resolveRevocation(ctx context.Context, name string) (RevocationStrategy, error) {
	if name != "" {
		return m.revocations.Get(ctx, name)
	}
	return m.revocations.Default(ctx)
}

func (m *Manager) resolveRotation(ctx context.Context, name string) (RotationStrategy, error) {
	if name != "" {
		return m.rotations.Get(ctx, name)
	}
	return m.rotations.Default(ctx)
}
