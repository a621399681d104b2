// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-apitoken/errors"
)

// Registry is a thread-safe name to implementation lookup used for every
// pluggable component family in the package: token types, generators,
// hashers, audit drivers, revocation strategies, and rotation strategies.
//
// The default selection rule is explicit: a default name supplied with
// WithDefaultName at construction wins; otherwise the first registered
// component becomes the default, and SetDefault can change it later.
type Registry[T any] struct {
	mu          sync.RWMutex
	components  map[string]T
	defaultName string
}

// NewRegistry creates a new Registry. Supports WithDefaultName to pin the
// default component name up front; the name doesn't have to be registered
// yet, but Default will fail until it is.
func NewRegistry[T any](opt ...Option) *Registry[T] {
	opts := getOpts(opt...)
	return &Registry[T]{
		components:  make(map[string]T),
		defaultName: opts.withDefaultName,
	}
}

// Register stores the implementation under name. Registering an existing
// name replaces the previous implementation. The first registered name
// becomes the default unless a default was already established.
func (r *Registry[T]) Register(ctx context.Context, name string, c T) error {
	const op = "apitoken.(Registry).Register"
	if name == "" {
		return errors.New(ctx, errors.InvalidParameter, op, "missing name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = c
	if r.defaultName == "" {
		r.defaultName = name
	}
	return nil
}

// Get returns the implementation registered under name.
func (r *Registry[T]) Get(ctx context.Context, name string) (T, error) {
	const op = "apitoken.(Registry).Get"
	var zero T
	if name == "" {
		return zero, errors.New(ctx, errors.InvalidParameter, op, "missing name")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	if !ok {
		return zero, errors.New(ctx, errors.NotRegistered, op, fmt.Sprintf("%q is not registered", name))
	}
	return c, nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Default returns the default implementation.
func (r *Registry[T]) Default(ctx context.Context) (T, error) {
	const op = "apitoken.(Registry).Default"
	var zero T
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return zero, errors.New(ctx, errors.NotRegistered, op, "no default is registered")
	}
	c, ok := r.components[r.defaultName]
	if !ok {
		return zero, errors.New(ctx, errors.NotRegistered, op, fmt.Sprintf("default %q is not registered", r.defaultName))
	}
	return c, nil
}

// DefaultName returns the current default name, which may be empty.
func (r *Registry[T]) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// SetDefault makes name the default implementation.
func (r *Registry[T]) SetDefault(ctx context.Context, name string) error {
	const op = "apitoken.(Registry).SetDefault"
	if name == "" {
		return errors.New(ctx, errors.InvalidParameter, op, "missing name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; !ok {
		return errors.New(ctx, errors.NotRegistered, op, fmt.Sprintf("%q is not registered", name))
	}
	r.defaultName = name
	return nil
}

// Names returns the sorted registered names.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
