// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"reflect"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
)

// defaultSearchLimit caps search results when the caller doesn't override
// the limit.
const defaultSearchLimit = 10000

// noRowsAffected is returned with errors from operations that report a row
// count.
const noRowsAffected = 0

// Repository is the storage adapter for tokens, groups, and audit entries.
// The connection is injected; the repository owns only the table shapes and
// the queries over them.
type Repository struct {
	reader dbw.Reader
	writer dbw.Writer

	logger  hclog.Logger
	timeNow func() time.Time

	// defaultLimit is the max number of results to return when no limit
	// option is provided.
	defaultLimit int
}

// NewRepository creates a new Repository.
//
// Supported options: WithLimit to change the default search limit, WithLogger,
// and WithTimeNow to substitute the clock.
func NewRepository(ctx context.Context, r dbw.Reader, w dbw.Writer, opt ...Option) (*Repository, error) {
	const op = "apitoken.NewRepository"
	switch {
	case isNil(r):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing reader")
	case isNil(w):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing writer")
	}
	opts := getOpts(opt...)
	limit := defaultSearchLimit
	if opts.withLimit != 0 {
		limit = opts.withLimit
	}
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	timeNow := opts.withTimeNow
	if timeNow == nil {
		timeNow = time.Now
	}
	return &Repository{
		reader:       r,
		writer:       w,
		logger:       logger,
		timeNow:      timeNow,
		defaultLimit: limit,
	}, nil
}

// limitFor resolves the effective limit for a search: an explicit option
// wins, zero means the repository default, negative means unlimited.
func (r *Repository) limitFor(opts options) int {
	if opts.withLimit != 0 {
		return opts.withLimit
	}
	return r.defaultLimit
}

func isNil(i any) bool {
	if i == nil {
		return true
	}
	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Array, reflect.Chan, reflect.Slice, reflect.Func:
		return reflect.ValueOf(i).IsNil()
	}
	return false
}
