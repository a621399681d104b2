// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-dbw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	wrapped := stderrors.New("wrapped error")
	tests := []struct {
		name    string
		code    Code
		op      Op
		msg     string
		opt     []Option
		want    error
		wantStr string
	}{
		{
			name:    "op-msg-code",
			code:    InvalidParameter,
			op:      "alice.Bob",
			msg:     "nil db reader",
			want:    &Err{Code: InvalidParameter, Op: "alice.Bob", Msg: "nil db reader"},
			wantStr: "alice.Bob: nil db reader: parameter violation: error #100",
		},
		{
			name:    "no-msg-uses-code-info",
			code:    RecordNotFound,
			op:      "alice.Bob",
			want:    &Err{Code: RecordNotFound, Op: "alice.Bob"},
			wantStr: "alice.Bob: record not found: search issue: error #1100",
		},
		{
			name:    "domain-code",
			code:    CannotDeriveToken,
			op:      "apitoken.(Manager).Derive",
			msg:     "parent is revoked",
			want:    &Err{Code: CannotDeriveToken, Op: "apitoken.(Manager).Derive", Msg: "parent is revoked"},
			wantStr: "apitoken.(Manager).Derive: parent is revoked: state violation: error #201",
		},
		{
			name:    "with-wrap",
			code:    Io,
			op:      "alice.Bob",
			msg:     "read failed",
			opt:     []Option{WithWrap(wrapped)},
			want:    &Err{Code: Io, Op: "alice.Bob", Msg: "read failed", Wrapped: wrapped},
			wantStr: "alice.Bob: read failed: integrity violation: error #105: wrapped error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			err := New(ctx, tt.code, tt.op, tt.msg, tt.opt...)
			require.Error(err)
			assert.Equal(tt.want, err)
			assert.Equal(tt.wantStr, err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t.Run("inherits-code-from-wrapped-err", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		inner := New(ctx, GroupRefreshFailure, "alice.Bob", "group vanished")
		err := Wrap(ctx, inner, "alice.Outer")
		var e *Err
		require.True(As(err, &e))
		assert.Equal(GroupRefreshFailure, e.Code)
		assert.True(Match(T(GroupRefreshFailure), err))
		assert.True(Is(err, inner))
	})
	t.Run("explicit-code-wins", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		inner := New(ctx, InvalidParameter, "alice.Bob", "bad")
		err := Wrap(ctx, inner, "alice.Outer", WithCode(Internal), WithMsg("unexpected"))
		var e *Err
		require.True(As(err, &e))
		assert.Equal(Internal, e.Code)
		assert.Equal("unexpected", e.Msg)
	})
	t.Run("converts-dbw-not-found", func(t *testing.T) {
		assert := assert.New(t)
		err := Wrap(ctx, fmt.Errorf("lookup: %w", dbw.ErrRecordNotFound), "alice.Lookup")
		assert.True(Match(T(RecordNotFound), err))
		assert.True(Is(err, dbw.ErrRecordNotFound))
	})
	t.Run("unrecognized-keeps-unknown-code", func(t *testing.T) {
		assert := assert.New(t)
		plain := stderrors.New("something else")
		err := Wrap(ctx, plain, "alice.Op")
		var e *Err
		assert.True(As(err, &e))
		assert.Equal(Unknown, e.Code)
		assert.Equal("alice.Op: something else", err.Error())
	})
}

func TestE(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert := assert.New(t)
	err := E(ctx, WithCode(NotRegistered), WithMsg(`"sha512" is not a registered hasher`))
	assert.Equal(`"sha512" is not a registered hasher: configuration issue: error #200`, err.Error())
	assert.True(Match(T(NotRegistered), err))
}

func TestConvert(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantNil  bool
	}{
		{
			name:     "dbw-record-not-found",
			err:      dbw.ErrRecordNotFound,
			wantCode: RecordNotFound,
		},
		{
			name:     "dbw-invalid-parameter",
			err:      fmt.Errorf("op: %w", dbw.ErrInvalidParameter),
			wantCode: InvalidParameter,
		},
		{
			name:     "dbw-max-retries",
			err:      dbw.ErrMaxRetries,
			wantCode: MaxRetries,
		},
		{
			name:     "sqlite-unique",
			err:      stderrors.New("UNIQUE constraint failed: api_token.public_id"),
			wantCode: NotUnique,
		},
		{
			name:     "postgres-unique",
			err:      stderrors.New(`duplicate key value violates unique constraint "api_token_pkey"`),
			wantCode: NotUnique,
		},
		{
			name:     "sqlite-not-null",
			err:      stderrors.New("NOT NULL constraint failed: api_token.owner_id"),
			wantCode: NotNull,
		},
		{
			name:    "unrecognized",
			err:     stderrors.New("no conversion"),
			wantNil: true,
		},
		{
			name:    "nil",
			err:     nil,
			wantNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			got := Convert(tt.err)
			if tt.wantNil {
				assert.Nil(got)
				return
			}
			assert.NotNil(got)
			assert.Equal(tt.wantCode, got.Code)
		})
	}
}
