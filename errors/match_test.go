// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	t.Parallel()
	stdErr := stderrors.New("test error")
	tests := []struct {
		name string
		args []any
		want *Template
	}{
		{
			name: "all fields",
			args: []any{
				"test error msg",
				Op("alice.Bob"),
				InvalidDerivedAbilities,
				stdErr,
				Integrity,
			},
			want: &Template{
				Err: Err{
					Code:    InvalidDerivedAbilities,
					Msg:     "test error msg",
					Op:      "alice.Bob",
					Wrapped: stdErr,
				},
				Kind: Integrity,
			},
		},
		{
			name: "Kind only",
			args: []any{Parameter},
			want: &Template{Kind: Parameter},
		},
		{
			name: "ignores unknown types",
			args: []any{32},
			want: &Template{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			got := T(tt.args...)
			assert.Equal(tt.want, got)
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deriveErr := New(ctx, CannotDeriveToken, "apitoken.(Manager).Derive", "parent is expired")
	wrappedDerive := Wrap(ctx, deriveErr, "apitoken.(Manager).Rotate")
	tests := []struct {
		name     string
		template *Template
		err      error
		want     bool
	}{
		{
			name:     "code match",
			template: T(CannotDeriveToken),
			err:      deriveErr,
			want:     true,
		},
		{
			name:     "code match through wrap",
			template: T(CannotDeriveToken),
			err:      wrappedDerive,
			want:     true,
		},
		{
			name:     "code mismatch",
			template: T(InvalidDerivedExpiration),
			err:      deriveErr,
			want:     false,
		},
		{
			name:     "kind match",
			template: T(State),
			err:      deriveErr,
			want:     true,
		},
		{
			name:     "op match",
			template: T(Op("apitoken.(Manager).Derive")),
			err:      deriveErr,
			want:     true,
		},
		{
			name:     "msg mismatch",
			template: T("some other msg"),
			err:      deriveErr,
			want:     false,
		},
		{
			name:     "not an Err",
			template: T(CannotDeriveToken),
			err:      stderrors.New("plain"),
			want:     false,
		},
		{
			name:     "nil template",
			template: nil,
			err:      deriveErr,
			want:     false,
		},
		{
			name:     "nil error",
			template: T(CannotDeriveToken),
			err:      nil,
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, Match(tt.template, tt.err))
		})
	}
}
