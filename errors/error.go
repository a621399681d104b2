// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

import (
	"context"
	"strings"

	"github.com/hashicorp/go-dbw"
)

// New creates a new Err with the provided Code, Op and msg. It supports the
// option of WithWrap to specify an error to wrap. The ctx is accepted so
// call sites can pass their operation context through uniformly; it is
// reserved for future use.
func New(ctx context.Context, c Code, op Op, msg string, opt ...Option) error {
	opts := GetOpts(opt...)
	return &Err{
		Code:    c,
		Op:      op,
		Msg:     msg,
		Wrapped: opts.withErrWrapped,
	}
}

// NewDeferred is the same as New but for call sites that carry no context,
// such as chainable builders that capture an error to surface from a later
// terminal call.
func NewDeferred(c Code, op Op, msg string, opt ...Option) error {
	return New(context.Background(), c, op, msg, opt...)
}

// WrapDeferred is the same as Wrap but for call sites that carry no context.
func WrapDeferred(e error, op Op, opt ...Option) error {
	return Wrap(context.Background(), e, op, opt...)
}

// E creates a new Err from options alone. Supports WithCode, WithMsg and
// WithWrap. Useful when there's no meaningful Op for the error.
func E(ctx context.Context, opt ...Option) error {
	opts := GetOpts(opt...)
	err := &Err{
		Msg:     opts.withErrMsg,
		Wrapped: opts.withErrWrapped,
	}
	if opts.withErrCode != nil {
		err.Code = *opts.withErrCode
	}
	return err
}

// Wrap creates a new Err that wraps e with the provided Op. It supports
// WithMsg and WithCode. When no WithCode is given, the new Err inherits the
// Code of the first *Err found in e's chain, or the Code of a recognized
// storage error after Convert, so Match keeps working across wraps.
func Wrap(ctx context.Context, e error, op Op, opt ...Option) error {
	opts := GetOpts(opt...)
	err := &Err{
		Op:      op,
		Msg:     opts.withErrMsg,
		Wrapped: e,
	}
	switch {
	case opts.withErrCode != nil:
		err.Code = *opts.withErrCode
	default:
		var inner *Err
		if As(e, &inner) {
			err.Code = inner.Code
			break
		}
		if converted := Convert(e); converted != nil {
			err.Code = converted.Code
			err.Wrapped = converted
		}
	}
	return err
}

// Convert converts e into an *Err when it's recognized as a storage error
// from go-dbw or the underlying dialect; otherwise it returns nil. If e's
// chain already contains an *Err, that Err is returned as is.
func Convert(e error) *Err {
	if e == nil {
		return nil
	}
	var already *Err
	if As(e, &already) {
		return already
	}
	switch {
	case Is(e, dbw.ErrRecordNotFound):
		return &Err{Code: RecordNotFound, Msg: "record not found", Wrapped: e}
	case Is(e, dbw.ErrInvalidParameter):
		return &Err{Code: InvalidParameter, Msg: "invalid parameter", Wrapped: e}
	case Is(e, dbw.ErrInvalidFieldMask):
		return &Err{Code: InvalidFieldMask, Msg: "invalid field mask", Wrapped: e}
	case Is(e, dbw.ErrMaxRetries):
		return &Err{Code: MaxRetries, Msg: "too many retries", Wrapped: e}
	case Is(e, dbw.ErrInternal):
		return &Err{Code: Internal, Msg: "internal error", Wrapped: e}
	}
	msg := e.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "duplicate key value"):
		return &Err{Code: NotUnique, Msg: "unique constraint violation", Wrapped: e}
	case strings.Contains(msg, "NOT NULL constraint failed"),
		strings.Contains(msg, "null value in column"):
		return &Err{Code: NotNull, Msg: "not null constraint violated", Wrapped: e}
	case strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "violates check constraint"):
		return &Err{Code: CheckConstraint, Msg: "check constraint violated", Wrapped: e}
	}
	return nil
}
