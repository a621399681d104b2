// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package errors provides the error types used across go-apitoken. Errors
// carry a unique Code, an optional Op identifying where the error originated,
// and an optional wrapped error. Codes map to an Info which classifies the
// error into a Kind (parameter violation, integrity violation, search issue,
// etc.) and provides a default message.
//
// New errors are created with New and existing errors are wrapped with Wrap:
//
//	const op = "apitoken.(Repository).CreateToken"
//	if tok == nil {
//		return errors.New(ctx, errors.InvalidParameter, op, "missing token")
//	}
//	if err := w.Create(ctx, tok); err != nil {
//		return errors.Wrap(ctx, err, op)
//	}
//
// Callers match errors against a Template, which allows matching on any
// combination of Code, Kind, Msg, and Op:
//
//	if errors.Match(errors.T(errors.CannotDeriveToken), err) {
//		// parent was revoked, expired, or depth-exhausted
//	}
//
// The package intentionally shadows the stdlib errors package name and
// re-exports Is, As, and Unwrap so importers only need one errors import.
package errors
