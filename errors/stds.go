// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

import stderrors "errors"

// Is is the stdlib errors.Is, re-exported since this package shadows the
// stdlib errors name for importers.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is the stdlib errors.As, re-exported since this package shadows the
// stdlib errors name for importers.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap is the stdlib errors.Unwrap, re-exported since this package shadows
// the stdlib errors name for importers.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
