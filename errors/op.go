// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

// Op represents an operation (package.function or package.(type).function)
// raising or propagating an error.
type Op string
