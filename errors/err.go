// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

import (
	"fmt"
	"strings"
)

// Err provides the ability to specify a Msg, Op, Code and Wrapped error.
// Err implements the standard error interface and supports errors.Is/As
// through its Unwrap.
type Err struct {
	// Code is the error's code, which can be used to get the error's
	// errorCodeInfo, which contains the error's Kind and default Message
	Code Code

	// Msg for the error
	Msg string

	// Op represents the operation raising/propagating an error and is
	// optional
	Op Op

	// Wrapped is the error which this Err wraps and will be nil if there's
	// no error to wrap
	Wrapped error
}

// Error satisfies the error interface and returns a string representation of
// the Err in the form "op: msg: kind: error #code" followed by any wrapped
// error.
func (e *Err) Error() string {
	var s strings.Builder
	if e.Op != "" {
		join(&s, ": ", string(e.Op))
	}
	if e.Msg != "" {
		join(&s, ": ", e.Msg)
	}
	if e.Code != Unknown {
		if info, ok := errorCodeInfo[e.Code]; ok {
			if e.Msg == "" {
				join(&s, ": ", info.Message)
			}
			join(&s, ": ", info.Kind.String())
		}
		join(&s, ": ", fmt.Sprintf("error #%d", e.Code))
	}
	if e.Wrapped != nil {
		join(&s, ": ", e.Wrapped.Error())
	}
	if s.Len() == 0 {
		return "unknown"
	}
	return s.String()
}

func join(str *strings.Builder, delim string, s string) {
	if str.Len() == 0 {
		_, _ = str.WriteString(s)
		return
	}
	_, _ = str.WriteString(delim + s)
}

// Info returns the Info about the Err's Code.
func (e *Err) Info() Info {
	if e == nil {
		return errorCodeInfo[Unknown]
	}
	return e.Code.Info()
}

// Unwrap implements the errors.Unwrap interface and allows callers to use
// errors.Is and errors.As against any wrapped error.
func (e *Err) Unwrap() error {
	return e.Wrapped
}
