// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

// GetOpts gets the options and applies the defaults.
func GetOpts(opt ...Option) options {
	opts := options{}
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// Option sets options for creating a new Err.
type Option func(*options)

// options is the set of available options.
type options struct {
	withErrWrapped error
	withErrMsg     string
	withErrCode    *Code
}

// WithWrap provides an error to wrap.
func WithWrap(e error) Option {
	return func(o *options) {
		o.withErrWrapped = e
	}
}

// WithMsg provides a message for the error.
func WithMsg(msg string) Option {
	return func(o *options) {
		o.withErrMsg = msg
	}
}

// WithCode provides a Code for the error.
func WithCode(c Code) Option {
	return func(o *options) {
		o.withErrCode = &c
	}
}
