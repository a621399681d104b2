// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

// Kind specifies the kind of error (unknown, parameter, integrity, etc).
type Kind uint32

const (
	Other Kind = iota // Other is equal to the zero value for Kinds
	Parameter
	Integrity
	Search
	State
	Transaction
	Encoding
	Configuration
)

// String returns the Kind formatted the way it appears in error strings.
func (k Kind) String() string {
	switch k {
	case Parameter:
		return "parameter violation"
	case Integrity:
		return "integrity violation"
	case Search:
		return "search issue"
	case State:
		return "state violation"
	case Transaction:
		return "db transaction issue"
	case Encoding:
		return "encoding issue"
	case Configuration:
		return "configuration issue"
	default:
		return "unknown"
	}
}
