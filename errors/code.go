// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

// Code specifies a unique code for the error.
type Code uint32

// String returns the Code's Info.Message.
func (c Code) String() string {
	return c.Info().Message
}

// Info looks up the Code's Info. If the Info is not found, it returns Info
// for an Unknown Code.
func (c Code) Info() Info {
	if info, ok := errorCodeInfo[c]; ok {
		return info
	}
	return errorCodeInfo[Unknown]
}

const (
	Unknown Code = 0 // Unknown is equal to the zero value for Codes

	// General function errors are reserved Codes 100-199.
	InvalidParameter Code = 100 // InvalidParameter represents an invalid parameter for an operation
	InvalidPublicId  Code = 102 // InvalidPublicId represents an invalid public id for an operation
	InvalidFieldMask Code = 103 // InvalidFieldMask represents an invalid field mask for an update
	EmptyFieldMask   Code = 104 // EmptyFieldMask represents an empty field mask for an update
	Io               Code = 105 // Io represents an error during an io operation
	InvalidTimeStamp Code = 106 // InvalidTimeStamp represents an invalid time stamp for an operation

	// Token lifecycle errors are reserved Codes 200-299.
	NotRegistered            Code = 200 // NotRegistered represents a request for a component name that was never registered
	CannotDeriveToken        Code = 201 // CannotDeriveToken represents a derivation from a revoked, expired, or depth-exhausted parent
	InvalidDerivedAbilities  Code = 202 // InvalidDerivedAbilities represents requested abilities that are not a subset of the parent's
	InvalidDerivedExpiration Code = 203 // InvalidDerivedExpiration represents a requested expiration that exceeds the parent's
	MissingOwner             Code = 204 // MissingOwner represents a token whose owner reference is absent or not loadable
	GroupRefreshFailure      Code = 205 // GroupRefreshFailure represents a token group that could not be reloaded after creation
	Unauthenticated          Code = 206 // Unauthenticated represents a presented credential that failed an authentication check
	InvalidConfiguration     Code = 210 // InvalidConfiguration represents an invalid engine configuration

	// Internal errors are reserved Codes 500-599.
	Internal Code = 500 // Internal represents an internal error

	// DB errors are reserved Codes 1000-1999.
	CheckConstraint        Code = 1000 // CheckConstraint represents a check constraint error
	NotNull                Code = 1001 // NotNull represents a value must not be null error
	NotUnique              Code = 1002 // NotUnique represents a value must be unique error
	NotSpecificIntegrity   Code = 1003 // NotSpecificIntegrity represents an integrity error with no specific domain code
	MissingTable           Code = 1004 // MissingTable represents an undefined table error
	RecordNotFound         Code = 1100 // RecordNotFound represents that a record/row was not found matching the criteria
	MultipleRecords        Code = 1101 // MultipleRecords represents that multiple records/rows were found matching the criteria
	UnexpectedRowsAffected Code = 1102 // UnexpectedRowsAffected represents an unexpected number of rows affected by a write
	MaxRetries             Code = 1140 // MaxRetries represents a db transaction that exceeded its retry limit
)
