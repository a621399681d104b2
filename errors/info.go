// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package errors

// Info contains details of the specific error code.
type Info struct {
	// Kind specifies the kind of error (unknown, parameter, integrity, etc).
	Kind Kind

	// Message provides a default message for the error code.
	Message string
}

// errorCodeInfo provides a map of unique Codes to their corresponding Kind
// and a default Message.
var errorCodeInfo = map[Code]Info{
	Unknown: {
		Message: "unknown",
		Kind:    Other,
	},
	InvalidParameter: {
		Message: "invalid parameter",
		Kind:    Parameter,
	},
	InvalidPublicId: {
		Message: "invalid public id",
		Kind:    Parameter,
	},
	InvalidFieldMask: {
		Message: "invalid field mask",
		Kind:    Parameter,
	},
	EmptyFieldMask: {
		Message: "empty field mask",
		Kind:    Parameter,
	},
	Io: {
		Message: "error during io operation",
		Kind:    Integrity,
	},
	InvalidTimeStamp: {
		Message: "invalid time stamp",
		Kind:    Integrity,
	},
	NotRegistered: {
		Message: "name is not registered",
		Kind:    Configuration,
	},
	CannotDeriveToken: {
		Message: "token cannot derive child tokens",
		Kind:    State,
	},
	InvalidDerivedAbilities: {
		Message: "abilities are not a subset of the parent's abilities",
		Kind:    Parameter,
	},
	InvalidDerivedExpiration: {
		Message: "expiration exceeds the parent's expiration",
		Kind:    Parameter,
	},
	MissingOwner: {
		Message: "missing token owner",
		Kind:    Integrity,
	},
	GroupRefreshFailure: {
		Message: "token group could not be reloaded",
		Kind:    Search,
	},
	Unauthenticated: {
		Message: "credential failed authentication",
		Kind:    State,
	},
	InvalidConfiguration: {
		Message: "invalid configuration",
		Kind:    Configuration,
	},
	Internal: {
		Message: "internal error",
		Kind:    Other,
	},
	CheckConstraint: {
		Message: "constraint check failed",
		Kind:    Integrity,
	},
	NotNull: {
		Message: "must not be empty (null) violation",
		Kind:    Integrity,
	},
	NotUnique: {
		Message: "must be unique violation",
		Kind:    Integrity,
	},
	NotSpecificIntegrity: {
		Message: "integrity violation without specific details",
		Kind:    Integrity,
	},
	MissingTable: {
		Message: "missing table",
		Kind:    Integrity,
	},
	RecordNotFound: {
		Message: "record not found",
		Kind:    Search,
	},
	MultipleRecords: {
		Message: "multiple records",
		Kind:    Search,
	},
	UnexpectedRowsAffected: {
		Message: "unexpected number of rows affected",
		Kind:    Integrity,
	},
	MaxRetries: {
		Message: "too many retries",
		Kind:    Transaction,
	},
}
