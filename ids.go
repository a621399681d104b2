// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-secure-stdlib/base62"
)

const (
	// TokenIdPrefix is the public id prefix for access tokens.
	TokenIdPrefix = "apit"

	// GroupIdPrefix is the public id prefix for token groups.
	GroupIdPrefix = "aptg"

	// AuditEntryIdPrefix is the public id prefix for audit log entries.
	AuditEntryIdPrefix = "apta"
)

func newTokenId(ctx context.Context) (string, error) {
	return newId(ctx, TokenIdPrefix)
}

func newGroupId(ctx context.Context) (string, error) {
	return newId(ctx, GroupIdPrefix)
}

func newAuditEntryId(ctx context.Context) (string, error) {
	return newId(ctx, AuditEntryIdPrefix)
}

func newId(ctx context.Context, prefix string) (string, error) {
	const op = "apitoken.newId"
	if prefix == "" {
		return "", errors.New(ctx, errors.InvalidParameter, op, "missing prefix")
	}
	id, err := base62.Random(10)
	if err != nil {
		return "", errors.Wrap(ctx, err, op, errors.WithMsg("unable to generate id"), errors.WithCode(errors.Io))
	}
	return fmt.Sprintf("%s_%s", prefix, id), nil
}
