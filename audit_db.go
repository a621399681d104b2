// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"

	"github.com/hashicorp/go-apitoken/errors"
)

// auditDbDriverName is the registry name of the database audit driver.
const auditDbDriverName = "db"

// DbSink appends audit entries to the api_token_audit_entry table through
// the repository. It is the driver registered as the default by NewManager.
type DbSink struct {
	repo *Repository
}

// NewDbSink creates a DbSink over the given repository.
func NewDbSink(ctx context.Context, repo *Repository) (*DbSink, error) {
	const op = "apitoken.NewDbSink"
	if repo == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing repository")
	}
	return &DbSink{repo: repo}, nil
}

// Append persists the entry.
func (s *DbSink) Append(ctx context.Context, e *AuditEntry) error {
	const op = "apitoken.(DbSink).Append"
	if e == nil {
		return errors.New(ctx, errors.InvalidParameter, op, "missing entry")
	}
	if _, err := s.repo.CreateAuditEntry(ctx, e); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}
