// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
)

// CreateAuditEntry persists one audit log entry, allocating its public id
// when the caller didn't.
func (r *Repository) CreateAuditEntry(ctx context.Context, e *AuditEntry, opt ...Option) (*AuditEntry, error) {
	const op = "apitoken.(Repository).CreateAuditEntry"
	if e == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing entry")
	}
	opts := getOpts(opt...)
	created := e.Clone()
	if created.PublicId == "" {
		id, err := newAuditEntryId(ctx)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		created.PublicId = id
	}
	if created.CreateTime == nil {
		now := r.timeNow()
		created.CreateTime = &now
	}
	_, err := r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) error {
			return w.Create(ctx, created)
		},
	)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return created, nil
}

// ListAuditEntries returns a token's audit entries, newest first. Supports
// WithLimit.
func (r *Repository) ListAuditEntries(ctx context.Context, tokenId string, opt ...Option) ([]*AuditEntry, error) {
	const op = "apitoken.(Repository).ListAuditEntries"
	if tokenId == "" {
		return nil, errors.New(ctx, errors.InvalidPublicId, op, "missing token id")
	}
	opts := getOpts(opt...)
	var entries []*AuditEntry
	err := r.reader.SearchWhere(ctx, &entries,
		"token_id = ?",
		[]any{tokenId},
		dbw.WithLimit(r.limitFor(opts)),
		dbw.WithOrder("create_time desc, public_id"),
	)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", tokenId)))
	}
	return entries, nil
}

// PruneAuditEntries deletes audit entries older than the retention window
// and returns the count with a human readable summary.
func (r *Repository) PruneAuditEntries(ctx context.Context, retain time.Duration, opt ...Option) (int, string, error) {
	const op = "apitoken.(Repository).PruneAuditEntries"
	if retain < 0 {
		return noRowsAffected, "", errors.New(ctx, errors.InvalidParameter, op, "negative retention window")
	}
	opts := getOpts(opt...)
	cutoff := r.timeNow().Add(-retain)
	var rowsDeleted int
	_, err := r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			rowsDeleted, err = w.Exec(ctx, pruneAuditEntriesQuery, []any{sql.Named("cutoff", cutoff)})
			return err
		},
	)
	if err != nil {
		return noRowsAffected, "", errors.Wrap(ctx, err, op)
	}
	summary := fmt.Sprintf("pruned %d audit entries created before %s", rowsDeleted, cutoff.Format(time.RFC3339))
	return rowsDeleted, summary, nil
}
