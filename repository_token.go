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

// CreateToken persists a fully populated token. The token's public id and
// hashed secret must already be set; issuance and derivation are the callers.
func (r *Repository) CreateToken(ctx context.Context, t *AccessToken, opt ...Option) (*AccessToken, error) {
	const op = "apitoken.(Repository).CreateToken"
	if t == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing token")
	}
	opts := getOpts(opt...)
	created := t.Clone()
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
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", t.PublicId)))
	}
	return created, nil
}

// LookupToken returns the token with the given public id, with the hashed
// secret cleared, or nil, nil when it doesn't exist.
func (r *Repository) LookupToken(ctx context.Context, publicId string, opt ...Option) (*AccessToken, error) {
	const op = "apitoken.(Repository).LookupToken"
	t, err := r.lookupToken(ctx, publicId)
	switch {
	case err != nil:
		return nil, errors.Wrap(ctx, err, op)
	case t == nil:
		return nil, nil
	}
	t.HashedSecret = ""
	return t, nil
}

// lookupToken returns the full row including the hashed secret, or nil, nil
// when the id doesn't exist.
func (r *Repository) lookupToken(ctx context.Context, publicId string) (*AccessToken, error) {
	const op = "apitoken.(Repository).lookupToken"
	if publicId == "" {
		return nil, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	t := allocAccessToken()
	t.PublicId = publicId
	if err := r.reader.LookupByPublicId(ctx, t); err != nil {
		if errors.Is(err, dbw.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", publicId)))
	}
	return t, nil
}

// lookupTokenByHashedSecret returns the token storing the exact digest, or
// nil, nil when no token does. Only useful for deterministic hashers.
func (r *Repository) lookupTokenByHashedSecret(ctx context.Context, digest string) (*AccessToken, error) {
	const op = "apitoken.(Repository).lookupTokenByHashedSecret"
	if digest == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing digest")
	}
	t := allocAccessToken()
	if err := r.reader.LookupWhere(ctx, t, "hashed_secret = ?", []any{digest}); err != nil {
		if errors.Is(err, dbw.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(ctx, err, op)
	}
	return t, nil
}

// searchTokens returns the full rows matching the where clause. Supports
// WithLimit; ordering comes from the optional order argument of the callers
// via dbw.WithOrder.
func (r *Repository) searchTokens(ctx context.Context, whereClause string, args []any, order string, opt ...Option) ([]*AccessToken, error) {
	const op = "apitoken.(Repository).searchTokens"
	if whereClause == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing where clause")
	}
	opts := getOpts(opt...)
	var tokens []*AccessToken
	dbOpts := []dbw.Option{dbw.WithLimit(r.limitFor(opts))}
	if order != "" {
		dbOpts = append(dbOpts, dbw.WithOrder(order))
	}
	if err := r.reader.SearchWhere(ctx, &tokens, whereClause, args, dbOpts...); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return tokens, nil
}

// countTokens returns the number of tokens matching the where clause.
func (r *Repository) countTokens(ctx context.Context, whereClause string, args []any) (int, error) {
	const op = "apitoken.(Repository).countTokens"
	query := countTokensQuery
	if whereClause != "" {
		query = fmt.Sprintf("%s where %s", countTokensQuery, whereClause)
	}
	rows, err := r.reader.Query(ctx, query, args)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	defer rows.Close()
	var count int
	for rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, errors.Wrap(ctx, err, op)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	return count, nil
}

// TouchLastUsed records a successful authentication at the given instant.
func (r *Repository) TouchLastUsed(ctx context.Context, publicId string, at time.Time) (int, error) {
	const op = "apitoken.(Repository).TouchLastUsed"
	if publicId == "" {
		return noRowsAffected, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	var rowsUpdated int
	_, err := r.writer.DoTx(
		ctx,
		noOpErrorMatchingFn,
		stdRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			rowsUpdated, err = w.Exec(ctx, touchLastUsedQuery, []any{at, at, publicId})
			if err != nil {
				return err
			}
			if rowsUpdated > 1 {
				return errors.New(ctx, errors.MultipleRecords, op, "more than 1 token would have been updated")
			}
			return nil
		},
	)
	if err != nil {
		return noRowsAffected, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", publicId)))
	}
	return rowsUpdated, nil
}

// RevokeTokens marks every token in publicIds revoked as of revokedAt and
// returns how many rows actually transitioned. The underlying update only
// ever moves a revocation timestamp earlier, so an already revoked token is
// never restored to validity and counts as zero.
func (r *Repository) RevokeTokens(ctx context.Context, publicIds []string, revokedAt time.Time, opt ...Option) (int, error) {
	const op = "apitoken.(Repository).RevokeTokens"
	if len(publicIds) == 0 {
		return noRowsAffected, errors.New(ctx, errors.InvalidParameter, op, "missing public ids")
	}
	for _, id := range publicIds {
		if id == "" {
			return noRowsAffected, errors.New(ctx, errors.InvalidPublicId, op, "empty public id in set")
		}
	}
	opts := getOpts(opt...)
	now := r.timeNow()
	var rowsUpdated int
	_, err := r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			rowsUpdated, err = w.Exec(ctx, revokeTokensQuery, []any{revokedAt, now, publicIds, revokedAt})
			return err
		},
	)
	if err != nil {
		return noRowsAffected, errors.Wrap(ctx, err, op)
	}
	return rowsUpdated, nil
}

// updateMetadata rewrites a token's metadata column, used for rotation
// lineage stamps on the old token.
func (r *Repository) updateMetadata(ctx context.Context, publicId string, md StringMap) (int, error) {
	const op = "apitoken.(Repository).updateMetadata"
	if publicId == "" {
		return noRowsAffected, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	now := r.timeNow()
	var rowsUpdated int
	_, err := r.writer.DoTx(
		ctx,
		noOpErrorMatchingFn,
		stdRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			rowsUpdated, err = w.Exec(ctx, updateTokenMetadataQuery, []any{md, now, publicId})
			if err != nil {
				return err
			}
			if rowsUpdated > 1 {
				return errors.New(ctx, errors.MultipleRecords, op, "more than 1 token would have been updated")
			}
			return nil
		},
	)
	if err != nil {
		return noRowsAffected, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", publicId)))
	}
	return rowsUpdated, nil
}

// DescendantTokenIds walks the derivation hierarchy and returns the public
// ids of every transitive descendant of the given token, in no particular
// order.
func (r *Repository) DescendantTokenIds(ctx context.Context, publicId string) ([]string, error) {
	const op = "apitoken.(Repository).DescendantTokenIds"
	if publicId == "" {
		return nil, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	rows, err := r.reader.Query(ctx, descendantTokenIdsQuery, []any{sql.Named("parent_id", publicId)})
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return ids, nil
}

// DeleteToken deletes the token, returning how many rows were deleted.
func (r *Repository) DeleteToken(ctx context.Context, publicId string, opt ...Option) (int, error) {
	const op = "apitoken.(Repository).DeleteToken"
	if publicId == "" {
		return noRowsAffected, errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	}
	t, err := r.lookupToken(ctx, publicId)
	switch {
	case err != nil:
		return noRowsAffected, errors.Wrap(ctx, err, op)
	case t == nil:
		return noRowsAffected, errors.New(ctx, errors.RecordNotFound, op, fmt.Sprintf("token %q not found", publicId))
	}
	opts := getOpts(opt...)
	var rowsDeleted int
	_, err = r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			dt := t.Clone()
			rowsDeleted, err = w.Delete(ctx, dt)
			if err != nil {
				return err
			}
			if rowsDeleted > 1 {
				return errors.New(ctx, errors.MultipleRecords, op, "more than 1 token would have been deleted")
			}
			return nil
		},
	)
	if err != nil {
		return noRowsAffected, errors.Wrap(ctx, err, op, errors.WithMsg(fmt.Sprintf("failed for %q", publicId)))
	}
	return rowsDeleted, nil
}

// PruneTokens deletes tokens whose expiration or revocation timestamp is
// older than the cutoff, then removes groups left without members. It
// returns the number of tokens deleted and a human readable summary.
func (r *Repository) PruneTokens(ctx context.Context, olderThan time.Duration, opt ...Option) (int, string, error) {
	const op = "apitoken.(Repository).PruneTokens"
	if olderThan < 0 {
		return noRowsAffected, "", errors.New(ctx, errors.InvalidParameter, op, "negative cutoff")
	}
	opts := getOpts(opt...)
	cutoff := r.timeNow().Add(-olderThan)
	var tokensDeleted, groupsDeleted int
	_, err := r.writer.DoTx(
		ctx,
		opts.withErrorsMatching,
		opts.withRetryCnt,
		dbw.ExpBackoff{},
		func(_ dbw.Reader, w dbw.Writer) (err error) {
			tokensDeleted, err = w.Exec(ctx, pruneTokensQuery, []any{sql.Named("cutoff", cutoff)})
			if err != nil {
				return err
			}
			groupsDeleted, err = w.Exec(ctx, pruneGroupsQuery, []any{sql.Named("cutoff", cutoff)})
			return err
		},
	)
	if err != nil {
		return noRowsAffected, "", errors.Wrap(ctx, err, op)
	}
	summary := fmt.Sprintf("pruned %d tokens and %d empty groups expired or revoked before %s",
		tokensDeleted, groupsDeleted, cutoff.Format(time.RFC3339))
	return tokensDeleted, summary, nil
}
