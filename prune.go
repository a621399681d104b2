// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-multierror"
)

// PruneResult reports what a maintenance sweep removed.
type PruneResult struct {
	// TokensPruned is the number of dead tokens deleted.
	TokensPruned int
	// AuditEntriesPruned is the number of audit entries deleted.
	AuditEntriesPruned int
	// Summary is a human readable account of the sweep.
	Summary string
}

// Prune runs the maintenance sweep in two stages: tokens expired or revoked
// longer than tokenOlderThan ago are deleted along with any groups that
// removal empties, then audit entries older than auditRetain are dropped.
// A failed stage doesn't stop the other one; the result carries whatever
// the surviving stages removed and the error collects every stage failure.
func (m *Manager) Prune(ctx context.Context, tokenOlderThan, auditRetain time.Duration, opt ...Option) (*PruneResult, error) {
	const op = "apitoken.(Manager).Prune"
	res := &PruneResult{}
	var mErr *multierror.Error
	summaries := make([]string, 0, 2)

	tokens, tokenSummary, err := m.repo.PruneTokens(ctx, tokenOlderThan, opt...)
	if err != nil {
		mErr = multierror.Append(mErr, err)
	} else {
		res.TokensPruned = tokens
		summaries = append(summaries, tokenSummary)
	}

	entries, auditSummary, err := m.repo.PruneAuditEntries(ctx, auditRetain, opt...)
	if err != nil {
		mErr = multierror.Append(mErr, err)
	} else {
		res.AuditEntriesPruned = entries
		summaries = append(summaries, auditSummary)
	}

	res.Summary = strings.Join(summaries, "; ")
	if err := mErr.ErrorOrNil(); err != nil {
		return res, errors.Wrap(ctx, err, op)
	}
	m.logger.Debug("maintenance sweep finished", "tokens_pruned", res.TokensPruned, "audit_entries_pruned", res.AuditEntriesPruned)
	return res, nil
}
