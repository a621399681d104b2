// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
)

// auditTableName is the table audit log entries are stored in.
const auditTableName = "api_token_audit_entry"

// AuditKind is the kind of lifecycle event an audit entry records.
type AuditKind string

const (
	AuditCreated       AuditKind = "created"
	AuditAuthenticated AuditKind = "authenticated"
	AuditRevoked       AuditKind = "revoked"
	AuditRotated       AuditKind = "rotated"
	AuditDerived       AuditKind = "derived"
	AuditFailed        AuditKind = "failed"
	AuditRateLimited   AuditKind = "rate_limited"
	AuditIpBlocked     AuditKind = "ip_blocked"
	AuditDomainBlocked AuditKind = "domain_blocked"
	AuditExpired       AuditKind = "expired"
)

// AuditEntry is one append-only audit log record. Entries are never
// updated or individually deleted; pruning removes them by age.
type AuditEntry struct {
	// PublicId is generated with the apta prefix and is immutable.
	PublicId string `json:"public_id,omitempty" gorm:"primary_key"`

	// TokenId references the token the event concerns. May be empty for
	// failed authentications of unknown credentials.
	TokenId string `json:"token_id,omitempty" gorm:"default:null"`

	// Kind is the event kind.
	Kind AuditKind `json:"kind,omitempty" gorm:"default:null"`

	// Metadata carries event specific details: mode names, affected counts,
	// reasons, lineage.
	Metadata StringMap `json:"metadata,omitempty" gorm:"type:text;default:null"`

	// CreateTime is when the event occurred.
	CreateTime *time.Time `json:"create_time,omitempty" gorm:"default:current_timestamp"`
}

func allocAuditEntry() *AuditEntry {
	return &AuditEntry{}
}

// Clone an AuditEntry.
func (e *AuditEntry) Clone() *AuditEntry {
	cp := *e
	cp.Metadata = e.Metadata.Clone()
	if e.CreateTime != nil {
		at := *e.CreateTime
		cp.CreateTime = &at
	}
	return &cp
}

// TableName returns the table name.
func (e *AuditEntry) TableName() string {
	return auditTableName
}

// GetPublicId returns the entry's public id.
func (e *AuditEntry) GetPublicId() string {
	return e.PublicId
}

// VetForWrite validates the entry before it's written.
func (e *AuditEntry) VetForWrite(ctx context.Context, r dbw.Reader, opType dbw.OpType, opt ...dbw.Option) error {
	const op = "apitoken.(AuditEntry).VetForWrite"
	if opType != dbw.CreateOp {
		return nil
	}
	switch {
	case e.PublicId == "":
		return errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	case e.Kind == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing kind")
	}
	return nil
}

// AuditSink appends audit entries. Implementations are registered as named
// drivers; every state-changing operation writes through the configured
// default driver and swallows failures.
type AuditSink interface {
	Append(ctx context.Context, e *AuditEntry) error
}

// auditWriter resolves the default audit driver and appends entries to it,
// discarding append failures so audit logging can never destabilize the
// primary operation. Failures are logged at debug level.
type auditWriter struct {
	drivers *Registry[AuditSink]
	logger  hclog.Logger
	timeNow func() time.Time
}

// write builds and appends an entry, swallowing every failure.
func (a *auditWriter) write(ctx context.Context, kind AuditKind, tokenId string, md map[string]string) {
	sink, err := a.drivers.Default(ctx)
	if err != nil {
		a.logger.Debug("audit write skipped", "kind", kind, "error", err)
		return
	}
	id, err := newAuditEntryId(ctx)
	if err != nil {
		a.logger.Debug("audit write skipped", "kind", kind, "error", err)
		return
	}
	now := a.timeNow()
	entry := &AuditEntry{
		PublicId:   id,
		TokenId:    tokenId,
		Kind:       kind,
		Metadata:   md,
		CreateTime: &now,
	}
	if err := sink.Append(ctx, entry); err != nil {
		a.logger.Debug("audit write failed", "kind", kind, "token_id", tokenId, "error", err)
	}
}
