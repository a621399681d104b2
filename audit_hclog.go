// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-hclog"
)

// LoggerSink appends audit entries to an hclog logger at info level. It's
// the lightest driver: useful in development or when the surrounding
// process already ships its logs somewhere durable.
type LoggerSink struct {
	logger hclog.Logger
}

// NewLoggerSink creates a LoggerSink.
func NewLoggerSink(ctx context.Context, logger hclog.Logger) (*LoggerSink, error) {
	const op = "apitoken.NewLoggerSink"
	if logger == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing logger")
	}
	return &LoggerSink{logger: logger}, nil
}

// Append logs the entry.
func (s *LoggerSink) Append(ctx context.Context, e *AuditEntry) error {
	const op = "apitoken.(LoggerSink).Append"
	if e == nil {
		return errors.New(ctx, errors.InvalidParameter, op, "missing entry")
	}
	args := []any{
		"id", e.PublicId,
		"kind", e.Kind,
		"token_id", e.TokenId,
	}
	if e.CreateTime != nil {
		args = append(args, "create_time", e.CreateTime)
	}
	for k, v := range e.Metadata {
		args = append(args, k, v)
	}
	s.logger.Info("audit", args...)
	return nil
}
