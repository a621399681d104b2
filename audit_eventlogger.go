// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"io"

	"github.com/hashicorp/eventlogger"
	"github.com/hashicorp/eventlogger/sinks/writer"
	"github.com/hashicorp/go-apitoken/errors"
)

// auditEventType is the eventlogger event type audit entries are sent as.
const auditEventType = "apitoken-audit"

// auditSinkFormat is the formatted-payload key the writer sink reads; it
// must match what the JSONFormatter node produces.
const auditSinkFormat = "json"

// EventSink appends audit entries to a hashicorp/eventlogger pipeline: a
// JSON formatter node feeding a writer sink. Useful for shipping the audit
// stream to a file or collector alongside, or instead of, the db driver.
type EventSink struct {
	broker *eventlogger.Broker
}

// NewEventSink creates an EventSink writing JSON-encoded entries to w.
func NewEventSink(ctx context.Context, w io.Writer) (*EventSink, error) {
	const op = "apitoken.NewEventSink"
	if isNil(w) {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing writer")
	}
	broker, err := eventlogger.NewBroker()
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to create broker"))
	}

	fmtId, err := newId(ctx, "aptn")
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	if err := broker.RegisterNode(eventlogger.NodeID(fmtId), &eventlogger.JSONFormatter{}); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to register formatter node"))
	}

	sinkId, err := newId(ctx, "aptn")
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	sinkNode := &writer.Sink{
		Format: auditSinkFormat,
		Writer: w,
	}
	if err := broker.RegisterNode(eventlogger.NodeID(sinkId), sinkNode); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to register sink node"))
	}

	pipelineId, err := newId(ctx, "aptp")
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	err = broker.RegisterPipeline(eventlogger.Pipeline{
		EventType:  eventlogger.EventType(auditEventType),
		PipelineID: eventlogger.PipelineID(pipelineId),
		NodeIDs:    []eventlogger.NodeID{eventlogger.NodeID(fmtId), eventlogger.NodeID(sinkId)},
	})
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to register audit pipeline"))
	}
	if err := broker.SetSuccessThreshold(eventlogger.EventType(auditEventType), 1); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("unable to set success threshold"))
	}
	return &EventSink{broker: broker}, nil
}

// Append sends the entry through the pipeline.
func (s *EventSink) Append(ctx context.Context, e *AuditEntry) error {
	const op = "apitoken.(EventSink).Append"
	if e == nil {
		return errors.New(ctx, errors.InvalidParameter, op, "missing entry")
	}
	status, err := s.broker.Send(ctx, eventlogger.EventType(auditEventType), e)
	if err != nil {
		return errors.Wrap(ctx, err, op, errors.WithMsg("unable to send audit event"))
	}
	if len(status.Warnings) > 0 {
		return errors.New(ctx, errors.Io, op, "audit event delivery reported warnings")
	}
	return nil
}
