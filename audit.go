package jwtpair

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/jwtpair/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// LogSink forwards events to a logrus logger.
type LogSink = audit.LogSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

const (
	auditEventPairIssued          = "token_pair_issued"
	auditEventPairIssueFailed     = "token_pair_issue_failed"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventRefreshReuse        = "refresh_reuse_detected"
	auditEventRefreshNotFound     = "refresh_not_found"
	auditEventRefreshTypeMismatch = "refresh_type_mismatch"
)

// AuditErrorCode is the stable error label recorded on failed events.
type AuditErrorCode string

const (
	auditErrSigning          AuditErrorCode = "signing_failed"
	auditErrInvalidSignature AuditErrorCode = "invalid_signature"
	auditErrExpired          AuditErrorCode = "expired"
	auditErrMalformed        AuditErrorCode = "malformed"
	auditErrIssuerMismatch   AuditErrorCode = "issuer_mismatch"
	auditErrTypeMismatch     AuditErrorCode = "token_type_mismatch"
	auditErrAlreadyUsed      AuditErrorCode = "already_used"
	auditErrNotFound         AuditErrorCode = "not_found"
	auditErrUnavailable      AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (a *Authenticator[ID]) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	jti string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		JTI:       jti,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSigning):
		return auditErrSigning
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrMalformedToken):
		return auditErrMalformed
	case errors.Is(err, ErrIssuerMismatch):
		return auditErrIssuerMismatch
	case errors.Is(err, ErrTokenTypeMismatch):
		return auditErrTypeMismatch
	case errors.Is(err, ErrAlreadyUsed):
		return auditErrAlreadyUsed
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrStore):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// NewLogSink returns a sink that logs each event through logger.
func NewLogSink(logger logrus.FieldLogger) *LogSink { return audit.NewLogSink(logger) }
