package jwtpair

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/jwtpair/tracking/memory"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func buildAuditTestAuthenticator(t *testing.T, cfg Config, sink AuditSink) *Authenticator[int64] {
	t.Helper()

	auth, err := New[int64]().
		WithConfig(cfg).
		WithStore(memory.NewStore()).
		WithLogger(discardLogger()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(auth.Close)
	return auth
}

func collectEvents(sink *ChannelSink, want int) []AuditEvent {
	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := TestConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	auth := buildAuditTestAuthenticator(t, cfg, sink)

	pair, err := auth.CreateTokenPair(context.Background(), 7)
	if err != nil {
		t.Fatalf("CreateTokenPair failed: %v", err)
	}
	_, _ = auth.Refresh(context.Background(), pair.Access)
	auth.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
	if auth.AuditDropped() != 0 {
		t.Fatalf("expected zero dropped events, got %d", auth.AuditDropped())
	}
}

func TestAuditCloseDrainsQueuedEvents(t *testing.T) {
	cfg := TestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	sink := &countingSink{}
	auth := buildAuditTestAuthenticator(t, cfg, sink)

	for i := int64(0); i < 5; i++ {
		if _, err := auth.CreateTokenPair(context.Background(), i); err != nil {
			t.Fatalf("CreateTokenPair failed: %v", err)
		}
	}
	auth.Close()
	auth.Close()

	if sink.Count() != 5 {
		t.Fatalf("expected 5 delivered events after Close, got %d", sink.Count())
	}
}

func TestAuditFailureCodes(t *testing.T) {
	cfg := TestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	auth := buildAuditTestAuthenticator(t, cfg, sink)
	ctx := context.Background()

	if _, err := auth.Refresh(ctx, "not.a.token"); err == nil {
		t.Fatal("expected malformed token to fail")
	}

	other, err := New[int64]().
		WithConfig(TestConfig()).
		WithStore(memory.NewStore()).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer other.Close()

	foreign, err := other.CreateTokenPair(ctx, 9)
	if err != nil {
		t.Fatalf("CreateTokenPair failed: %v", err)
	}
	// Same key and issuer, but the identifier was never recorded here.
	if _, err := auth.Refresh(ctx, foreign.Renewal); err == nil {
		t.Fatal("expected unknown identifier to fail")
	}

	events := collectEvents(sink, 2)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != auditEventRefreshInvalid || events[0].Error != string(auditErrMalformed) {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].EventType != auditEventRefreshNotFound || events[1].Error != string(auditErrNotFound) {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if events[1].UserID != "9" || events[1].JTI == "" {
		t.Fatalf("expected not-found event to carry subject and jti, got %+v", events[1])
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventRefreshSuccess,
		UserID:    "u1",
		JTI:       "j-1",
		IP:        "127.0.0.1",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventRefreshReuse})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded.EventType != auditEventRefreshSuccess || decoded.UserID != "u1" || decoded.JTI != "j-1" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestAuditLogSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogSink(logger)

	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventRefreshReuse,
		UserID:    "42",
		JTI:       "j-1",
		Error:     string(auditErrAlreadyUsed),
		Metadata:  map[string]string{"lost_race": "true"},
	})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level.String() != "warning" {
		t.Fatalf("expected warn level for failed event, got %s", entry.Level)
	}
	if entry.Data["event"] != auditEventRefreshReuse || entry.Data["jti"] != "j-1" {
		t.Fatalf("unexpected fields: %v", entry.Data)
	}
	if entry.Data["meta_lost_race"] != "true" {
		t.Fatalf("expected metadata to be flattened, got %v", entry.Data)
	}
}

func TestAuditNoTokensInEvents(t *testing.T) {
	cfg := TestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	var buf syncBuffer
	auth := buildAuditTestAuthenticator(t, cfg, NewJSONWriterSink(&buf))
	ctx := context.Background()

	pair, err := auth.CreateTokenPair(ctx, 42)
	if err != nil {
		t.Fatalf("CreateTokenPair failed: %v", err)
	}
	next, err := auth.Refresh(ctx, pair.Renewal)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	_, _ = auth.Refresh(ctx, pair.Renewal)
	_, _ = auth.Refresh(ctx, pair.Access)
	auth.Close()

	logged := buf.String()
	if logged == "" {
		t.Fatal("expected audit output")
	}
	for _, needle := range []string{pair.Access, pair.Renewal, next.Access, next.Renewal, "secret"} {
		if strings.Contains(logged, needle) {
			t.Fatalf("sensitive value leaked in audit output: %q", needle)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
