package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- Tests ---

func TestCheck_Healthy(t *testing.T) {
	r := New(&mockPinger{}, "redis").Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["index"] != CheckOK {
		t.Errorf("expected index %q, got %q", CheckOK, r.Checks["index"])
	}
	if r.Backend != "redis" {
		t.Errorf("backend = %q", r.Backend)
	}
}

func TestCheck_IndexDown(t *testing.T) {
	p := &mockPinger{pingFn: func(context.Context) error { return errors.New("conn refused") }}
	r := New(p, "elasticsearch").Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["index"] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks["index"])
	}
}

func TestCheck_PingHasDeadline(t *testing.T) {
	var deadline time.Time
	p := &mockPinger{pingFn: func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}}
	New(p, "bolt").Check(context.Background())

	if deadline.IsZero() {
		t.Fatal("expected ping context to carry a deadline")
	}
	if time.Until(deadline) > DefaultTimeout {
		t.Errorf("deadline too far: %v", time.Until(deadline))
	}
}
