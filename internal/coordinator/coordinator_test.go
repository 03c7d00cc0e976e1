package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
)

type fakeRelay struct {
	startErr error
	started  chan struct{}
}

func (r *fakeRelay) Start(ctx context.Context) error {
	close(r.started)
	if r.startErr != nil {
		return r.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_ShutsDownCleanlyOnContextCancel(t *testing.T) {
	monitor := health.NewMonitor(50*time.Millisecond, nil)
	relay := &fakeRelay{started: make(chan struct{})}
	c := New(monitor, relay, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-relay.started
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not shut down in time")
	}
}

func TestRun_PropagatesRelayFailure(t *testing.T) {
	monitor := health.NewMonitor(50*time.Millisecond, nil)
	wantErr := errors.New("broker unreachable")
	relay := &fakeRelay{started: make(chan struct{}), startErr: wantErr}
	c := New(monitor, relay, 20*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	<-relay.started

	select {
	case err := <-done:
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected %v, got %v", wantErr, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not report relay failure in time")
	}
}
