// Package health aggregates per-component status into one system-wide
// snapshot. It follows an inbox-per-component pattern: one goroutine
// owns the component map and serializes every read and write through
// typed channels rather than a mutex, so UpdateHealth calls never block
// on a snapshot read or vice versa.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/metrics"
)

// Status is a component's (or the system's) health tier.
type Status int

const (
	Unhealthy Status = iota
	Degraded
	Healthy
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Degraded:
		return "Degraded"
	default:
		return "Unhealthy"
	}
}

// ComponentHealth is one component's latest reported state.
type ComponentHealth struct {
	Status    Status
	Message   string
	LastCheck time.Time
	Details   map[string]string
}

// Snapshot is the aggregated view returned by GetSystemHealth.
type Snapshot struct {
	Components     map[string]ComponentHealth
	Overall        Status
	OverallMessage string
}

type updateMsg struct {
	component string
	status    Status
	message   string
	details   map[string]string
}

type queryMsg struct {
	reply chan Snapshot
}

// CircuitProber reports the broker client's current circuit state so
// the monitor can self-report a "redpanda"-keyed status.
type CircuitProber func() gobreaker.State

// Monitor is the health-aggregation actor.
type Monitor struct {
	updates chan updateMsg
	queries chan queryMsg
	done    chan struct{}
	stopped chan struct{}
	tick    time.Duration
	probe   CircuitProber
}

// NewMonitor constructs a Monitor. probe may be nil to skip the
// periodic broker self-report (useful in tests).
func NewMonitor(tick time.Duration, probe CircuitProber) *Monitor {
	return &Monitor{
		updates: make(chan updateMsg, 32),
		queries: make(chan queryMsg),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		tick:    tick,
		probe:   probe,
	}
}

// Run owns the component map and must be started in its own goroutine.
// It exits once Stop's signal is observed and the in-flight tick (if
// any) finishes.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.stopped)

	components := map[string]ComponentHealth{}
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return

		case u := <-m.updates:
			metrics.ActorMessagesReceivedTotal.WithLabelValues("health_monitor", "UpdateHealth").Inc()
			components[u.component] = ComponentHealth{
				Status:    u.status,
				Message:   u.message,
				LastCheck: time.Now(),
				Details:   u.details,
			}
			metrics.ActorHealthStatus.WithLabelValues(u.component).Set(float64(u.status))

		case q := <-m.queries:
			q.reply <- snapshotOf(components)

		case <-ticker.C:
			if m.probe != nil {
				state := m.probe()
				status := statusForCircuit(state)
				components["redpanda"] = ComponentHealth{
					Status:    status,
					Message:   messageForCircuit(state),
					LastCheck: time.Now(),
				}
				metrics.ActorHealthStatus.WithLabelValues("redpanda").Set(float64(status))
			}
		}
	}
}

// Stop requests orderly shutdown; it returns once Run has exited.
func (m *Monitor) Stop() {
	close(m.done)
	<-m.stopped
}

// UpdateHealth is fire-and-forget: callers never block on the monitor's
// internal processing.
func (m *Monitor) UpdateHealth(component string, status Status, message string, details map[string]string) {
	select {
	case m.updates <- updateMsg{component: component, status: status, message: message, details: details}:
		metrics.ActorMessagesSentTotal.WithLabelValues(component, "UpdateHealth").Inc()
	default:
		// Inbox full: drop rather than block the caller. A missed
		// update is superseded by the next one shortly after.
	}
}

// GetSystemHealth is a request/reply query against the owning goroutine.
func (m *Monitor) GetSystemHealth(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case m.queries <- queryMsg{reply: reply}:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func snapshotOf(components map[string]ComponentHealth) Snapshot {
	snap := Snapshot{Components: make(map[string]ComponentHealth, len(components))}
	for name, ch := range components {
		snap.Components[name] = ch
	}

	var unhealthy, degraded []string
	for name, ch := range components {
		switch ch.Status {
		case Unhealthy:
			unhealthy = append(unhealthy, fmt.Sprintf("%s: %s", name, ch.Message))
		case Degraded:
			degraded = append(degraded, name)
		}
	}

	switch {
	case len(unhealthy) > 0:
		sort.Strings(unhealthy)
		snap.Overall = Unhealthy
		snap.OverallMessage = joinSemicolon(unhealthy)
	case len(degraded) > 0:
		snap.Overall = Degraded
		snap.OverallMessage = "Some components degraded"
	default:
		snap.Overall = Healthy
		snap.OverallMessage = ""
	}
	return snap
}

func joinSemicolon(items []string) string {
	out := items[0]
	for _, item := range items[1:] {
		out += "; " + item
	}
	return out
}

func statusForCircuit(state gobreaker.State) Status {
	switch state {
	case gobreaker.StateClosed:
		return Healthy
	case gobreaker.StateHalfOpen:
		return Degraded
	default:
		return Unhealthy
	}
}

func messageForCircuit(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return ""
	case gobreaker.StateHalfOpen:
		return "Circuit breaker half-open"
	default:
		return "Circuit breaker open"
	}
}
