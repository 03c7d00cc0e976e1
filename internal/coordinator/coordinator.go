// Package coordinator owns the ordered startup and shutdown of the
// long-running components (health monitor, CDC relay) and periodically
// logs the aggregated system health.
package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/health"
)

// Relay is satisfied by both the streaming and legacy polling variants.
type Relay interface {
	Start(ctx context.Context) error
}

// Coordinator sequences startup/shutdown and watches system health.
type Coordinator struct {
	monitor  *health.Monitor
	relay    Relay
	tick     time.Duration
	relayErr chan error
}

// New builds a Coordinator. monitor must already be constructed (but not
// yet running); relay is whichever CDC variant is configured.
func New(monitor *health.Monitor, relay Relay, tick time.Duration) *Coordinator {
	return &Coordinator{
		monitor:  monitor,
		relay:    relay,
		tick:     tick,
		relayErr: make(chan error, 1),
	}
}

// Run starts the health monitor, then the relay, reporting each healthy
// once started, and blocks logging periodic snapshots until ctx is
// cancelled or the relay exits with a non-cancellation error. On return
// it shuts the relay and monitor down in reverse start order.
func (c *Coordinator) Run(ctx context.Context) error {
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go c.monitor.Run(monitorCtx)
	c.monitor.UpdateHealth("health_monitor", health.Healthy, "", nil)
	log.Println("coordinator: health monitor started")

	relayCtx, stopRelay := context.WithCancel(ctx)
	go func() {
		if err := c.relay.Start(relayCtx); err != nil && err != context.Canceled {
			c.relayErr <- err
		}
	}()
	c.monitor.UpdateHealth("cdc_processor", health.Healthy, "", nil)
	log.Println("coordinator: cdc relay started")

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	var runErr error
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		case err := <-c.relayErr:
			log.Printf("coordinator: cdc relay failed: %v", err)
			runErr = err
		case <-ticker.C:
			c.logSnapshot(ctx)
			continue
		}
		break
	}

	stopRelay()
	log.Println("coordinator: cdc relay stopped")

	stopMonitor()
	c.monitor.Stop()
	log.Println("coordinator: health monitor stopped")

	if runErr == context.Canceled {
		return nil
	}
	return runErr
}

func (c *Coordinator) logSnapshot(ctx context.Context) {
	snapCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	snap, err := c.monitor.GetSystemHealth(snapCtx)
	if err != nil {
		log.Printf("coordinator: health snapshot unavailable: %v", err)
		return
	}

	switch snap.Overall {
	case health.Healthy:
		log.Printf("coordinator: system healthy")
	case health.Degraded:
		log.Printf("coordinator: system degraded: %s", snap.OverallMessage)
	default:
		log.Printf("coordinator: system unhealthy: %s", snap.OverallMessage)
	}
}
