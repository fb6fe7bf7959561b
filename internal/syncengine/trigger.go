package syncengine

import (
	"context"
	"time"

	"github.com/dmateus/lexflash/internal/connectivity"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/worker"
)

const defaultSyncInterval = 5 * time.Minute

// Trigger schedules sync cycles: periodically while online, immediately when
// connectivity comes back, and when the app becomes visible again.
type Trigger struct {
	engine   *Engine
	pool     *worker.Pool
	conn     connectivity.Provider
	bus      *events.Bus
	interval time.Duration
	log      *logger.Logger
}

// NewTrigger wires a Trigger. interval <= 0 falls back to the default.
func NewTrigger(engine *Engine, pool *worker.Pool, conn connectivity.Provider, bus *events.Bus, interval time.Duration) *Trigger {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &Trigger{
		engine:   engine,
		pool:     pool,
		conn:     conn,
		bus:      bus,
		interval: interval,
		log:      logger.Default().WithPrefix("sync-trigger"),
	}
}

// Start launches the periodic timer and subscribes to connectivity and
// visibility events. The returned stop function tears both down; the timer
// also respects ctx cancellation.
func (t *Trigger) Start(ctx context.Context) func() {
	unsubscribeConn := t.conn.Subscribe(func(online bool) {
		if online {
			t.log.Info("connectivity regained, scheduling sync")
			t.schedule()
		}
	})
	unsubscribeVis := t.bus.Subscribe(events.AppVisible, func(events.Event) {
		if t.conn.Online() {
			t.log.Debug("app visible, scheduling sync")
			t.schedule()
		}
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if t.conn.Online() {
					t.schedule()
				}
			}
		}
	}()

	return func() {
		close(done)
		unsubscribeConn()
		unsubscribeVis()
	}
}

func (t *Trigger) schedule() {
	t.pool.Submit(syncJob{engine: t.engine})
}

type syncJob struct {
	engine *Engine
}

func (j syncJob) Name() string { return "sync-cycle" }

func (j syncJob) Run(ctx context.Context) error {
	_, err := j.engine.SyncAll(ctx)
	return err
}
