package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pkgcron "github.com/todaysafrica/newsroom/internal/pkg/cron"
)

const sweepInterval = 5 * time.Minute

// registerCronJobs registers the scheduled housekeeping jobs.
func (a *App) registerCronJobs() {
	log := a.logger.Named("CronService")

	a.sched.Register(pkgcron.Job{
		Name:        "expire_editor_sessions",
		Description: "Ferme les sessions d'édition inactives",
		Interval:    sweepInterval,
		Fn: func(ctx context.Context) (string, error) {
			n := a.registry.Sweep()
			if n > 0 {
				log.Info("editing sessions expired", zap.Int("count", n))
			}
			return fmt.Sprintf("%d expired, %d open", n, a.registry.Len()), nil
		},
	})

	if a.stores.memSessions == nil {
		return
	}
	a.sched.Register(pkgcron.Job{
		Name:        "sweep_memory_stores",
		Description: "Purge les sessions, le cache et les verrous expirés en mémoire",
		Interval:    sweepInterval,
		Fn: func(ctx context.Context) (string, error) {
			sessions := a.stores.memSessions.Sweep(time.Now())
			entries := a.stores.memCache.Sweep()
			keys := a.stores.memKeys.Sweep()
			if sessions+entries+keys > 0 {
				log.Info("memory stores swept",
					zap.Int("sessions", sessions),
					zap.Int("cache_entries", entries),
					zap.Int("keys", keys))
			}
			return fmt.Sprintf("%d sessions, %d cache entries, %d keys", sessions, entries, keys), nil
		},
	})
}
