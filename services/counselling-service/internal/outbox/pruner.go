package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically removes published outbox rows older than the retention.
type Pruner struct {
	prune     func(context.Context, time.Time) (int64, error)
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
}

func NewPruner(repo *Repository, logger *slog.Logger, retention time.Duration) *Pruner {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Pruner{prune: repo.PrunePublished, logger: logger, retention: retention, now: time.Now}
}

// Start schedules the prune job on spec (standard cron or a descriptor such as "@daily")
// and stops the scheduler when ctx ends.
func (p *Pruner) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { p.RunOnce(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	p.logger.Info("outbox pruner scheduled", "schedule", spec, "retention", p.retention.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}

func (p *Pruner) RunOnce(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.prune(ctx, cutoff)
	if err != nil {
		p.logger.Error("outbox prune failed", "err", err)
		return
	}
	p.logger.Info("outbox pruned", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
}
