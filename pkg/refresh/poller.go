package refresh

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/matzehuels/zonemap/pkg/errors"
)

// DefaultTimeout bounds one scheduled run.
const DefaultTimeout = 30 * time.Second

// Poller runs a [Refresher] on a cron schedule. Runs never overlap; a tick
// that arrives while the previous run is still going is skipped.
type Poller struct {
	r       *Refresher
	cron    *cron.Cron
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPoller schedules r with a standard five-field cron spec or a
// descriptor such as "@every 5m". timeout bounds each run; zero means
// [DefaultTimeout].
func NewPoller(r *Refresher, schedule string, timeout time.Duration) (*Poller, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Poller{
		r: r,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(r.logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(r.logger)),
		)),
		timeout: timeout,
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	if _, err := p.cron.AddFunc(schedule, p.tick); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "refresh schedule %q", schedule)
	}
	r.logger.Info("refresh scheduled", "schedule", schedule, "source", r.src.Name())
	return p, nil
}

func (p *Poller) tick() {
	if p.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	if _, err := p.r.Run(ctx); err != nil && p.ctx.Err() == nil {
		p.r.logger.Error("scheduled refresh failed", "source", p.r.src.Name(), "err", err)
	}
}

// Start begins running the schedule in the background.
func (p *Poller) Start() { p.cron.Start() }

// Next returns the time of the next scheduled run, or the zero time when
// the poller is not started.
func (p *Poller) Next() time.Time {
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a running refresh and waits for it to return.
func (p *Poller) Stop() {
	p.cancel()
	<-p.cron.Stop().Done()
}
