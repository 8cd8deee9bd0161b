package scheduler

import (
	"context"
	"fmt"
	"time"

	"verge/internal/logger"
)

// Loop runs a task at a fixed interval. The next run is scheduled after the
// previous one returns, so a slow cycle delays rather than overlaps the next.
// Task errors and panics are logged and never stop the loop.
//
// Cancelling the Run context stops the loop at the next sleep boundary. A
// cycle already running keeps its own context, bounded by CycleTimeout, and
// finishes before Run returns.
type Loop struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool
	// CycleTimeout bounds one task run. Zero means Interval.
	CycleTimeout time.Duration

	nowFn func() time.Time
}

func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{Name: name, Interval: interval, RunImmediately: true, nowFn: time.Now}
}

func (l *Loop) Run(ctx context.Context, task func(context.Context) error) error {
	if task == nil {
		return fmt.Errorf("%s: nil task", l.Name)
	}
	if l.Interval <= 0 {
		return fmt.Errorf("%s: invalid interval %s", l.Name, l.Interval)
	}
	if l.nowFn == nil {
		l.nowFn = time.Now
	}
	logger.Infof("%s: started interval=%s", l.Name, l.Interval)

	if l.RunImmediately {
		l.runOnce(ctx, task)
	}
	for {
		timer := time.NewTimer(l.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("%s: stopped", l.Name)
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			logger.Infof("%s: stopped", l.Name)
			return nil
		}
		l.runOnce(ctx, task)
	}
}

func (l *Loop) runOnce(ctx context.Context, task func(context.Context) error) {
	start := l.nowFn()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("%s: cycle panic: %v", l.Name, r)
		}
	}()
	timeout := l.CycleTimeout
	if timeout <= 0 {
		timeout = l.Interval
	}
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := task(cycleCtx); err != nil {
		logger.Errorf("%s: cycle failed after %s: %v", l.Name, l.nowFn().Sub(start).Round(time.Millisecond), err)
		return
	}
	logger.Debugf("%s: cycle done in %s", l.Name, l.nowFn().Sub(start).Round(time.Millisecond))
}
