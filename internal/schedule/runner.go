package schedule

import (
	"context"
	"log"
	"time"
)

// Invoker receives a due schedule exactly as its payload was stored.
type Invoker interface {
	Invoke(ctx context.Context, s Schedule) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, s Schedule) error

func (f InvokerFunc) Invoke(ctx context.Context, s Schedule) error { return f(ctx, s) }

// Runner polls the schedule store and fires due one-shot schedules.
//
// Delivery is at-least-once with a bounded retry budget: a failed
// invocation is retried on later ticks up to MaxRetries times, and a
// schedule older than MaxEventAge past its due time is dropped without
// another attempt. A schedule deletes itself after a successful fire.
type Runner struct {
	store       Store
	invoker     Invoker
	interval    time.Duration
	maxEventAge time.Duration
	maxRetries  int
	now         func() time.Time
}

type RunnerConfig struct {
	PollInterval time.Duration
	MaxEventAge  time.Duration
	MaxRetries   int
}

func NewRunner(store Store, invoker Invoker, cfg RunnerConfig) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.MaxEventAge <= 0 {
		cfg.MaxEventAge = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Runner{
		store:       store,
		invoker:     invoker,
		interval:    cfg.PollInterval,
		maxEventAge: cfg.MaxEventAge,
		maxRetries:  cfg.MaxRetries,
		now:         time.Now,
	}
}

// Run blocks until ctx is cancelled, firing due schedules every tick.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.FireDue(ctx)
		}
	}
}

// FireDue processes every schedule that is due at this instant.
func (r *Runner) FireDue(ctx context.Context) {
	now := r.now().UTC()
	due, err := r.store.Due(ctx, now.Unix(), 50)
	if err != nil {
		log.Printf("schedule poll failed: %v", err)
		return
	}

	for _, sched := range due {
		age := time.Duration(now.Unix()-sched.DueEpoch) * time.Second
		if age > r.maxEventAge {
			log.Printf("schedule %s dropped: %s past due exceeds max event age", sched.Name, age)
			if err := r.store.Delete(ctx, sched.Name); err != nil {
				log.Printf("drop schedule %s failed: %v", sched.Name, err)
			}
			continue
		}

		if err := r.invoker.Invoke(ctx, sched); err != nil {
			attempts := sched.Attempts + 1
			if attempts > r.maxRetries {
				log.Printf("schedule %s gave up after %d attempts: %v", sched.Name, attempts, err)
				if derr := r.store.Delete(ctx, sched.Name); derr != nil {
					log.Printf("delete exhausted schedule %s failed: %v", sched.Name, derr)
				}
				continue
			}
			log.Printf("schedule %s attempt %d failed, will retry: %v", sched.Name, attempts, err)
			if merr := r.store.MarkAttempt(ctx, sched.Name, attempts); merr != nil {
				log.Printf("mark attempt on %s failed: %v", sched.Name, merr)
			}
			continue
		}

		// One-shot: the schedule deletes itself after firing.
		if err := r.store.Delete(ctx, sched.Name); err != nil {
			log.Printf("delete fired schedule %s failed: %v", sched.Name, err)
		}
	}
}
