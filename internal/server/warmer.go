package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/cache"
	"github.com/apexcrm/apex/internal/solver"
	"github.com/apexcrm/apex/internal/store"
)

// Warmer precomputes the analytics answers on a schedule so common metric
// questions are served from the cache. A Redis lock keeps one instance
// warming at a time.
type Warmer struct {
	cfg    config.WarmerConfig
	store  *store.Store
	cache  *cache.ResultCache
	logger *log.Logger
}

func NewWarmer(cfg config.WarmerConfig, st *store.Store, c *cache.ResultCache, logger *log.Logger) *Warmer {
	if logger == nil {
		logger = log.New(log.Writer(), "[WARMER] ", log.LstdFlags)
	}
	return &Warmer{cfg: cfg, store: st, cache: c, logger: logger}
}

// Run blocks, warming on the configured cron schedule until ctx ends.
func (w *Warmer) Run(ctx context.Context) {
	expr, err := cronexpr.Parse(w.cfg.Schedule)
	if err != nil {
		w.logger.Printf("invalid warmer schedule %q: %v", w.cfg.Schedule, err)
		return
	}
	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			w.logger.Printf("warmer schedule has no next run, stopping")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}
		w.warmOnce(ctx)
	}
}

func (w *Warmer) warmOnce(ctx context.Context) {
	lockTTL := w.cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	acquired, release, err := w.cache.Lock(ctx, "analytics-warmer", lockTTL)
	if err != nil {
		w.logger.Printf("warmer lock: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer release()

	type metricJob struct {
		query   string
		metric  string
		unit    string
		compute func(context.Context) (float64, error)
	}
	jobs := []metricJob{
		{"What is our total pipeline value?", "pipeline_value", "currency", w.store.PipelineValue},
		{"What is our lead conversion rate?", "lead_conversion_rate", "percent", w.store.LeadConversionRate},
		{"What is our win rate?", "win_rate", "percent", w.store.WinRate},
	}
	for _, job := range jobs {
		value, err := job.compute(ctx)
		if err != nil {
			w.logger.Printf("warm %s: %v", job.metric, err)
			continue
		}
		var answer string
		if job.unit == "currency" {
			answer = fmt.Sprintf("The %s is $%.2f.", label(job.metric), value)
		} else {
			answer = fmt.Sprintf("The %s is %.1f%%.", label(job.metric), value)
		}
		result := solver.SolveResult{
			RunID:       uuid.NewString(),
			Query:       job.query,
			Answer:      answer,
			ResultCount: 1,
			Steps:       1,
			Termination: solver.TerminationAnswered,
			CreatedAt:   time.Now().UTC(),
		}
		if err := w.cache.Put(ctx, result); err != nil {
			w.logger.Printf("cache %s: %v", job.metric, err)
		}
	}
	w.logger.Printf("analytics warmed")
}

func label(metric string) string {
	switch metric {
	case "pipeline_value":
		return "pipeline value"
	case "lead_conversion_rate":
		return "lead conversion rate"
	case "win_rate":
		return "win rate"
	}
	return metric
}
