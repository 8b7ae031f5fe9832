package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-merit/infrastructure/engines"
	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

var coordinatorValidator = validator.New()

// CoordinatorConfig bounds the coordinator's batch concurrency.
type CoordinatorConfig struct {
	// MaxConcurrency caps how many evaluees are recomputed in parallel
	// during a batch run.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=64"`
}

// DefaultCoordinatorConfig returns batch settings sized for a typical
// school-wide cycle close.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{MaxConcurrency: 8}
}

// CoordinatorDeps carries the collaborator ports the coordinator forwards
// work to. Source and Results are required; the rest are optional and
// skipped when nil.
type CoordinatorDeps struct {
	Source   ports.SnapshotSource
	Results  ports.ResultSink
	Alerts   ports.AlertSink
	Metrics  ports.MetricsCollector
	Insights ports.InsightsGenerator
}

// Coordinator owns the concurrency discipline around aggregation: writes
// for one (cycle, evaluee) pair are serialized through keyed locks, while
// distinct evaluees recompute in parallel. The engines stay pure; all I/O
// flows through the injected ports.
type Coordinator struct {
	aggregation *engines.AggregationEngine
	deps        CoordinatorDeps
	config      CoordinatorConfig

	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex

	// now is injectable so recomputation stays deterministic in tests.
	now func() time.Time
}

type lockKey struct {
	cycleID   uuid.UUID
	evalueeID uuid.UUID
}

// NewCoordinator creates a Coordinator around the given aggregation engine.
func NewCoordinator(
	aggregation *engines.AggregationEngine,
	deps CoordinatorDeps,
	config CoordinatorConfig,
) (*Coordinator, error) {
	if aggregation == nil {
		return nil, fmt.Errorf("aggregation engine is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	if deps.Results == nil {
		return nil, fmt.Errorf("result sink is required")
	}
	if err := coordinatorValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &Coordinator{
		aggregation: aggregation,
		deps:        deps,
		config:      config,
		locks:       make(map[lockKey]*sync.Mutex),
		now:         time.Now,
	}, nil
}

// Recompute loads the snapshot for one evaluee, recomputes the aggregated
// result, and forwards it to the configured sinks. Concurrent calls for the
// same (cycle, evaluee) pair are serialized; calls for distinct pairs are
// not.
//
// An incomplete snapshot is not a failure: the partial result is still
// persisted and returned together with the incomplete-input error so
// callers can distinguish the two outcomes.
func (c *Coordinator) Recompute(ctx context.Context, cycleID, evalueeID uuid.UUID) (domain.EvaluationResult, error) {
	lock := c.lockFor(cycleID, evalueeID)
	lock.Lock()
	defer lock.Unlock()

	started := c.now()

	snap, err := c.deps.Source.Snapshot(ctx, cycleID, evalueeID)
	if err != nil {
		c.recordCounter("evaluation_recompute_total", "snapshot_failed")
		return domain.EvaluationResult{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	result, alerts, recomputeErr := c.aggregation.Recompute(ctx, snap, c.now())
	if recomputeErr != nil && !errors.Is(recomputeErr, domain.ErrIncompleteInput) {
		c.recordCounter("evaluation_recompute_total", "failed")
		return domain.EvaluationResult{}, recomputeErr
	}

	c.attachInsights(ctx, &result)

	if err := c.deps.Results.SaveResult(ctx, result); err != nil {
		c.recordCounter("evaluation_recompute_total", "save_failed")
		return domain.EvaluationResult{}, fmt.Errorf("failed to save result: %w", err)
	}

	if err := c.publishAlerts(ctx, alerts); err != nil {
		return domain.EvaluationResult{}, err
	}

	c.recordOutcome(result, snap.Cycle.Period, started, recomputeErr)

	return result, recomputeErr
}

// RecomputeBatch recomputes every listed evaluee within one cycle, running
// up to MaxConcurrency evaluees in parallel. The first failure cancels the
// remaining work; incomplete snapshots do not count as failures.
func (c *Coordinator) RecomputeBatch(ctx context.Context, cycleID uuid.UUID, evalueeIDs []uuid.UUID) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)

	for _, evalueeID := range evalueeIDs {
		g.Go(func() error {
			_, err := c.Recompute(ctx, cycleID, evalueeID)
			if err != nil && !errors.Is(err, domain.ErrIncompleteInput) {
				return fmt.Errorf("evaluee %s: %w", evalueeID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// lockFor returns the mutex serializing writes for one (cycle, evaluee)
// pair, creating it on first use. Locks are never removed; the key space is
// bounded by the active staff population.
func (c *Coordinator) lockFor(cycleID, evalueeID uuid.UUID) *sync.Mutex {
	key := lockKey{cycleID: cycleID, evalueeID: evalueeID}

	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// attachInsights asks the optional generator for narrative analysis and
// attaches it to the result. Generation failures are recorded but never
// fail the recomputation; scores must not depend on an external service.
func (c *Coordinator) attachInsights(ctx context.Context, result *domain.EvaluationResult) {
	if c.deps.Insights == nil || result.FinalScore == nil {
		return
	}

	insights, err := c.deps.Insights.GenerateInsights(ctx, *result)
	if err != nil {
		c.recordCounter("insight_generation_total", "failed")
		return
	}

	result.Insights = insights
	c.recordCounter("insight_generation_total", "success")
}

func (c *Coordinator) publishAlerts(ctx context.Context, alerts []domain.FairnessMetric) error {
	if c.deps.Alerts == nil {
		return nil
	}

	for _, alert := range alerts {
		if err := c.deps.Alerts.PublishAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to publish alert: %w", err)
		}
		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordCounter("fairness_alerts_emitted_total", 1, map[string]string{
				"engine":      c.aggregation.Name(),
				"alert_type":  alert.Type,
				"alert_level": alert.AlertLevel,
			})
		}
	}

	return nil
}

func (c *Coordinator) recordOutcome(result domain.EvaluationResult, period string, started time.Time, recomputeErr error) {
	if c.deps.Metrics == nil {
		return
	}

	status := "success"
	if recomputeErr != nil {
		status = "incomplete"
	}
	c.deps.Metrics.RecordCounter("evaluation_recompute_total", 1, map[string]string{
		"engine": c.aggregation.Name(),
		"status": status,
	})

	c.deps.Metrics.RecordLatency("recompute", c.now().Sub(started), map[string]string{
		"engine": c.aggregation.Name(),
	})

	c.deps.Metrics.RecordGauge("evaluation_completion_percentage", result.CompletionPercentage, map[string]string{
		"engine": c.aggregation.Name(),
		"period": period,
	})

	if result.FinalScore != nil {
		c.deps.Metrics.RecordHistogram("evaluation_final_score", *result.FinalScore, map[string]string{
			"engine": c.aggregation.Name(),
		})
	}
}

func (c *Coordinator) recordCounter(metric, status string) {
	if c.deps.Metrics == nil {
		return
	}
	c.deps.Metrics.RecordCounter(metric, 1, map[string]string{
		"engine": c.aggregation.Name(),
		"status": status,
	})
}
