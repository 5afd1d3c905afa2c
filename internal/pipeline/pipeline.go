// Package pipeline runs one ETL pass: ingest, transform, load and KPI views.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fintechbi/internal/config"
	"fintechbi/internal/ingest"
	"fintechbi/internal/observability"
	"fintechbi/internal/transform"
	"fintechbi/internal/warehouse"
	"fintechbi/pkg/errors"
)

// Phase names used in logs and errors
const (
	PhaseIngest    = "ingest"
	PhaseTransform = "transform"
	PhaseLoad      = "load"
	PhaseViews     = "views"
)

// Report summarizes a completed run.
type Report struct {
	RunID     string                  `json:"run_id"`
	Warehouse string                  `json:"warehouse"`
	Sources   map[string]ingest.Stats `json:"sources"`
	Excluded  map[string]int          `json:"excluded"`
	Orphans   int                     `json:"orphans"`
	Loaded    warehouse.LoadResult    `json:"loaded"`
	Duration  time.Duration           `json:"duration"`
}

// Runner executes the pipeline against one configuration.
type Runner struct {
	cfg         *config.Config
	logger      *observability.Logger
	credentials warehouse.CredentialSource
	metrics     *observability.PipelineMetrics
	now         func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger; runs are silent without one.
func WithLogger(logger *observability.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithCredentials sets the store used for warehouse passwords.
func WithCredentials(credentials warehouse.CredentialSource) Option {
	return func(r *Runner) { r.credentials = credentials }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner for cfg
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		logger:  observability.Discard(),
		metrics: observability.NewPipelineMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the metrics recorded by the last run
func (r *Runner) Metrics() *observability.PipelineMetrics {
	return r.metrics
}

// Run performs one full pass. A failing phase aborts the run; tables
// committed by earlier phases stay as they are.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	started := r.now()
	runID := uuid.New().String()
	logger := r.logger.WithField("run_id", runID)
	r.metrics = observability.NewPipelineMetrics()

	defer func() {
		duration := r.now().Sub(started)
		r.metrics.ObserveRun(duration, err == nil, r.now())
		if report != nil {
			report.Duration = duration
		}
		if path := r.cfg.Metrics.Textfile; path != "" {
			if werr := r.metrics.WriteTextfile(path); werr != nil {
				logger.WithField("path", path).Warnf("Failed to write metrics textfile: %v", werr)
			}
		}
		if err != nil {
			logger.WithField("error_code", string(errors.GetErrorCode(err))).Errorf("Run failed: %v", err)
		}
	}()

	report = &Report{
		RunID:   runID,
		Sources: make(map[string]ingest.Stats, 3),
	}
	logger.Info("Starting pipeline run")

	batch, err := r.ingest(logger.WithField("phase", PhaseIngest), report)
	if err != nil {
		return nil, phaseError(PhaseIngest, err)
	}

	result := transform.Join(batch.Transactions, batch.Users, batch.Products)
	report.Excluded = result.Excluded
	report.Orphans = result.Orphans
	for status, n := range result.Excluded {
		r.metrics.RowsDropped.WithLabelValues(ingest.SourceTransactions, observability.ReasonStatus).Add(float64(n))
		logger.WithFields(map[string]interface{}{
			"phase":  PhaseTransform,
			"status": status,
			"rows":   n,
		}).Info("Excluded transactions with ineligible status")
	}
	if result.Orphans > 0 {
		logger.WithField("phase", PhaseTransform).Warnf("%d facts reference users or products missing from this batch", result.Orphans)
	}

	wh, err := warehouse.Open(ctx, r.cfg.Warehouse.URL, warehouse.Options{
		Strategy:    r.cfg.Warehouse.UpsertStrategy,
		Credential:  r.cfg.Warehouse.Credential,
		Credentials: r.credentials,
		Logger:      logger.WithField("phase", PhaseLoad),
	})
	if err != nil {
		return nil, phaseError(PhaseLoad, err)
	}
	defer wh.Close()

	if target, perr := warehouse.ParseURL(r.cfg.Warehouse.URL); perr == nil {
		report.Warehouse = target.Redacted()
	}

	loaded, err := wh.Load(ctx, result.Batch)
	for table, n := range loaded {
		r.metrics.RowsLoaded.WithLabelValues(table).Add(float64(n))
	}
	if err != nil {
		return nil, phaseError(PhaseLoad, err)
	}
	report.Loaded = loaded

	if err := wh.CreateKPIViews(ctx, r.cfg.KPI.FeeRate); err != nil {
		return nil, phaseError(PhaseViews, err)
	}
	logger.WithField("phase", PhaseViews).Info("KPI views refreshed")

	logger.InfoWithFields("Pipeline run complete", map[string]interface{}{
		"users":        loaded[warehouse.TableUsers],
		"products":     loaded[warehouse.TableProducts],
		"transactions": loaded[warehouse.TableTransactions],
	})
	return report, nil
}

func (r *Runner) ingest(logger *observability.Logger, report *Report) (transform.Batch, error) {
	var batch transform.Batch
	src := r.cfg.Sources

	opts := ingest.Options{Mode: r.cfg.Validation.Mode, SampleSize: r.cfg.Validation.SampleSize}
	txns, stats, err := ingest.LoadTransactions(src.TransactionsCSV, opts)
	if err != nil {
		return batch, err
	}
	r.observe(logger, ingest.SourceTransactions, stats, report)

	users, stats, err := ingest.LoadUsers(src.UsersJSON)
	if err != nil {
		return batch, err
	}
	r.observe(logger, ingest.SourceUsers, stats, report)

	products, stats, err := ingest.LoadProducts(src.ProductsCSV)
	if err != nil {
		return batch, err
	}
	r.observe(logger, ingest.SourceProducts, stats, report)

	batch.Transactions = txns
	batch.Users = users
	batch.Products = products
	return batch, nil
}

func (r *Runner) observe(logger *observability.Logger, source string, stats ingest.Stats, report *Report) {
	report.Sources[source] = stats
	r.metrics.ObserveSource(source, stats.Read, stats.Duplicates, stats.Malformed)
	logger.InfoWithFields("Ingested source", map[string]interface{}{
		"source":     source,
		"read":       stats.Read,
		"duplicates": stats.Duplicates,
		"malformed":  stats.Malformed,
		"kept":       stats.Kept,
	})
}

// phaseError tags err with the phase it came from, keeping its code.
func phaseError(phase string, err error) error {
	return errors.Wrap(err, errors.GetErrorCode(err), "Pipeline failed during "+phase).
		WithContext("phase", phase)
}
