package taxreport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"taxreport/internal/logger"
	"taxreport/pkg/models"
)

// ChargeSource loads the charges made within a period.
type ChargeSource interface {
	Load(ctx context.Context, period Period) ([]models.ChargeRecord, error)
}

// Artifact is a rendered report document.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer turns a report into a document.
type Renderer interface {
	Render(report *Report) (Artifact, error)
}

// Publisher makes a report available outside of the generated files (e.g. a spreadsheet).
type Publisher interface {
	Publish(ctx context.Context, report *Report) error
}

// Deliverer sends rendered documents to their recipients.
type Deliverer interface {
	Deliver(ctx context.Context, report *Report, artifacts []Artifact) error
}

// RunStats summarizes a finished run for metrics.
type RunStats struct {
	Result   string
	Charges  int
	Skipped  int
	Duration time.Duration
}

// Run results
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultError   = "error"
)

// RunRecorder observes finished runs.
type RunRecorder interface {
	ObserveRun(stats RunStats)
}

// PipelineConfig holds the collaborators and options of a Pipeline.
type PipelineConfig struct {
	Engine     *Engine
	Source     ChargeSource
	Renderers  []Renderer
	Publishers []Publisher
	Deliverer  Deliverer
	Recorder   RunRecorder

	// OutputDir receives the rendered artifacts. Empty disables writing.
	OutputDir string

	// StrictCurrency aborts runs whose payload contains more than one currency.
	StrictCurrency bool

	// DryRun renders the report but skips writing, publishing and delivery.
	DryRun bool

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Pipeline loads, aggregates, renders and distributes one report per Run.
type Pipeline struct {
	cfg PipelineConfig
}

// RunResult is what a successful run produced.
type RunResult struct {
	Report    *Report
	Artifacts []Artifact
	Files     []string
}

// NewPipeline creates a pipeline from the given configuration.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("pipeline requires an engine")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("pipeline requires a charge source")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg}, nil
}

// Run produces the report for a period. Any failure before rendering aborts
// the run: nothing is written, published or delivered.
func (p *Pipeline) Run(ctx context.Context, period Period) (result *RunResult, err error) {
	const op = "Run"

	start := p.cfg.Now()
	runID := uuid.New()
	log := logger.WithRunID("pipeline", runID.String())

	stats := RunStats{Result: ResultError}
	defer func() {
		stats.Duration = p.cfg.Now().Sub(start)
		if p.cfg.Recorder != nil {
			p.cfg.Recorder.ObserveRun(stats)
		}
	}()

	if err := period.Validate(); err != nil {
		return nil, NewAggregationError(op, err, "invalid period")
	}

	log.Info().
		Time("from", period.From).
		Time("to", period.To).
		Bool("dry_run", p.cfg.DryRun).
		Msg("Computing tax report")

	charges, err := p.cfg.Source.Load(ctx, period)
	if err != nil {
		return nil, WrapAggregationError(op, err, "failed to load charges")
	}
	log.Info().Int("charges", len(charges)).Msg("Charges loaded for period")

	payload, err := p.cfg.Engine.Aggregate(charges)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			stats.Result = ResultEmpty
		}
		return nil, err
	}
	stats.Charges = len(payload.Charges)
	stats.Skipped = payload.Skipped

	if payload.HasMixedCurrency() {
		log.Warn().
			Strs("charge_ids", payload.CurrencyMismatches).
			Str("currency", payload.Totals.TransactionVolume.Currency).
			Msg("Charges settled in a different currency than the report currency")
		if p.cfg.StrictCurrency {
			return nil, NewAggregationError(op, ErrMixedCurrency,
				fmt.Sprintf("%d charges not in %s", len(payload.CurrencyMismatches), payload.Totals.TransactionVolume.Currency))
		}
	}

	report := &Report{
		RunID:       runID,
		Period:      period,
		GeneratedAt: p.cfg.Now().UTC(),
		Payload:     payload,
	}

	log.Info().
		Int("charges", stats.Charges).
		Int("skipped", stats.Skipped).
		Str("transaction_volume", payload.Totals.TransactionVolume.String()).
		Str("fee_volume", payload.Totals.FeeVolume.String()).
		Int("countries", len(payload.Totals.VolumeByCountry)).
		Int("tax_numbers", len(payload.TaxNumberSummaries)).
		Msg("Report aggregated; rendering documents")

	artifacts := make([]Artifact, 0, len(p.cfg.Renderers))
	for _, r := range p.cfg.Renderers {
		artifact, err := r.Render(report)
		if err != nil {
			return nil, WrapAggregationError(op, err, "failed to render report")
		}
		artifacts = append(artifacts, artifact)
	}

	result = &RunResult{Report: report, Artifacts: artifacts}

	if p.cfg.DryRun {
		log.Info().Msg("Dry run mode: no files written, nothing published or delivered")
		stats.Result = ResultSuccess
		return result, nil
	}

	if p.cfg.OutputDir != "" {
		files, err := writeArtifacts(p.cfg.OutputDir, artifacts)
		if err != nil {
			return nil, WrapAggregationError(op, err, "failed to write report documents")
		}
		result.Files = files
		log.Info().Strs("files", files).Msg("Report documents written")
	}

	for _, pub := range p.cfg.Publishers {
		if err := pub.Publish(ctx, report); err != nil {
			return nil, WrapAggregationError(op, err, "failed to publish report")
		}
	}

	if p.cfg.Deliverer != nil {
		if err := p.cfg.Deliverer.Deliver(ctx, report, artifacts); err != nil {
			return nil, WrapAggregationError(op, err, "failed to deliver report")
		}
	}

	stats.Result = ResultSuccess
	log.Info().Msg("Tax report completed")
	return result, nil
}

func writeArtifacts(dir string, artifacts []Artifact) ([]string, error) {
	const op = "writeArtifacts"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: failed to create output directory: %w", op, err)
	}

	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return nil, fmt.Errorf("%s: failed to write %s: %w", op, path, err)
		}
		files = append(files, path)
	}
	return files, nil
}
