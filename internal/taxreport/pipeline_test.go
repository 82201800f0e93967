package taxreport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxreport/pkg/models"
)

type fakeSource struct {
	charges []models.ChargeRecord
	err     error
	period  Period
}

func (f *fakeSource) Load(_ context.Context, period Period) ([]models.ChargeRecord, error) {
	f.period = period
	return f.charges, f.err
}

type fakeRenderer struct {
	name  string
	calls int
	err   error
}

func (f *fakeRenderer) Render(report *Report) (Artifact, error) {
	f.calls++
	if f.err != nil {
		return Artifact{}, f.err
	}
	return Artifact{Name: f.name, ContentType: "text/plain", Data: []byte(report.Payload.Totals.TransactionVolume.String())}, nil
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) Publish(context.Context, *Report) error {
	f.calls++
	return f.err
}

type fakeDeliverer struct {
	calls     int
	artifacts []Artifact
	err       error
}

func (f *fakeDeliverer) Deliver(_ context.Context, _ *Report, artifacts []Artifact) error {
	f.calls++
	f.artifacts = artifacts
	return f.err
}

type fakeRecorder struct{ stats []RunStats }

func (f *fakeRecorder) ObserveRun(stats RunStats) { f.stats = append(f.stats, stats) }

type pipelineFixture struct {
	source    *fakeSource
	renderer  *fakeRenderer
	publisher *fakePublisher
	deliverer *fakeDeliverer
	recorder  *fakeRecorder
}

func newPipeline(t *testing.T, charges []models.ChargeRecord, mutate func(*PipelineConfig)) (*Pipeline, *pipelineFixture) {
	t.Helper()

	fx := &pipelineFixture{
		source:    &fakeSource{charges: charges},
		renderer:  &fakeRenderer{name: "report.txt"},
		publisher: &fakePublisher{},
		deliverer: &fakeDeliverer{},
		recorder:  &fakeRecorder{},
	}
	cfg := PipelineConfig{
		Engine:     newTestEngine(t),
		Source:     fx.source,
		Renderers:  []Renderer{fx.renderer},
		Publishers: []Publisher{fx.publisher},
		Deliverer:  fx.deliverer,
		Recorder:   fx.recorder,
		OutputDir:  t.TempDir(),
		Now:        func() time.Time { return time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC) },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	return p, fx
}

func TestPipelineRun(t *testing.T) {
	p, fx := newPipeline(t, scenarioCharges(), nil)

	result, err := p.Run(context.Background(), YearPeriod(2025))
	require.NoError(t, err)

	assert.Equal(t, YearPeriod(2025), fx.source.period)
	assert.Equal(t, 1, fx.renderer.calls)
	assert.Equal(t, 1, fx.publisher.calls)
	assert.Equal(t, 1, fx.deliverer.calls)
	require.Len(t, fx.deliverer.artifacts, 1)

	require.Len(t, result.Files, 1)
	data, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)
	assert.Equal(t, "EUR 150.00", string(data))
	assert.Equal(t, "report.txt", filepath.Base(result.Files[0]))

	require.Len(t, fx.recorder.stats, 1)
	assert.Equal(t, ResultSuccess, fx.recorder.stats[0].Result)
	assert.Equal(t, 2, fx.recorder.stats[0].Charges)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.Report.RunID.String())
}

func TestPipelineEmptyInputStopsBeforeRendering(t *testing.T) {
	p, fx := newPipeline(t, nil, nil)

	_, err := p.Run(context.Background(), YearPeriod(2025))
	require.ErrorIs(t, err, ErrEmptyInput)

	assert.Zero(t, fx.renderer.calls)
	assert.Zero(t, fx.publisher.calls)
	assert.Zero(t, fx.deliverer.calls)
	require.Len(t, fx.recorder.stats, 1)
	assert.Equal(t, ResultEmpty, fx.recorder.stats[0].Result)
}

func TestPipelineSourceError(t *testing.T) {
	p, fx := newPipeline(t, nil, nil)
	fx.source.err = errors.New("database is locked")

	_, err := p.Run(context.Background(), YearPeriod(2025))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Zero(t, fx.renderer.calls)
	assert.Equal(t, ResultError, fx.recorder.stats[0].Result)

	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "Run", aggErr.Op)
	assert.Equal(t, "failed to load charges", aggErr.Details)
	assert.ErrorIs(t, err, fx.source.err)
}

func TestPipelineWrapsCollaboratorErrors(t *testing.T) {
	publishErr := errors.New("quota exceeded")
	p, fx := newPipeline(t, scenarioCharges(), nil)
	fx.publisher.err = publishErr

	_, err := p.Run(context.Background(), YearPeriod(2025))
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "failed to publish report", aggErr.Details)
	assert.ErrorIs(t, err, publishErr)
	assert.Zero(t, fx.deliverer.calls)

	deliverErr := errors.New("mailbox unavailable")
	p, fx = newPipeline(t, scenarioCharges(), nil)
	fx.deliverer.err = deliverErr

	_, err = p.Run(context.Background(), YearPeriod(2025))
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "failed to deliver report", aggErr.Details)
	assert.ErrorIs(t, err, deliverErr)
}

func TestWrapAggregationErrorKeepsExisting(t *testing.T) {
	assert.Nil(t, WrapAggregationError("Run", nil, "unused"))

	inner := NewAggregationError("Aggregate", ErrEmptyInput, "input is empty")
	assert.Same(t, inner, WrapAggregationError("Run", inner, "failed to load charges"))
}

func TestPipelineRenderErrorStopsDelivery(t *testing.T) {
	p, fx := newPipeline(t, scenarioCharges(), nil)
	fx.renderer.err = errors.New("font missing")

	_, err := p.Run(context.Background(), YearPeriod(2025))
	require.Error(t, err)
	assert.Zero(t, fx.publisher.calls)
	assert.Zero(t, fx.deliverer.calls)
}

func TestPipelineStrictCurrency(t *testing.T) {
	charges := scenarioCharges()
	charges[1].Settlement.Currency = "usd"

	p, fx := newPipeline(t, charges, func(cfg *PipelineConfig) { cfg.StrictCurrency = true })
	_, err := p.Run(context.Background(), YearPeriod(2025))
	require.ErrorIs(t, err, ErrMixedCurrency)
	assert.Zero(t, fx.renderer.calls)

	p, fx = newPipeline(t, charges, nil)
	_, err = p.Run(context.Background(), YearPeriod(2025))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.deliverer.calls)
}

func TestPipelineDryRun(t *testing.T) {
	p, fx := newPipeline(t, scenarioCharges(), func(cfg *PipelineConfig) { cfg.DryRun = true })

	result, err := p.Run(context.Background(), YearPeriod(2025))
	require.NoError(t, err)
	assert.Len(t, result.Artifacts, 1)
	assert.Empty(t, result.Files)
	assert.Zero(t, fx.publisher.calls)
	assert.Zero(t, fx.deliverer.calls)
}

func TestPipelineRejectsInvalidPeriod(t *testing.T) {
	p, fx := newPipeline(t, scenarioCharges(), nil)

	period := YearPeriod(2025)
	period.From, period.To = period.To, period.From
	_, err := p.Run(context.Background(), period)
	require.Error(t, err)
	assert.Zero(t, fx.renderer.calls)
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{Source: &fakeSource{}})
	assert.Error(t, err)

	_, err = NewPipeline(PipelineConfig{Engine: NewEngine(nil)})
	assert.Error(t, err)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "2025", YearPeriod(2025).Label())
	assert.Equal(t, "20250101_20260101", YearPeriod(2025).Slug())

	q := Period{
		From: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2025-04-01 to 2025-06-30", q.Label())
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(2025, "", "")
	require.NoError(t, err)
	assert.Equal(t, YearPeriod(2025), p)

	p, err = ParsePeriod(0, "2025-04-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), p.To)
	assert.Equal(t, "2025-04-01 to 2025-06-30", p.Label())

	// a single day
	p, err = ParsePeriod(0, "2025-04-01", "2025-04-01")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, p.To.Sub(p.From))

	for _, tc := range []struct {
		name     string
		year     int
		from, to string
	}{
		{"nothing", 0, "", ""},
		{"only from", 0, "2025-01-01", ""},
		{"year and dates", 2025, "2025-01-01", "2025-02-01"},
		{"bad date", 0, "2025-13-01", "2025-12-31"},
		{"reversed", 0, "2025-06-01", "2025-05-01"},
		{"year out of range", 12, "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePeriod(tc.year, tc.from, tc.to)
			assert.Error(t, err)
		})
	}
}
