// Package pipeline runs the preprocessing stages over a panel.
//
// Every series moves independently through frequency validation, its
// transformation code, the seasonality verdict, seasonal adjustment and
// standardization. A series that fails a stage is excluded with the stage
// and error kind recorded; the others carry on. Surviving series are grouped
// and assembled into the model-ready matrix. Only structural problems, such
// as an empty panel or a missing code map, fail the run itself.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/gofredmd/deseason"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/factors"
	"github.com/sartorproj/gofredmd/seasonality"
	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

// TracerName is the instrumentation name used when Options.Tracer is nil.
const TracerName = "github.com/sartorproj/gofredmd/pipeline"

// Input is the data for one run.
type Input struct {
	Panel *timeseries.Panel
	Codes tcode.Map
	// Groups defaults to factors.DefaultGroupMap when nil.
	Groups *factors.GroupMap
}

// Orchestrator runs the pipeline with fixed options.
type Orchestrator struct {
	opts   Options
	tracer trace.Tracer
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.Balance == "" {
		opts.Balance = factors.BalanceNone
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Orchestrator{opts: opts, tracer: tracer}, nil
}

// Run processes every series of in.Panel. Cancelling ctx stops series that
// have not started and fails the run.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Panel == nil || in.Panel.Len() == 0 || in.Panel.Rows() == 0 {
		return nil, fmt.Errorf("pipeline: %w", errs.ErrEmptyPanel)
	}
	if in.Codes == nil {
		return nil, fmt.Errorf("pipeline: %w", errs.ErrMissingCodeMap)
	}
	groups := in.Groups
	if groups == nil {
		groups = factors.DefaultGroupMap()
	}

	res := &Result{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now(),
		Adjustments: map[string]*deseason.Result{},
	}
	log := o.opts.Logger.With().Str("run_id", res.RunID).Logger()
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.Int("run.series", in.Panel.Len()),
		attribute.Int("run.rows", in.Panel.Rows()),
	))
	defer span.End()

	log.Info().
		Int("series", in.Panel.Len()).
		Int("rows", in.Panel.Rows()).
		Int("workers", o.opts.Workers).
		Msg("run started")

	exclude := make(map[string]bool, len(o.opts.Exclude))
	for _, name := range o.opts.Exclude {
		exclude[name] = true
	}

	input := in.Panel.Series()
	slots := make([]outcome, len(input))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, s := range input {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = o.process(gctx, s, in.Codes, in.Panel.Frequency, exclude[s.Name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		log.Warn().Err(err).Msg("run cancelled")
		return nil, fmt.Errorf("pipeline: run %s: %w", res.RunID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: run %s: %w", res.RunID, err)
	}

	if err := o.group(slots, groups, in.Panel.Frequency, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Statuses = make([]Status, len(slots))
	for i, sl := range slots {
		res.Statuses[i] = sl.status
		if sl.adjustment != nil && sl.status.State == StateIncluded {
			res.Adjustments[sl.status.Series] = sl.adjustment
		}
		o.logStatus(log, sl.status)
	}
	res.Summary = summarize(res.Statuses)
	res.FinishedAt = time.Now()
	o.opts.Metrics.observe(res)

	span.SetAttributes(
		attribute.Int("run.included", res.Summary.ByOutcome[OutcomeOK]),
		attribute.Int("run.excluded", res.Summary.ByOutcome[OutcomeFailed]),
		attribute.Int("run.skipped", res.Summary.ByOutcome[OutcomeSkipped]),
	)
	log.Info().
		Int("included", res.Summary.ByOutcome[OutcomeOK]).
		Int("excluded", res.Summary.ByOutcome[OutcomeFailed]).
		Int("skipped", res.Summary.ByOutcome[OutcomeSkipped]).
		Int("seasonal", res.Summary.Seasonal).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("run finished")
	return res, nil
}

// outcome is the private per-series slot written by one worker.
type outcome struct {
	status     Status
	series     *timeseries.Series
	adjustment *deseason.Result
}

// process moves one series through every per-series stage.
func (o *Orchestrator) process(ctx context.Context, s *timeseries.Series, cm tcode.Map, freq timeseries.Frequency, excluded bool) outcome {
	_, span := o.tracer.Start(ctx, "pipeline.series", trace.WithAttributes(
		attribute.String("series", s.Name),
	))
	defer span.End()

	out := o.stages(s, cm, freq, excluded)
	span.SetAttributes(
		attribute.String("series.state", string(out.status.State)),
		attribute.String("series.outcome", string(out.status.Outcome)),
	)
	if out.status.Outcome == OutcomeFailed {
		span.RecordError(out.status.Err)
		span.SetStatus(codes.Error, string(out.status.FailedStage))
	}
	return out
}

// stages runs the per-series stages. freq is the panel frequency; a series
// spaced differently fails validation unless freq is unknown.
func (o *Orchestrator) stages(s *timeseries.Series, cm tcode.Map, freq timeseries.Frequency, excluded bool) outcome {
	out := outcome{status: Status{Series: s.Name, State: StateRaw}}
	st := &out.status
	fail := func(stage Stage, err error) outcome {
		st.exclude(stage, err)
		return out
	}

	if excluded {
		st.skip(StageSelect, "", "excluded by configuration")
		return out
	}
	code, err := cm.Lookup(s.Name)
	if err != nil {
		st.skip(StageSelect, errs.KindOf(err), err.Error())
		st.Err = err
		return out
	}
	st.Code = code

	inferred, err := seasonality.InferFrequency(s, o.opts.Seasonality.FrequencyTolerance)
	if err != nil {
		return fail(StageValidate, err)
	}
	if freq != timeseries.FrequencyUnknown && inferred != freq {
		return fail(StageValidate, errs.NewFrequencyMismatch(s.Name, inferred.Months(), freq.Months()))
	}
	if err := st.advance(StateValidated); err != nil {
		return fail(StageValidate, err)
	}

	transformed, err := tcode.Apply(s, code)
	if err != nil {
		return fail(StageTransform, err)
	}
	if err := st.advance(StateTransformed); err != nil {
		return fail(StageTransform, err)
	}

	verdict, err := seasonality.Classify(transformed, o.opts.Seasonality)
	if err != nil {
		return fail(StageSeasonality, err)
	}
	st.Verdict = &verdict

	adj, err := deseason.Deseasonalize(transformed, verdict, o.opts.Deseason)
	if err != nil {
		return fail(StageDeseasonalize, err)
	}
	st.Method = adj.Method
	next := StatePassthrough
	if adj.Method != deseason.MethodNone {
		next = StateDeseasonalized
		out.adjustment = adj
	}
	if err := st.advance(next); err != nil {
		return fail(StageDeseasonalize, err)
	}

	final := adj.Adjusted
	if o.opts.Standardize {
		z, m, err := factors.Standardize(final, o.opts.Ddof)
		if err != nil {
			return fail(StageStandardize, err)
		}
		st.Mean, st.Std = m.Mean, m.Std
		final = z
		if err := st.advance(StateStandardized); err != nil {
			return fail(StageStandardize, err)
		}
	} else {
		st.Mean, st.Std = final.Mean(), final.Std(o.opts.Ddof)
	}
	out.series = final
	return out
}

// group assigns surviving series to groups and builds the model-ready panel
// and matrix. Series the group map does not know are excluded.
func (o *Orchestrator) group(slots []outcome, gm *factors.GroupMap, freq timeseries.Frequency, res *Result) error {
	var survivors []*timeseries.Series
	for i := range slots {
		sl := &slots[i]
		if sl.series == nil || sl.status.State.Terminal() {
			continue
		}
		if _, ok := gm.Group(sl.status.Series); !ok {
			sl.status.exclude(StageGroup, errs.NewUnknownSeries(sl.status.Series))
			sl.series, sl.adjustment = nil, nil
			continue
		}
		survivors = append(survivors, sl.series)
	}

	if len(survivors) == 0 {
		res.Panel = timeseries.NewPanel(nil, freq)
		res.Grouping = &factors.Grouping{Unmatched: []string{}}
		return nil
	}

	panel, err := timeseries.NewPanelFromSeries(freq, survivors...)
	if err != nil {
		return fmt.Errorf("pipeline: model-ready panel: %w", err)
	}
	grouping, err := factors.GroupBy(panel, gm)
	if err != nil {
		return fmt.Errorf("pipeline: group: %w", err)
	}
	matrix, err := factors.Assemble(panel, grouping)
	if err != nil {
		return fmt.Errorf("pipeline: assemble: %w", err)
	}
	matrix, err = matrix.Balance(o.opts.Balance)
	if err != nil && !errors.Is(err, errs.ErrEmptyPanel) {
		return fmt.Errorf("pipeline: balance: %w", err)
	}

	res.Grouping = grouping
	if matrix != nil {
		res.Matrix = matrix
		if res.Panel, err = matrix.Panel(freq); err != nil {
			return fmt.Errorf("pipeline: model-ready panel: %w", err)
		}
	} else {
		res.Panel, _ = panel.Select(grouping.Columns())
	}

	for i := range slots {
		sl := &slots[i]
		if sl.series == nil || sl.status.State.Terminal() {
			continue
		}
		sl.status.Group, _ = grouping.GroupOf(sl.status.Series)
		if err := sl.status.advance(StateGrouped); err != nil {
			return err
		}
		if err := sl.status.advance(StateIncluded); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) logStatus(log zerolog.Logger, st Status) {
	switch st.Outcome {
	case OutcomeFailed:
		log.Warn().
			Str("series", st.Series).
			Str("stage", string(st.FailedStage)).
			Str("kind", string(st.Kind)).
			Msg(st.Reason)
	case OutcomeSkipped:
		log.Debug().
			Str("series", st.Series).
			Str("kind", string(st.Kind)).
			Msg("series skipped: " + st.Reason)
	default:
		ev := log.Debug().
			Str("series", st.Series).
			Stringer("tcode", st.Code).
			Str("method", string(st.Method)).
			Str("group", st.Group)
		if st.Verdict != nil {
			ev = ev.Bool("seasonal", st.Verdict.IsSeasonal).Float64("statistic", st.Verdict.Statistic)
		}
		ev.Msg("series included")
	}
}
