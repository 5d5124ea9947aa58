package rebuttal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Documents holds the extracted text of each uploaded document, keyed by
// role. Empty string means not uploaded.
type Documents struct {
	Action    string
	Reference string
	Filed     string
	Pending   string
}

func (d Documents) Text(role DocRole) string {
	switch role {
	case RoleAction:
		return d.Action
	case RoleReference:
		return d.Reference
	case RoleFiled:
		return d.Filed
	case RolePending:
		return d.Pending
	}
	return ""
}

func (d Documents) Has(role DocRole) bool {
	return strings.TrimSpace(d.Text(role)) != ""
}

// StageProgressFn receives a line of progress per stage boundary.
type StageProgressFn func(stage Stage, message string)

// Pipeline runs the analysis stages over a state record. Stages are gated
// strictly: a stage runs only when its predecessors have results and its
// document is present. Re-running a stage replaces that stage's result and
// leaves later results in place.
type Pipeline struct {
	runner StageRunner
	tracer trace.Tracer
}

func NewPipeline(runner StageRunner) *Pipeline {
	return &Pipeline{
		runner: runner,
		tracer: otel.Tracer("rebuttal"),
	}
}

// CanRun reports whether stage is enabled for the given state and
// documents; a nil error means enabled.
func (p *Pipeline) CanRun(stage Stage, st State, docs Documents) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage %q", stage)
	}
	ge := &GateError{Stage: stage}
	for _, pred := range stage.Predecessors() {
		if !st.Completed(pred) {
			ge.Missing = append(ge.Missing, pred)
		}
	}
	if role := stage.RequiredDocument(); !docs.Has(role) {
		ge.MissingDocs = append(ge.MissingDocs, role)
	}
	if len(ge.Missing) > 0 || len(ge.MissingDocs) > 0 {
		return ge
	}
	return nil
}

// RunStage executes one stage and returns the state with that stage's
// result replaced. The input state is not mutated. Errors are wrapped in
// StageError; gate failures return GateError unwrapped.
func (p *Pipeline) RunStage(ctx context.Context, stage Stage, st State, docs Documents) (State, error) {
	if err := p.CanRun(stage, st, docs); err != nil {
		return st, err
	}

	ctx, span := p.tracer.Start(ctx, "stage."+string(stage),
		trace.WithAttributes(attribute.String("rebuttal.stage", string(stage))))
	defer span.End()
	started := time.Now()

	var err error
	switch stage {
	case StageDomainExpertise:
		var out ExpertiseResult
		out, err = p.runner.RunDomainExpertise(ctx, docs.Action)
		if err == nil {
			st.Expertise = &out
		}
	case StageConflictExtraction:
		var out ConflictResult
		out, err = p.runner.RunConflictExtraction(ctx, personaOf(st), docs.Action)
		if err == nil {
			st.Conflict = &out
		}
	case StageFigureAnalysis:
		var out FigureAnalysis
		out, err = p.runner.RunFigureAnalysis(ctx, personaOf(st), *st.Conflict, docs.Reference)
		if err == nil {
			st.Figures = &out
		}
	case StageFiledApplication:
		var out ApplicationAnalysis
		out, err = p.runner.RunFiledApplication(ctx, personaOf(st), *st.Conflict, *st.Figures, docs.Filed)
		if err == nil {
			st.FiledApplication = &out
		}
	case StagePendingClaims:
		var out ApplicationAnalysis
		out, err = p.runner.RunPendingClaims(ctx, personaOf(st), *st.Conflict, *st.Figures, docs.Pending)
		if err == nil {
			st.PendingClaims = &out
		}
	}

	span.SetAttributes(attribute.Int64("rebuttal.stage_ms", time.Since(started).Milliseconds()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return st, &StageError{Stage: stage, Err: err}
	}
	span.SetStatus(codes.Ok, "")
	return st, nil
}

// RunAll runs every stage whose document is present, in pipeline order,
// stopping at the first failure. The pending-claims stage is skipped
// rather than failed when no pending document was provided.
func (p *Pipeline) RunAll(ctx context.Context, docs Documents, progress StageProgressFn) (State, error) {
	var st State
	for _, stage := range Stages {
		if stage == StagePendingClaims && !docs.Has(RolePending) {
			continue
		}
		emit(progress, stage, fmt.Sprintf("Running %s...", stage))
		started := time.Now()
		next, err := p.RunStage(ctx, stage, st, docs)
		if err != nil {
			return st, err
		}
		st = next
		emit(progress, stage, fmt.Sprintf("%s complete in %s", stage, time.Since(started).Round(time.Millisecond)))
	}
	return st, nil
}

func emit(fn StageProgressFn, stage Stage, msg string) {
	if fn != nil {
		fn(stage, msg)
	}
}
