package rebuttal

import (
	"context"

	"github.com/joelkehle/office-action-analyzer/internal/llm"
)

// StageRunner runs each analysis stage against a model. One attempt per
// call; a failed call surfaces as a typed error and the caller decides
// whether to re-run.
type StageRunner interface {
	RunDomainExpertise(ctx context.Context, actionText string) (ExpertiseResult, error)
	RunConflictExtraction(ctx context.Context, persona, actionText string) (ConflictResult, error)
	RunFigureAnalysis(ctx context.Context, persona string, conflict ConflictResult, referenceText string) (FigureAnalysis, error)
	RunFiledApplication(ctx context.Context, persona string, conflict ConflictResult, figures FigureAnalysis, filedText string) (ApplicationAnalysis, error)
	RunPendingClaims(ctx context.Context, persona string, conflict ConflictResult, figures FigureAnalysis, pendingText string) (ApplicationAnalysis, error)
}

// LLMStageRunner implements StageRunner over a chat completer.
type LLMStageRunner struct {
	completer llm.Completer
}

func NewLLMStageRunner(c llm.Completer) *LLMStageRunner {
	return &LLMStageRunner{completer: c}
}

func (r *LLMStageRunner) complete(ctx context.Context, p Prompt) (string, error) {
	return r.completer.Complete(ctx, p.System, p.User)
}

func (r *LLMStageRunner) RunDomainExpertise(ctx context.Context, actionText string) (ExpertiseResult, error) {
	reply, err := r.complete(ctx, BuildExpertisePrompt(actionText))
	if err != nil {
		return ExpertiseResult{}, err
	}
	return ParseExpertiseReply(reply)
}

func (r *LLMStageRunner) RunConflictExtraction(ctx context.Context, persona, actionText string) (ConflictResult, error) {
	reply, err := r.complete(ctx, BuildConflictPrompt(persona, actionText))
	if err != nil {
		return ConflictResult{}, err
	}
	return ParseConflictReply(reply)
}

func (r *LLMStageRunner) RunFigureAnalysis(ctx context.Context, persona string, conflict ConflictResult, referenceText string) (FigureAnalysis, error) {
	reply, err := r.complete(ctx, BuildFigurePrompt(persona, conflict, referenceText))
	if err != nil {
		return FigureAnalysis{}, err
	}
	return ParseFigureReply(reply)
}

func (r *LLMStageRunner) RunFiledApplication(ctx context.Context, persona string, conflict ConflictResult, figures FigureAnalysis, filedText string) (ApplicationAnalysis, error) {
	reply, err := r.complete(ctx, BuildFiledApplicationPrompt(persona, conflict, figures, filedText))
	if err != nil {
		return ApplicationAnalysis{}, err
	}
	return ParseApplicationReply(reply)
}

func (r *LLMStageRunner) RunPendingClaims(ctx context.Context, persona string, conflict ConflictResult, figures FigureAnalysis, pendingText string) (ApplicationAnalysis, error) {
	reply, err := r.complete(ctx, BuildPendingClaimsPrompt(persona, conflict, figures, pendingText))
	if err != nil {
		return ApplicationAnalysis{}, err
	}
	return ParseApplicationReply(reply)
}

// personaOf returns the persona carried by a state, defaulting when
// domain-expertise detection produced nothing usable.
func personaOf(st State) string {
	if st.Expertise != nil && st.Expertise.Persona != "" {
		return st.Expertise.Persona
	}
	return DefaultPersona
}

var _ StageRunner = (*LLMStageRunner)(nil)
