package rebuttal

import (
	"context"
	"errors"
	"testing"
)

type mockRunner struct {
	expertise ExpertiseResult
	conflict  ConflictResult
	figures   FigureAnalysis
	filed     ApplicationAnalysis
	pending   ApplicationAnalysis
	err       map[Stage]error
	calls     map[Stage]int
	personas  []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		expertise: ExpertiseResult{Field: "optics", Persona: "You are a patent attorney specializing in optics."},
		conflict:  ConflictResult{FoundationalClaim: "Claim 1", FigureText: NoFiguresRefd, Text: "cited text"},
		figures:   FigureAnalysis{ExtractedParagraphs: []string{"para"}},
		filed:     ApplicationAnalysis{Conclusion: "not justified"},
		pending:   ApplicationAnalysis{Conclusion: "still not justified"},
		err:       map[Stage]error{},
		calls:     map[Stage]int{},
	}
}

func (m *mockRunner) RunDomainExpertise(_ context.Context, _ string) (ExpertiseResult, error) {
	m.calls[StageDomainExpertise]++
	return m.expertise, m.err[StageDomainExpertise]
}

func (m *mockRunner) RunConflictExtraction(_ context.Context, persona, _ string) (ConflictResult, error) {
	m.calls[StageConflictExtraction]++
	m.personas = append(m.personas, persona)
	return m.conflict, m.err[StageConflictExtraction]
}

func (m *mockRunner) RunFigureAnalysis(_ context.Context, persona string, _ ConflictResult, _ string) (FigureAnalysis, error) {
	m.calls[StageFigureAnalysis]++
	m.personas = append(m.personas, persona)
	return m.figures, m.err[StageFigureAnalysis]
}

func (m *mockRunner) RunFiledApplication(_ context.Context, persona string, _ ConflictResult, _ FigureAnalysis, _ string) (ApplicationAnalysis, error) {
	m.calls[StageFiledApplication]++
	m.personas = append(m.personas, persona)
	return m.filed, m.err[StageFiledApplication]
}

func (m *mockRunner) RunPendingClaims(_ context.Context, persona string, _ ConflictResult, _ FigureAnalysis, _ string) (ApplicationAnalysis, error) {
	m.calls[StagePendingClaims]++
	m.personas = append(m.personas, persona)
	return m.pending, m.err[StagePendingClaims]
}

func allDocs() Documents {
	return Documents{
		Action:    "office action text",
		Reference: "reference text",
		Filed:     "filed application text",
		Pending:   "pending claims text",
	}
}

func TestRunStageGating(t *testing.T) {
	p := NewPipeline(newMockRunner())

	// Conflict extraction before domain expertise is blocked.
	_, err := p.RunStage(context.Background(), StageConflictExtraction, State{}, allDocs())
	var ge *GateError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GateError", err)
	}
	if len(ge.Missing) != 1 || ge.Missing[0] != StageDomainExpertise {
		t.Fatalf("missing = %v", ge.Missing)
	}

	// Domain expertise without an action document is blocked.
	_, err = p.RunStage(context.Background(), StageDomainExpertise, State{}, Documents{})
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GateError", err)
	}
	if len(ge.MissingDocs) != 1 || ge.MissingDocs[0] != RoleAction {
		t.Fatalf("missing docs = %v", ge.MissingDocs)
	}
}

func TestRunStageSequence(t *testing.T) {
	m := newMockRunner()
	p := NewPipeline(m)
	docs := allDocs()
	st := State{}

	for _, stage := range Stages {
		var err error
		st, err = p.RunStage(context.Background(), stage, st, docs)
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		if !st.Completed(stage) {
			t.Fatalf("%s not completed", stage)
		}
	}
	if st.PendingClaims.Conclusion != "still not justified" {
		t.Fatalf("pending conclusion = %q", st.PendingClaims.Conclusion)
	}
	// Every post-expertise stage received the detected persona.
	for i, persona := range m.personas {
		if persona != m.expertise.Persona {
			t.Fatalf("persona[%d] = %q", i, persona)
		}
	}
}

func TestRunStageFailureLeavesStateIntact(t *testing.T) {
	m := newMockRunner()
	m.err[StageConflictExtraction] = errors.New("model unavailable")
	p := NewPipeline(m)
	docs := allDocs()

	st, err := p.RunStage(context.Background(), StageDomainExpertise, State{}, docs)
	if err != nil {
		t.Fatalf("expertise: %v", err)
	}
	got, err := p.RunStage(context.Background(), StageConflictExtraction, st, docs)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageConflictExtraction {
		t.Fatalf("err = %v", err)
	}
	if got.Conflict != nil {
		t.Fatal("failed stage stored a result")
	}
	if got.Expertise == nil {
		t.Fatal("earlier result lost")
	}
}

// Re-running an earlier stage replaces its result and does not clear the
// results of later stages.
func TestRerunKeepsLaterResults(t *testing.T) {
	m := newMockRunner()
	p := NewPipeline(m)
	docs := allDocs()

	st, err := p.RunAll(context.Background(), docs, nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	m.conflict.FoundationalClaim = "Claim 7"
	st, err = p.RunStage(context.Background(), StageConflictExtraction, st, docs)
	if err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if st.Conflict.FoundationalClaim != "Claim 7" {
		t.Fatalf("conflict not replaced: %q", st.Conflict.FoundationalClaim)
	}
	if st.Figures == nil || st.FiledApplication == nil || st.PendingClaims == nil {
		t.Fatal("later results cleared by re-run")
	}
}

func TestRunAllSkipsPendingWithoutDocument(t *testing.T) {
	m := newMockRunner()
	p := NewPipeline(m)
	docs := allDocs()
	docs.Pending = ""

	st, err := p.RunAll(context.Background(), docs, nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if st.PendingClaims != nil {
		t.Fatal("pending stage ran without a pending document")
	}
	if m.calls[StagePendingClaims] != 0 {
		t.Fatalf("pending calls = %d", m.calls[StagePendingClaims])
	}
	if st.FiledApplication == nil {
		t.Fatal("filed stage missing")
	}
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	m := newMockRunner()
	m.err[StageFigureAnalysis] = errors.New("bad reply")
	p := NewPipeline(m)

	st, err := p.RunAll(context.Background(), allDocs(), nil)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageFigureAnalysis {
		t.Fatalf("err = %v", err)
	}
	if st.Conflict == nil {
		t.Fatal("completed results lost on failure")
	}
	if m.calls[StageFiledApplication] != 0 {
		t.Fatal("later stage ran after failure")
	}
}

func TestFinalAnalysis(t *testing.T) {
	st := State{FiledApplication: &ApplicationAnalysis{Conclusion: "filed"}}
	a, stage := st.FinalAnalysis()
	if stage != StageFiledApplication || a.Conclusion != "filed" {
		t.Fatalf("got %v %q", stage, a.Conclusion)
	}
	st.PendingClaims = &ApplicationAnalysis{Conclusion: "pending"}
	a, stage = st.FinalAnalysis()
	if stage != StagePendingClaims || a.Conclusion != "pending" {
		t.Fatalf("got %v %q", stage, a.Conclusion)
	}
}
