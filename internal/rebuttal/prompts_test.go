package rebuttal

import (
	"strings"
	"testing"
)

func TestBuildConflictPromptCarriesPersona(t *testing.T) {
	p := BuildConflictPrompt("You are a patent attorney specializing in optics.", "action text")
	if !strings.Contains(p.System, "specializing in optics") {
		t.Fatalf("system = %q", p.System)
	}
	if !strings.Contains(p.User, "action text") {
		t.Fatal("action text missing from user prompt")
	}
	if !strings.Contains(p.User, "foundational_claim") {
		t.Fatal("schema missing from user prompt")
	}
}

func TestBuildConflictPromptDefaultPersona(t *testing.T) {
	p := BuildConflictPrompt("", "action text")
	if !strings.HasPrefix(p.System, DefaultPersona) {
		t.Fatalf("system = %q", p.System)
	}
}

func TestBuildFigurePromptPlaceholders(t *testing.T) {
	conflict := ConflictResult{FoundationalClaim: "Claim 1"}
	p := BuildFigurePrompt("", conflict, "reference text")
	if !strings.Contains(p.User, NoFiguresRefd) {
		t.Fatalf("missing figures placeholder in %q", p.User)
	}
	if !strings.Contains(p.User, NoTechnicalText) {
		t.Fatalf("missing text placeholder in %q", p.User)
	}

	conflict.FigureText = "FIG. 3 of Smith"
	conflict.Text = "Paragraph [0042]"
	p = BuildFigurePrompt("", conflict, "reference text")
	if strings.Contains(p.User, NoFiguresRefd) || strings.Contains(p.User, NoTechnicalText) {
		t.Fatal("placeholders present despite real sections")
	}
	if !strings.Contains(p.User, "FIG. 3 of Smith") {
		t.Fatal("figure section missing")
	}
}

func TestBuildFiledApplicationPrompt(t *testing.T) {
	conflict := ConflictResult{FoundationalClaim: "Claim 1"}
	figures := FigureAnalysis{
		Figures:             []FigureDetail{{Number: "3", Title: "Array", TechnicalDetails: "details", Importance: "central"}},
		ExtractedParagraphs: []string{"cited paragraph"},
	}
	p := BuildFiledApplicationPrompt("", conflict, figures, "filed text")
	if !strings.Contains(p.System, "PHOSITA") {
		t.Fatalf("system = %q", p.System)
	}
	for _, want := range []string{"Claim 1", "Figure 3: Array", "cited paragraph", "filed text", "U.S.C 102 (Lack of Novelty)", "U.S.C 103 (Obviousness)"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q", want)
		}
	}
}

func TestBuildFiledApplicationPromptNoFigures(t *testing.T) {
	p := BuildFiledApplicationPrompt("", ConflictResult{FoundationalClaim: "Claim 1"}, FigureAnalysis{}, "filed text")
	if !strings.Contains(p.User, NoFigureDetails) {
		t.Fatal("missing figure fallback")
	}
	if !strings.Contains(p.User, NoTechnicalText) {
		t.Fatal("missing text fallback")
	}
}

func TestBuildPendingClaimsPrompt(t *testing.T) {
	p := BuildPendingClaimsPrompt("", ConflictResult{FoundationalClaim: "Claim 1"}, FigureAnalysis{}, "pending text")
	if !strings.Contains(p.User, "pending claims") && !strings.Contains(p.User, "Pending claims") {
		t.Fatalf("user = %q", p.User)
	}
	if !strings.Contains(p.User, "pending text") {
		t.Fatal("pending text missing")
	}
}

func TestBuildExpertisePrompt(t *testing.T) {
	p := BuildExpertisePrompt("action text")
	if !strings.Contains(p.User, "100 words") {
		t.Fatal("persona length bound missing")
	}
	if !strings.Contains(p.User, "action text") {
		t.Fatal("action text missing")
	}
}
