package rebuttal

import (
	"strings"
	"testing"
)

func fullState() State {
	return State{
		Expertise: &ExpertiseResult{Field: "optical sensing", Persona: "You are a patent attorney specializing in optical sensing."},
		Conflict: &ConflictResult{
			FoundationalClaim:   "Claim 1 rejected over Smith.",
			DocumentsReferenced: []string{"Smith (US 9,000,000)"},
		},
		Figures: &FigureAnalysis{
			Figures:             []FigureDetail{{Number: "3", Title: "Sensor array", TechnicalDetails: "elements 301-309", Importance: "central to rejection"}},
			ExtractedParagraphs: []string{"Paragraph [0042] text."},
		},
		FiledApplication: &ApplicationAnalysis{
			KeyFeaturesClaim:       []string{"nine-sensor array"},
			ExaminerRationale:      "Anticipated by Smith.",
			NoveltyAnalysis:        "The array is not disclosed.",
			NonObviousnessAnalysis: "No motivation to combine.",
			Conclusion:             "Rejection not justified.",
			DistinguishingFeatures: []string{"sensor count"},
			Amendments:             []Amendment{{Feature: "sensor count", Original: "a sensor", Proposed: "an array of sensors"}},
		},
	}
}

func TestBuildReportMarkdown(t *testing.T) {
	md := BuildReportMarkdown(fullState())
	for _, want := range []string{
		"## " + ReportTitle,
		"### Technical Field",
		"optical sensing",
		"### Foundational Claim",
		"- Smith (US 9,000,000)",
		"**Figure 3: Sensor array**",
		"### Filed Application Analysis",
		"#### Conclusion",
		"Rejection not justified.",
		"1. **sensor count**",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "Pending Claims Analysis") {
		t.Fatal("pending section rendered without a result")
	}
}

func TestBuildReportMarkdownUnstructured(t *testing.T) {
	st := State{FiledApplication: &ApplicationAnalysis{Raw: "Free-text analysis body.", Unstructured: true}}
	md := BuildReportMarkdown(st)
	if !strings.Contains(md, "Free-text analysis body.") {
		t.Fatalf("raw text missing:\n%s", md)
	}
	if strings.Contains(md, "#### Conclusion") {
		t.Fatal("structured sections rendered for unstructured result")
	}
}

func TestBuildReportMarkdownPendingSection(t *testing.T) {
	st := fullState()
	st.PendingClaims = &ApplicationAnalysis{Conclusion: "Amended claims overcome the rejection."}
	md := BuildReportMarkdown(st)
	if !strings.Contains(md, "### Pending Claims Analysis") {
		t.Fatal("pending section missing")
	}
	if !strings.Contains(md, "Amended claims overcome the rejection.") {
		t.Fatal("pending conclusion missing")
	}
}
