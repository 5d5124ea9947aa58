package rebuttal

import (
	"errors"
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"unfenced", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  \n```json\n{\"a\":1}\n```\n", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFences(tc.in); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConflictReplyJSON(t *testing.T) {
	raw := "```json\n" + `{
  "foundational_claim": "Claim 1 is rejected under U.S.C 102 over Smith.",
  "documents_referenced": ["Smith (US 9,000,000)", "Jones (US 8,500,000)"],
  "figures": ["FIG. 3", "FIG. 4A"],
  "text": "Paragraph [0042] discloses a sensor array."
}` + "\n```"
	out, err := ParseConflictReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.FoundationalClaim, "Claim 1") {
		t.Fatalf("foundational claim = %q", out.FoundationalClaim)
	}
	if len(out.DocumentsReferenced) != 2 {
		t.Fatalf("documents = %v", out.DocumentsReferenced)
	}
	if len(out.Figures) != 2 {
		t.Fatalf("figures = %v", out.Figures)
	}
	if out.Raw != raw {
		t.Fatal("raw reply not preserved")
	}
}

func TestParseConflictReplyLabeled(t *testing.T) {
	raw := `FOUNDATIONAL CLAIM:
Claim 1, rejected under U.S.C 103 over Reference B.

DOCUMENTS REFERENCED:
- Reference B (EP 1 234 567)

FIG:
FIG. 2 and FIG. 5 of Reference B

TEXT:
Paragraphs [0015]-[0019] describe the locking mechanism.`
	out, err := ParseConflictReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.FoundationalClaim, "Claim 1") {
		t.Fatalf("foundational claim = %q", out.FoundationalClaim)
	}
	if len(out.DocumentsReferenced) != 1 || !strings.Contains(out.DocumentsReferenced[0], "Reference B") {
		t.Fatalf("documents = %v", out.DocumentsReferenced)
	}
	if len(out.Figures) != 2 {
		t.Fatalf("figures = %v", out.Figures)
	}
	if !strings.Contains(out.Text, "locking mechanism") {
		t.Fatalf("text = %q", out.Text)
	}
}

func TestParseConflictReplyMissingSections(t *testing.T) {
	raw := "FOUNDATIONAL CLAIM:\nClaim 1 rejected under U.S.C 102.\n\nDOCUMENTS REFERENCED:\nSmith"
	out, err := ParseConflictReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FigureText != NoFigureDetails {
		t.Fatalf("figure text = %q", out.FigureText)
	}
	if out.Text != NoTechnicalText {
		t.Fatalf("text = %q", out.Text)
	}
	if len(out.Figures) != 0 {
		t.Fatalf("figures = %v", out.Figures)
	}
}

// Re-parsing a reply whose sections already hold the fallback strings must
// yield the fallback strings again, not wrap them a second time.
func TestParseConflictReplyFallbackIdempotent(t *testing.T) {
	raw := "FOUNDATIONAL CLAIM:\nClaim 1.\n\nFIG:\n" + NoFigureDetails + "\n\nTEXT:\n" + NoTechnicalText
	out, err := ParseConflictReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FigureText != NoFigureDetails {
		t.Fatalf("figure text = %q", out.FigureText)
	}
	if out.Text != NoTechnicalText {
		t.Fatalf("text = %q", out.Text)
	}
	if len(out.Figures) != 0 {
		t.Fatalf("figures = %v", out.Figures)
	}
}

func TestParseConflictReplyUnparseable(t *testing.T) {
	if _, err := ParseConflictReply("nothing useful here"); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseFigureReply(t *testing.T) {
	raw := `{
  "figures_analysis": [
    {"figure_number": "3", "title": "Sensor array", "technical_details": "Shows elements 301-309.", "importance": "Discloses the claimed arrangement."}
  ],
  "extracted_paragraphs": ["Paragraph [0042] text."]
}`
	out, err := ParseFigureReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Figures) != 1 || out.Figures[0].Number != "3" {
		t.Fatalf("figures = %+v", out.Figures)
	}
	if len(out.ExtractedParagraphs) != 1 {
		t.Fatalf("paragraphs = %v", out.ExtractedParagraphs)
	}
}

func TestParseFigureReplyNoFigures(t *testing.T) {
	out, err := ParseFigureReply(`{"figures_analysis": [], "extracted_paragraphs": ["Cited text only."]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Figures) != 0 {
		t.Fatalf("figures = %v", out.Figures)
	}
}

func TestParseFigureReplyProse(t *testing.T) {
	if _, err := ParseFigureReply("The figures show a sensor."); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseApplicationReplyJSON(t *testing.T) {
	raw := `{
  "key_features_of_claim": ["A sensor array under U.S.C 102"],
  "key_features_of_reference": ["A single sensor"],
  "examiner_rationale": "Anticipated under U.S.C 102 by Smith.",
  "novelty_analysis": "The claim recites an array; rejection under U.S.C 102 fails.",
  "non_obviousness_analysis": "No motivation to combine under U.S.C 103.",
  "conclusion": "The rejection is not justified.",
  "distinguishing_features": ["array of nine sensors"],
  "amendments": [{"feature": "sensor count", "original_wording": "a sensor", "proposed_wording": "an array of at least nine sensors"}]
}`
	out, err := ParseApplicationReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Unstructured {
		t.Fatal("expected structured result")
	}
	if out.ExaminerRationale != "Anticipated under U.S.C 102 (Lack of Novelty) by Smith." {
		t.Fatalf("rationale = %q", out.ExaminerRationale)
	}
	if !strings.Contains(out.NonObviousnessAnalysis, "U.S.C 103 (Obviousness)") {
		t.Fatalf("non-obviousness = %q", out.NonObviousnessAnalysis)
	}
	if !strings.Contains(out.KeyFeaturesClaim[0], "U.S.C 102 (Lack of Novelty)") {
		t.Fatalf("key feature = %q", out.KeyFeaturesClaim[0])
	}
	if len(out.Amendments) != 1 || out.Amendments[0].Feature != "sensor count" {
		t.Fatalf("amendments = %+v", out.Amendments)
	}
}

func TestParseApplicationReplyProseFallback(t *testing.T) {
	raw := "The examiner's rejection under U.S.C 102 is not justified because the filed application recites an array."
	out, err := ParseApplicationReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Unstructured {
		t.Fatal("expected unstructured fallback")
	}
	if !strings.Contains(out.Raw, "U.S.C 102 (Lack of Novelty)") {
		t.Fatalf("raw = %q", out.Raw)
	}
}

func TestParseApplicationReplyEmpty(t *testing.T) {
	if _, err := ParseApplicationReply("   \n"); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyStatuteSubstitutions(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"rejected under U.S.C 102", "rejected under U.S.C 102 (Lack of Novelty)"},
		{"rejected under U.S.C 103", "rejected under U.S.C 103 (Obviousness)"},
		{"under U.S.C. 102 and U.S.C. 103", "under U.S.C 102 (Lack of Novelty) and U.S.C 103 (Obviousness)"},
		{"already U.S.C 102 (Lack of Novelty) here", "already U.S.C 102 (Lack of Novelty) here"},
		{"no statute mentioned", "no statute mentioned"},
	}
	for _, tc := range cases {
		if got := ApplyStatuteSubstitutions(tc.in); got != tc.want {
			t.Errorf("ApplyStatuteSubstitutions(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	// Applying twice must not grow the annotation.
	once := ApplyStatuteSubstitutions("under U.S.C 103")
	if twice := ApplyStatuteSubstitutions(once); twice != once {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

func TestParseExpertiseReply(t *testing.T) {
	out, err := ParseExpertiseReply("```json\n{\"field\": \"optical sensing\", \"persona\": \"You are a patent attorney specializing in optical sensing.\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Field != "optical sensing" {
		t.Fatalf("field = %q", out.Field)
	}
	if _, err := ParseExpertiseReply(`{"field": "", "persona": ""}`); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("blank fields: err = %v", err)
	}
}
