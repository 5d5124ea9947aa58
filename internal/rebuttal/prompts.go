package rebuttal

import (
	"fmt"
	"strings"
)

// Fallback strings used when the conflict reply is missing a labeled
// section. They are stable values, so downstream prompts and re-parses
// see the same text every time.
const (
	NoFigureDetails = "No figure details found."
	NoTechnicalText = "No technical text found."
	NoFiguresRefd   = "No figures referenced."
)

// DefaultPersona is used when domain-expertise detection fails or has not
// run; later stages always have a persona to work with.
const DefaultPersona = "You are a patent attorney specializing in general technology, experienced in analyzing office actions and prior-art rejections."

// Prompt is one chat-completion request: a system persona and a user task.
type Prompt struct {
	System string
	User   string
}

const expertisePromptContext = `Read the office action text and determine the technical field of the
invention under examination. Then phrase a single-sentence persona of the
form "You are a patent attorney specializing in ..." naming that field and
the most relevant sub-disciplines. The persona must be at most 100 words
and must be derived only from the office action text provided.`

const expertiseSchemaPrompt = `Required JSON schema:
{
  "field": "string (short name of the technical field)",
  "persona": "string (one sentence, starts with 'You are a patent attorney specializing in', max 100 words)"
}`

// BuildExpertisePrompt asks for the technical field and attorney persona.
func BuildExpertisePrompt(actionText string) Prompt {
	return Prompt{
		System: "You are a patent analysis assistant that identifies the technical domain of office actions. Respond with strict JSON only.",
		User: fmt.Sprintf(
			"Domain expertise detection.\n%s\n\n%s\n\nOffice action text:\n%s",
			expertisePromptContext,
			expertiseSchemaPrompt,
			actionText,
		),
	}
}

const conflictPromptContext = `Analyze the office action text and extract the foundational claim and its
conflicts:

Step 1: Extract the key claims from the document.
Step 2: From those, identify the single foundational claim. Method claims
        and system claims are not considered independent claims; only one
        claim can be the foundational claim.
Step 3: From the foundational claim, extract the information cited under
        U.S.C 102 and/or 103.
Step 4: Extract all documents referenced under U.S.C 102 and/or 103 that
        are cited against the foundational claim only.
Step 5: Where the rejection of the foundational claim cites figures or
        paragraphs of a referenced document, extract that technical content
        with its paragraph locations and figure references.
Step 6: Do not extract referenced-document data that is unrelated to the
        foundational claim.`

const conflictSchemaPrompt = `Required JSON schema:
{
  "foundational_claim": "string (the full text of the foundational claim and its rejection ground)",
  "documents_referenced": ["string (one entry per cited prior-art document)"],
  "figures": ["string (bare figure identifiers cited against the claim, e.g. 'FIG. 3')"],
  "text": "string (the technical text cited against the claim, with paragraph locations)"
}`

// BuildConflictPrompt asks for the foundational claim and cited conflicts.
func BuildConflictPrompt(persona, actionText string) Prompt {
	return Prompt{
		System: systemPersona(persona) + " You are analyzing the document for foundational claims and conflicts. Respond with strict JSON only.",
		User: fmt.Sprintf(
			"Conflict extraction.\n%s\n\n%s\n\nOffice action text:\n%s",
			conflictPromptContext,
			conflictSchemaPrompt,
			actionText,
		),
	}
}

const figurePromptContext = `Analyze the figures and technical text from the referenced document in
relation to the foundational claim.

1. For each figure cited against the foundational claim, extract:
   - the figure number and its title,
   - every technical detail related to the figure as stated in the text,
   - the importance of the figure to the foundational claim: how it
     supports, illustrates, or contradicts the claim.
2. From the paragraphs cited against the foundational claim, extract the
   relevant text exactly as it appears in the referenced document.
3. If no figures are cited, analyze the cited text only and return an
   empty figures_analysis list.`

const figureSchemaPrompt = `Required JSON schema:
{
  "figures_analysis": [
    {
      "figure_number": "string",
      "title": "string",
      "technical_details": "string",
      "importance": "string"
    }
  ],
  "extracted_paragraphs": ["string (verbatim cited text, one entry per paragraph)"]
}`

// BuildFigurePrompt asks for figure-by-figure analysis of the referenced
// document against the conflict result.
func BuildFigurePrompt(persona string, conflict ConflictResult, referenceText string) Prompt {
	figs := conflict.FigureText
	if strings.TrimSpace(figs) == "" {
		figs = NoFiguresRefd
	}
	text := conflict.Text
	if strings.TrimSpace(text) == "" {
		text = NoTechnicalText
	}
	return Prompt{
		System: systemPersona(persona) + " You are a technical expert analyzing figures in a document. Respond with strict JSON only.",
		User: fmt.Sprintf(
			"Figure analysis.\n%s\n\n%s\n\nFoundational claim:\n%s\n\nFigures:\n%s\n\nCited text:\n%s\n\nReferenced document text:\n%s",
			figurePromptContext,
			figureSchemaPrompt,
			conflict.FoundationalClaim,
			figs,
			text,
			referenceText,
		),
	}
}

const applicationPromptContext = `Using the foundational claim cited for rejection and the figure analysis
results, analyze the application text and determine whether the examiner is
correct in rejecting the application under U.S.C 102 (Lack of Novelty) or
U.S.C 103 (Obviousness). The application text is the most important
document. Cite instances from the application text to justify your stance,
making direct comparisons between the application and the cited prior art.
For each distinguishing feature, propose an amendment giving the original
claim wording and the proposed wording.

In every field of your reply, write the rejection grounds as
"U.S.C 102 (Lack of Novelty)" and "U.S.C 103 (Obviousness)".`

const applicationSchemaPrompt = `Required JSON schema:
{
  "key_features_of_claim": ["string"],
  "key_features_of_reference": ["string"],
  "examiner_rationale": "string (the examiner's stated reason for rejection)",
  "novelty_analysis": "string (U.S.C 102 (Lack of Novelty) analysis with cited application text)",
  "non_obviousness_analysis": "string (U.S.C 103 (Obviousness) analysis with cited application text)",
  "conclusion": "string (whether the rejection is justified, and why)",
  "distinguishing_features": ["string"],
  "amendments": [
    {
      "feature": "string",
      "original_wording": "string",
      "proposed_wording": "string"
    }
  ]
}`

// BuildFiledApplicationPrompt asks for the rebuttal-or-concurrence report
// over the application as filed.
func BuildFiledApplicationPrompt(persona string, conflict ConflictResult, figures FigureAnalysis, filedText string) Prompt {
	return Prompt{
		System: systemPersona(persona) + " Adopt the persona of a Person Having Ordinary Skill in the Art (PHOSITA). Respond with strict JSON only.",
		User: fmt.Sprintf(
			"Filed application analysis.\n%s\n\n%s\n\nFoundational claim:\n%s\n\nFigure analysis:\n%s\n\nFiled application text:\n%s",
			applicationPromptContext,
			applicationSchemaPrompt,
			conflict.FoundationalClaim,
			figureAnalysisSummary(figures),
			filedText,
		),
	}
}

// BuildPendingClaimsPrompt is the filed-application prompt re-targeted at
// the pending (amended) claims.
func BuildPendingClaimsPrompt(persona string, conflict ConflictResult, figures FigureAnalysis, pendingText string) Prompt {
	return Prompt{
		System: systemPersona(persona) + " Adopt the persona of a Person Having Ordinary Skill in the Art (PHOSITA). Respond with strict JSON only.",
		User: fmt.Sprintf(
			"Pending claims analysis.\nThe text below holds the pending claims as amended after the office action; analyze them in place of the filed application.\n%s\n\n%s\n\nFoundational claim:\n%s\n\nFigure analysis:\n%s\n\nPending claims text:\n%s",
			applicationPromptContext,
			applicationSchemaPrompt,
			conflict.FoundationalClaim,
			figureAnalysisSummary(figures),
			pendingText,
		),
	}
}

func systemPersona(persona string) string {
	p := strings.TrimSpace(persona)
	if p == "" {
		p = DefaultPersona
	}
	if !strings.HasSuffix(p, ".") {
		p += "."
	}
	return p
}

// figureAnalysisSummary renders the figure-analysis result as prompt input
// for the application stages.
func figureAnalysisSummary(fa FigureAnalysis) string {
	var b strings.Builder
	if len(fa.Figures) == 0 {
		b.WriteString(NoFigureDetails)
		b.WriteString("\n")
	}
	for _, f := range fa.Figures {
		fmt.Fprintf(&b, "Figure %s: %s\nTechnical details: %s\nImportance: %s\n\n", f.Number, f.Title, f.TechnicalDetails, f.Importance)
	}
	if len(fa.ExtractedParagraphs) == 0 {
		b.WriteString(NoTechnicalText)
	} else {
		b.WriteString("Cited paragraphs:\n")
		for _, p := range fa.ExtractedParagraphs {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
