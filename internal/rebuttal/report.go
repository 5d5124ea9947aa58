package rebuttal

import (
	"fmt"
	"strings"
	"time"
)

// ReportTitle is the document title used by both exporters.
const ReportTitle = "Office Action Rebuttal Analysis"

// BuildReportMarkdown renders the pipeline state as a Markdown report. The
// same markup feeds both the Word and the PDF exporters.
func BuildReportMarkdown(st State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", ReportTitle)
	fmt.Fprintf(&b, "- Date: %s\n\n", time.Now().Format("2006-01-02"))

	if st.Expertise != nil {
		fmt.Fprintf(&b, "### Technical Field\n\n")
		fmt.Fprintf(&b, "**Field:** %s\n\n", st.Expertise.Field)
	}

	if st.Conflict != nil {
		fmt.Fprintf(&b, "### Foundational Claim\n\n")
		fmt.Fprintf(&b, "%s\n\n", st.Conflict.FoundationalClaim)
		if len(st.Conflict.DocumentsReferenced) > 0 {
			fmt.Fprintf(&b, "### Documents Referenced\n\n")
			for _, d := range st.Conflict.DocumentsReferenced {
				fmt.Fprintf(&b, "- %s\n", d)
			}
			b.WriteString("\n")
		}
	}

	if st.Figures != nil {
		fmt.Fprintf(&b, "### Figure Analysis\n\n")
		if len(st.Figures.Figures) == 0 {
			fmt.Fprintf(&b, "%s\n\n", NoFigureDetails)
		}
		for _, f := range st.Figures.Figures {
			fmt.Fprintf(&b, "**Figure %s: %s**\n\n", f.Number, f.Title)
			fmt.Fprintf(&b, "- **Technical details:** %s\n", f.TechnicalDetails)
			fmt.Fprintf(&b, "- **Importance:** %s\n\n", f.Importance)
		}
		if len(st.Figures.ExtractedParagraphs) > 0 {
			fmt.Fprintf(&b, "### Extracted Paragraphs\n\n")
			for _, p := range st.Figures.ExtractedParagraphs {
				fmt.Fprintf(&b, "- %s\n", p)
			}
			b.WriteString("\n")
		}
	}

	if st.FiledApplication != nil {
		appendAnalysisSection(&b, "Filed Application Analysis", *st.FiledApplication)
	}
	if st.PendingClaims != nil {
		appendAnalysisSection(&b, "Pending Claims Analysis", *st.PendingClaims)
	}
	return b.String()
}

func appendAnalysisSection(b *strings.Builder, title string, a ApplicationAnalysis) {
	fmt.Fprintf(b, "### %s\n\n", title)
	if a.Unstructured {
		fmt.Fprintf(b, "%s\n\n", a.Raw)
		return
	}
	if len(a.KeyFeaturesClaim) > 0 {
		fmt.Fprintf(b, "#### Key Features of the Claim\n\n")
		for _, f := range a.KeyFeaturesClaim {
			fmt.Fprintf(b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if len(a.KeyFeaturesReference) > 0 {
		fmt.Fprintf(b, "#### Key Features of the Cited Reference\n\n")
		for _, f := range a.KeyFeaturesReference {
			fmt.Fprintf(b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if a.ExaminerRationale != "" {
		fmt.Fprintf(b, "#### Examiner's Rationale\n\n%s\n\n", a.ExaminerRationale)
	}
	if a.NoveltyAnalysis != "" {
		fmt.Fprintf(b, "#### Novelty Analysis: U.S.C 102 (Lack of Novelty)\n\n%s\n\n", a.NoveltyAnalysis)
	}
	if a.NonObviousnessAnalysis != "" {
		fmt.Fprintf(b, "#### Non-Obviousness Analysis: U.S.C 103 (Obviousness)\n\n%s\n\n", a.NonObviousnessAnalysis)
	}
	if a.Conclusion != "" {
		fmt.Fprintf(b, "#### Conclusion\n\n%s\n\n", a.Conclusion)
	}
	if len(a.DistinguishingFeatures) > 0 {
		fmt.Fprintf(b, "#### Distinguishing Features\n\n")
		for _, f := range a.DistinguishingFeatures {
			fmt.Fprintf(b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if len(a.Amendments) > 0 {
		fmt.Fprintf(b, "#### Proposed Amendments\n\n")
		for i, am := range a.Amendments {
			fmt.Fprintf(b, "%d. **%s**\n", i+1, am.Feature)
			fmt.Fprintf(b, "   - Original: %s\n", am.Original)
			fmt.Fprintf(b, "   - Proposed: %s\n", am.Proposed)
		}
		b.WriteString("\n")
	}
}
