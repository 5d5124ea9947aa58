package rebuttal

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable is returned when a stage reply cannot be turned into the
// stage's expected shape by any strategy.
var ErrUnparseable = errors.New("reply did not match expected shape")

// StripCodeFences removes a surrounding Markdown code fence from a model
// reply, with or without a json language tag. Unfenced input is returned
// trimmed and otherwise unchanged.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// jsonObject isolates the outermost {...} from text that may carry prose
// around the JSON value.
func jsonObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseExpertiseReply parses the domain-expertise reply. Both fields must
// be present and non-blank.
func ParseExpertiseReply(raw string) (ExpertiseResult, error) {
	clean := StripCodeFences(raw)
	obj, ok := jsonObject(clean)
	if !ok {
		return ExpertiseResult{}, fmt.Errorf("domain expertise: %w", ErrUnparseable)
	}
	var out ExpertiseResult
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return ExpertiseResult{}, fmt.Errorf("domain expertise: %w", err)
	}
	if strings.TrimSpace(out.Field) == "" || strings.TrimSpace(out.Persona) == "" {
		return ExpertiseResult{}, fmt.Errorf("domain expertise: %w: blank field or persona", ErrUnparseable)
	}
	return out, nil
}

var (
	foundationalRe = regexp.MustCompile(`(?s)FOUNDATIONAL CLAIM:(.*?)(?:DOCUMENTS REFERENCED:|FIG:|TEXT:|$)`)
	documentsRe    = regexp.MustCompile(`(?s)DOCUMENTS REFERENCED:(.*?)(?:FIG:|TEXT:|$)`)
	figSectionRe   = regexp.MustCompile(`(?s)FIG:(.*?)(?:TEXT:|$)`)
	textSectionRe  = regexp.MustCompile(`(?s)TEXT:(.*)`)
	figureIDRe     = regexp.MustCompile(`(?i)FIGS?\.?\s*[0-9]+[A-Za-z]?(?:\s*\([a-z]\))?`)
)

// ParseConflictReply parses the conflict-extraction reply. JSON is tried
// first; when the reply instead uses the labeled-section layout
// (FOUNDATIONAL CLAIM / DOCUMENTS REFERENCED / FIG / TEXT) the sections
// are scanned in that fixed order, with stable fallback strings for
// missing sections. Re-parsing a reply built from those fallbacks yields
// the same result.
func ParseConflictReply(raw string) (ConflictResult, error) {
	clean := StripCodeFences(raw)
	if obj, ok := jsonObject(clean); ok {
		var out ConflictResult
		if err := json.Unmarshal([]byte(obj), &out); err == nil && strings.TrimSpace(out.FoundationalClaim) != "" {
			out.Raw = raw
			out.FigureText = strings.Join(out.Figures, "\n")
			if out.FigureText == "" {
				out.FigureText = NoFiguresRefd
			}
			if strings.TrimSpace(out.Text) == "" {
				out.Text = NoTechnicalText
			}
			return out, nil
		}
	}
	return parseLabeledConflict(raw, clean)
}

func parseLabeledConflict(raw, clean string) (ConflictResult, error) {
	if !strings.Contains(clean, "FOUNDATIONAL CLAIM:") {
		return ConflictResult{}, fmt.Errorf("conflict extraction: %w", ErrUnparseable)
	}
	out := ConflictResult{Raw: raw}

	if m := foundationalRe.FindStringSubmatch(clean); m != nil {
		out.FoundationalClaim = strings.TrimSpace(m[1])
	}
	if strings.TrimSpace(out.FoundationalClaim) == "" {
		return ConflictResult{}, fmt.Errorf("conflict extraction: %w: empty foundational claim", ErrUnparseable)
	}

	if m := documentsRe.FindStringSubmatch(clean); m != nil {
		out.DocumentsReferenced = splitListSection(m[1])
	}

	if m := figSectionRe.FindStringSubmatch(clean); m != nil && strings.TrimSpace(m[1]) != "" {
		out.FigureText = strings.TrimSpace(m[1])
	} else {
		out.FigureText = NoFigureDetails
	}
	if out.FigureText != NoFigureDetails && out.FigureText != NoFiguresRefd {
		out.Figures = dedupe(figureIDRe.FindAllString(out.FigureText, -1))
	}

	if m := textSectionRe.FindStringSubmatch(clean); m != nil && strings.TrimSpace(m[1]) != "" {
		out.Text = strings.TrimSpace(m[1])
	} else {
		out.Text = NoTechnicalText
	}
	return out, nil
}

// splitListSection turns a labeled list section into entries, tolerating
// bullets, numbering, and one-per-line or comma-separated layouts.
func splitListSection(s string) []string {
	var items []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = numberedPrefixRe.ReplaceAllString(line, "")
		if line != "" {
			items = append(items, line)
		}
	}
	if len(items) == 1 && strings.Contains(items[0], ",") {
		parts := strings.Split(items[0], ",")
		items = items[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
	}
	return items
}

var numberedPrefixRe = regexp.MustCompile(`^\d+[.)]\s*`)

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		key := strings.ToUpper(strings.Join(strings.Fields(it), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(it))
	}
	return out
}

// ParseFigureReply parses the figure-analysis reply. The stage has no
// prose fallback: a reply that is not the expected JSON shape fails.
func ParseFigureReply(raw string) (FigureAnalysis, error) {
	clean := StripCodeFences(raw)
	obj, ok := jsonObject(clean)
	if !ok {
		return FigureAnalysis{}, fmt.Errorf("figure analysis: %w", ErrUnparseable)
	}
	var out FigureAnalysis
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return FigureAnalysis{}, fmt.Errorf("figure analysis: %w", err)
	}
	out.Raw = raw
	return out, nil
}

// ParseApplicationReply parses the filed-application or pending-claims
// reply. When the reply is not valid JSON but is non-blank prose, the
// whole reply is kept as an unstructured result instead of failing. The
// statute substitutions are applied to every text field either way.
func ParseApplicationReply(raw string) (ApplicationAnalysis, error) {
	clean := StripCodeFences(raw)
	if strings.TrimSpace(clean) == "" {
		return ApplicationAnalysis{}, fmt.Errorf("application analysis: %w: empty reply", ErrUnparseable)
	}
	if obj, ok := jsonObject(clean); ok {
		var out ApplicationAnalysis
		if err := json.Unmarshal([]byte(obj), &out); err == nil && !blankAnalysis(out) {
			out.Raw = raw
			applySubstitutions(&out)
			return out, nil
		}
	}
	return ApplicationAnalysis{
		Raw:          ApplyStatuteSubstitutions(clean),
		Unstructured: true,
	}, nil
}

func blankAnalysis(a ApplicationAnalysis) bool {
	return strings.TrimSpace(a.Conclusion) == "" &&
		strings.TrimSpace(a.NoveltyAnalysis) == "" &&
		strings.TrimSpace(a.NonObviousnessAnalysis) == "" &&
		len(a.KeyFeaturesClaim) == 0
}

// statuteRe matches a bare or already-annotated statute mention. The
// optional annotation group keeps the substitution idempotent.
var statuteRe = regexp.MustCompile(`U\.?S\.?C\.?\s*10([23])(\s*\((?:Lack of Novelty|Obviousness)\))?`)

// ApplyStatuteSubstitutions rewrites statute mentions to their annotated
// forms: "U.S.C 102 (Lack of Novelty)" and "U.S.C 103 (Obviousness)".
// Already-annotated text passes through unchanged.
func ApplyStatuteSubstitutions(s string) string {
	return statuteRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := statuteRe.FindStringSubmatch(m)
		if sub[1] == "2" {
			return "U.S.C 102 (Lack of Novelty)"
		}
		return "U.S.C 103 (Obviousness)"
	})
}

func applySubstitutions(a *ApplicationAnalysis) {
	a.ExaminerRationale = ApplyStatuteSubstitutions(a.ExaminerRationale)
	a.NoveltyAnalysis = ApplyStatuteSubstitutions(a.NoveltyAnalysis)
	a.NonObviousnessAnalysis = ApplyStatuteSubstitutions(a.NonObviousnessAnalysis)
	a.Conclusion = ApplyStatuteSubstitutions(a.Conclusion)
	for i := range a.KeyFeaturesClaim {
		a.KeyFeaturesClaim[i] = ApplyStatuteSubstitutions(a.KeyFeaturesClaim[i])
	}
	for i := range a.KeyFeaturesReference {
		a.KeyFeaturesReference[i] = ApplyStatuteSubstitutions(a.KeyFeaturesReference[i])
	}
	for i := range a.DistinguishingFeatures {
		a.DistinguishingFeatures[i] = ApplyStatuteSubstitutions(a.DistinguishingFeatures[i])
	}
}
