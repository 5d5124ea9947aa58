// Package rebuttal implements the staged analysis of a patent office action
// against cited prior art and the application as filed: persona detection,
// conflict extraction, figure analysis, and the rebuttal-or-concurrence
// report over the filed application and, optionally, pending claims.
package rebuttal

import "fmt"

// Stage names the pipeline steps in execution order.
type Stage string

const (
	StageDomainExpertise    Stage = "domain-expertise"
	StageConflictExtraction Stage = "conflict-extraction"
	StageFigureAnalysis     Stage = "figure-analysis"
	StageFiledApplication   Stage = "filed-application-analysis"
	StagePendingClaims      Stage = "pending-claims-analysis"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageDomainExpertise,
	StageConflictExtraction,
	StageFigureAnalysis,
	StageFiledApplication,
	StagePendingClaims,
}

func (s Stage) Valid() bool {
	switch s {
	case StageDomainExpertise, StageConflictExtraction, StageFigureAnalysis,
		StageFiledApplication, StagePendingClaims:
		return true
	}
	return false
}

// Predecessors returns the stages that must have produced a non-failed
// result before s may run. The sequence is strictly linear.
func (s Stage) Predecessors() []Stage {
	switch s {
	case StageConflictExtraction:
		return []Stage{StageDomainExpertise}
	case StageFigureAnalysis:
		return []Stage{StageConflictExtraction}
	case StageFiledApplication:
		return []Stage{StageFigureAnalysis}
	case StagePendingClaims:
		return []Stage{StageFiledApplication}
	}
	return nil
}

// DocRole identifies which uploaded document a stage reads.
type DocRole string

const (
	RoleAction    DocRole = "action"
	RoleReference DocRole = "reference"
	RoleFiled     DocRole = "filed"
	RolePending   DocRole = "pending"
)

func (r DocRole) Valid() bool {
	switch r {
	case RoleAction, RoleReference, RoleFiled, RolePending:
		return true
	}
	return false
}

// RequiredDocument returns the document role a stage consumes.
func (s Stage) RequiredDocument() DocRole {
	switch s {
	case StageDomainExpertise, StageConflictExtraction:
		return RoleAction
	case StageFigureAnalysis:
		return RoleReference
	case StageFiledApplication:
		return RoleFiled
	case StagePendingClaims:
		return RolePending
	}
	return ""
}

// ExpertiseResult is the detected technical field and the attorney persona
// adopted by every later prompt.
type ExpertiseResult struct {
	Field   string `json:"field"`
	Persona string `json:"persona"`
}

// ConflictResult is the parsed output of the conflict-extraction stage.
// FoundationalClaim is always a plain string; Figures holds bare figure
// identifiers; FigureText keeps the full figure section for the next
// stage's prompt.
type ConflictResult struct {
	FoundationalClaim   string   `json:"foundational_claim"`
	DocumentsReferenced []string `json:"documents_referenced"`
	Figures             []string `json:"figures"`
	Text                string   `json:"text"`
	FigureText          string   `json:"-"`
	Raw                 string   `json:"-"`
}

// FigureDetail describes one figure of the referenced document.
type FigureDetail struct {
	Number           string `json:"figure_number"`
	Title            string `json:"title"`
	TechnicalDetails string `json:"technical_details"`
	Importance       string `json:"importance"`
}

// FigureAnalysis is the parsed output of the figure-analysis stage. With no
// figures in play it carries only extracted paragraphs.
type FigureAnalysis struct {
	Figures             []FigureDetail `json:"figures_analysis"`
	ExtractedParagraphs []string       `json:"extracted_paragraphs"`
	Raw                 string         `json:"-"`
}

// Amendment proposes new wording for one distinguishing claim feature.
type Amendment struct {
	Feature  string `json:"feature"`
	Original string `json:"original_wording"`
	Proposed string `json:"proposed_wording"`
}

// ApplicationAnalysis is the rebuttal-or-concurrence report for the filed
// application or pending claims. When the model's reply is usable prose but
// not valid JSON, Raw holds the whole reply and Unstructured is set; the
// structured fields are then empty.
type ApplicationAnalysis struct {
	KeyFeaturesClaim       []string    `json:"key_features_of_claim"`
	KeyFeaturesReference   []string    `json:"key_features_of_reference"`
	ExaminerRationale      string      `json:"examiner_rationale"`
	NoveltyAnalysis        string      `json:"novelty_analysis"`
	NonObviousnessAnalysis string      `json:"non_obviousness_analysis"`
	Conclusion             string      `json:"conclusion"`
	DistinguishingFeatures []string    `json:"distinguishing_features"`
	Amendments             []Amendment `json:"amendments"`
	Raw                    string      `json:"raw,omitempty"`
	Unstructured           bool        `json:"unstructured,omitempty"`
}

// State is the explicit pipeline record: one field per stage result,
// populated monotonically and only ever replaced whole, never edited.
type State struct {
	Expertise        *ExpertiseResult     `json:"domain_expertise,omitempty"`
	Conflict         *ConflictResult      `json:"conflict_extraction,omitempty"`
	Figures          *FigureAnalysis      `json:"figure_analysis,omitempty"`
	FiledApplication *ApplicationAnalysis `json:"filed_application_analysis,omitempty"`
	PendingClaims    *ApplicationAnalysis `json:"pending_claims_analysis,omitempty"`
}

// Completed reports whether stage has a stored result.
func (st State) Completed(stage Stage) bool {
	switch stage {
	case StageDomainExpertise:
		return st.Expertise != nil
	case StageConflictExtraction:
		return st.Conflict != nil
	case StageFigureAnalysis:
		return st.Figures != nil
	case StageFiledApplication:
		return st.FiledApplication != nil
	case StagePendingClaims:
		return st.PendingClaims != nil
	}
	return false
}

// Result returns the stored result for stage, if any.
func (st State) Result(stage Stage) (any, bool) {
	switch stage {
	case StageDomainExpertise:
		if st.Expertise != nil {
			return *st.Expertise, true
		}
	case StageConflictExtraction:
		if st.Conflict != nil {
			return *st.Conflict, true
		}
	case StageFigureAnalysis:
		if st.Figures != nil {
			return *st.Figures, true
		}
	case StageFiledApplication:
		if st.FiledApplication != nil {
			return *st.FiledApplication, true
		}
	case StagePendingClaims:
		if st.PendingClaims != nil {
			return *st.PendingClaims, true
		}
	}
	return nil, false
}

// FinalAnalysis returns the most advanced application analysis available.
func (st State) FinalAnalysis() (*ApplicationAnalysis, Stage) {
	if st.PendingClaims != nil {
		return st.PendingClaims, StagePendingClaims
	}
	if st.FiledApplication != nil {
		return st.FiledApplication, StageFiledApplication
	}
	return nil, ""
}

// StageError wraps a failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// GateError reports why a stage is not yet enabled.
type GateError struct {
	Stage       Stage
	MissingDocs []DocRole
	Missing     []Stage
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s is not enabled: missing stages %v, missing documents %v", e.Stage, e.Missing, e.MissingDocs)
}
