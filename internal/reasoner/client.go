// Package reasoner wraps the external text-analysis capability behind a small
// interface. Callers must treat every error as "degrade to the fallback";
// nothing in this package is allowed to block protocol progress.
package reasoner

import "context"

type GapRequest struct {
	GuesserName      string
	SubjectName      string
	EmpathyStatement string
	ActualContent    string
	Themes           []string
}

type Alignment struct {
	Score               int      `json:"score"`
	Summary             string   `json:"summary"`
	CorrectlyIdentified []string `json:"correctlyIdentified"`
}

type Gaps struct {
	Severity         string   `json:"severity"`
	Summary          string   `json:"summary"`
	MissedFeelings   []string `json:"missedFeelings"`
	Misattributions  []string `json:"misattributions"`
	MostImportantGap *string  `json:"mostImportantGap"`
}

type Recommendation struct {
	Action              string  `json:"action"`
	Rationale           string  `json:"rationale"`
	SharingWouldHelp    bool    `json:"sharingWouldHelp"`
	SuggestedShareFocus *string `json:"suggestedShareFocus"`
}

type GapAnalysis struct {
	Alignment      Alignment      `json:"alignment"`
	Gaps           Gaps           `json:"gaps"`
	Recommendation Recommendation `json:"recommendation"`
}

type ShareRequest struct {
	GapContext        string
	SubjectRawContent string
}

type ShareSuggestion struct {
	SuggestedContent string `json:"suggestedContent"`
	Reason           string `json:"reason"`
}

type Client interface {
	AnalyzeGap(ctx context.Context, req GapRequest) (*GapAnalysis, error)
	SuggestShare(ctx context.Context, req ShareRequest) (*ShareSuggestion, error)
}

// Unavailable stands in when no capability is configured. Every call reports
// ErrUnavailable so callers take their fallback path.
type Unavailable struct{}

func (Unavailable) AnalyzeGap(ctx context.Context, req GapRequest) (*GapAnalysis, error) {
	return nil, ErrUnavailable
}

func (Unavailable) SuggestShare(ctx context.Context, req ShareRequest) (*ShareSuggestion, error) {
	return nil, ErrUnavailable
}

// Fallback is the conservative result used whenever the capability times out,
// is unavailable, or returns something that fails schema validation. It fails
// open toward progress: a mild score, minor severity, proceed.
func Fallback() *GapAnalysis {
	return &GapAnalysis{
		Alignment: Alignment{
			Score:   70,
			Summary: "Your reflection captures part of what they shared.",
		},
		Gaps: Gaps{
			Severity: "minor",
			Summary:  "We couldn't complete a detailed comparison this time.",
		},
		Recommendation: Recommendation{
			Action:    "PROCEED",
			Rationale: "Analysis was unavailable; continuing rather than blocking.",
		},
	}
}
