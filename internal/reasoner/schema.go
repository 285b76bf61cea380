package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"
)

var allowedSeverities = map[string]struct{}{
	"none":        {},
	"minor":       {},
	"moderate":    {},
	"significant": {},
}

var allowedActions = map[string]struct{}{
	"PROCEED":        {},
	"OFFER_OPTIONAL": {},
	"OFFER_SHARING":  {},
}

// ParseGapAnalysis decodes and validates the loosely-typed capability output.
// Any schema violation is an error; the caller degrades to Fallback rather
// than trusting the shape.
func ParseGapAnalysis(raw string) (*GapAnalysis, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var analysis GapAnalysis
	if err := json.Unmarshal(body, &analysis); err != nil {
		return nil, fmt.Errorf("decode gap analysis: %w", err)
	}

	if analysis.Alignment.Score < 0 || analysis.Alignment.Score > 100 {
		return nil, fmt.Errorf("gap analysis score %d out of range", analysis.Alignment.Score)
	}
	severity := strings.ToLower(strings.TrimSpace(analysis.Gaps.Severity))
	if _, ok := allowedSeverities[severity]; !ok {
		return nil, fmt.Errorf("gap analysis severity %q not recognized", analysis.Gaps.Severity)
	}
	analysis.Gaps.Severity = severity
	action := strings.ToUpper(strings.TrimSpace(analysis.Recommendation.Action))
	if _, ok := allowedActions[action]; !ok {
		return nil, fmt.Errorf("gap analysis action %q not recognized", analysis.Recommendation.Action)
	}
	analysis.Recommendation.Action = action

	return &analysis, nil
}

// ParseShareSuggestion decodes the disclosure-suggestion output.
func ParseShareSuggestion(raw string) (*ShareSuggestion, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var suggestion ShareSuggestion
	if err := json.Unmarshal(body, &suggestion); err != nil {
		return nil, fmt.Errorf("decode share suggestion: %w", err)
	}
	if strings.TrimSpace(suggestion.SuggestedContent) == "" {
		return nil, fmt.Errorf("share suggestion has no content")
	}
	return &suggestion, nil
}

// extractJSON pulls the first top-level JSON object out of a chat response,
// tolerating prose or code fences around it.
func extractJSON(raw string) (json.RawMessage, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	return json.RawMessage(raw[start : end+1]), nil
}
