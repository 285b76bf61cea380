package app

import "strings"

// Guidance is the privacy-preserving nudge derived from a gap analysis. It is
// computed from the gap fields only, never from the subject's raw content, so
// the guesser can be pointed at an area without learning what the subject said.
type Guidance struct {
	AreaHint     string
	GuidanceType string
	PromptSeed   string
}

const (
	guidanceChallengeAssumptions  = "challenge_assumptions"
	guidanceExploreBreadth        = "explore_breadth"
	guidanceExploreDeeperFeelings = "explore_deeper_feelings"
)

// areaBuckets is a fixed rule table: the first bucket whose keywords match a
// missed feeling wins. Order matters and is part of the contract.
var areaBuckets = []struct {
	hint     string
	keywords []string
}{
	{"work/effort", []string{"overwhelm", "exhaust", "stress", "pressure", "tired", "burden", "workload", "work"}},
	{"connection", []string{"lonely", "alone", "distant", "disconnect", "apart", "missing", "longing", "abandon"}},
	{"safety", []string{"afraid", "scared", "fear", "anxious", "insecure", "unsafe", "worried", "threat"}},
	{"being-heard", []string{"unheard", "ignored", "dismissed", "unseen", "invisible", "overlooked", "silenced"}},
	{"respect", []string{"disrespect", "belittle", "criticized", "judged", "unappreciated", "taken for granted", "demean"}},
}

var promptSeeds = map[string]string{
	guidanceChallengeAssumptions:  "What if part of what you noticed isn't the whole story?",
	guidanceExploreBreadth:        "There may be more feelings in play than the ones you named.",
	guidanceExploreDeeperFeelings: "What might be underneath the feeling you named?",
}

// ComputeGuidance applies the fixed rule table. It returns a zero Guidance
// when there is nothing to nudge toward.
func ComputeGuidance(missedFeelings, misattributions []string) Guidance {
	if len(missedFeelings) == 0 && len(misattributions) == 0 {
		return Guidance{}
	}

	areaHint := "their experience"
	for _, feeling := range missedFeelings {
		lowered := strings.ToLower(feeling)
		for _, bucket := range areaBuckets {
			for _, keyword := range bucket.keywords {
				if strings.Contains(lowered, keyword) {
					areaHint = bucket.hint
					break
				}
			}
			if areaHint != "their experience" {
				break
			}
		}
		if areaHint != "their experience" {
			break
		}
	}

	guidanceType := guidanceExploreDeeperFeelings
	switch {
	case len(misattributions) > 0:
		guidanceType = guidanceChallengeAssumptions
	case len(missedFeelings) >= 3:
		guidanceType = guidanceExploreBreadth
	}

	return Guidance{
		AreaHint:     areaHint,
		GuidanceType: guidanceType,
		PromptSeed:   promptSeeds[guidanceType],
	}
}
