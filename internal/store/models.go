package store

import "time"

// EmpathyAttempt statuses. Transitions are enforced by the service through
// status-scoped conditional updates; the store never skips the guard.
const (
	AttemptHeld            = "HELD"
	AttemptAwaitingSharing = "AWAITING_SHARING"
	AttemptRefining        = "REFINING"
	AttemptReady           = "READY"
	AttemptRevealed        = "REVEALED"
	AttemptValidated       = "VALIDATED"
)

// ShareOffer statuses. REFINE is an action on an OFFERED row, not a status.
const (
	OfferPending  = "PENDING"
	OfferOffered  = "OFFERED"
	OfferAccepted = "ACCEPTED"
	OfferDeclined = "DECLINED"
	OfferSkipped  = "SKIPPED"
)

// Gap severities.
const (
	SeverityNone        = "none"
	SeverityMinor       = "minor"
	SeverityModerate    = "moderate"
	SeveritySignificant = "significant"
)

// Recommendation actions.
const (
	ActionProceed       = "PROCEED"
	ActionOfferOptional = "OFFER_OPTIONAL"
	ActionOfferSharing  = "OFFER_SHARING"
)

// Delivery statuses.
const (
	DeliveryNone      = "NONE"
	DeliveryPending   = "PENDING"
	DeliveryDelivered = "DELIVERED"
)

type EmpathyAttempt struct {
	ID             string
	SessionID      string
	UserID         string
	DisplayName    string
	Content        string
	Status         string
	StatusVersion  int
	RevisionCount  int
	DeliveryStatus string
	RevealedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconcilerResult is the outcome of one directional gap analysis.
// Exactly one row per (session, guesser, subject) has SupersededAt == nil.
type ReconcilerResult struct {
	ID        string
	SessionID string
	GuesserID string
	SubjectID string

	Score               int
	AlignmentSummary    string
	CorrectlyIdentified []string

	GapSeverity      string
	GapSummary       string
	MissedFeelings   []string
	Misattributions  []string
	MostImportantGap *string

	Action              string
	Rationale           string
	SharingWouldHelp    bool
	SuggestedShareFocus *string

	// Derived from gap fields only, never from the subject's raw content.
	AreaHint     *string
	GuidanceType *string
	PromptSeed   *string

	SupersededAt *time.Time
	CreatedAt    time.Time
}

type ShareOffer struct {
	ID               string
	ResultID         string
	SessionID        string
	GuesserID        string
	SubjectID        string
	Status           string
	SuggestedContent string
	SuggestedReason  string
	RefinedContent   string
	SharedContent    string
	SharedAt         *time.Time
	DeliveryStatus   string
	CreatedAt        time.Time
}

// WitnessingRecord holds a subject's self-reported corpus plus extracted
// themes, captured when the listening stage completes. It is input material
// for the gap analyzer, not a reconciler entity.
type WitnessingRecord struct {
	SessionID   string
	UserID      string
	DisplayName string
	Content     string
	Themes      []string
	UpdatedAt   time.Time
}
