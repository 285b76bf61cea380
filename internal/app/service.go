package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shantamg/meet-without-fear-sub002/internal/config"
	"github.com/shantamg/meet-without-fear-sub002/internal/notify"
	"github.com/shantamg/meet-without-fear-sub002/internal/reasoner"
	"github.com/shantamg/meet-without-fear-sub002/internal/store"
	"github.com/shantamg/meet-without-fear-sub002/internal/util"
)

// neutralForwardMessage is what the guesser sees when the refinement circuit
// breaker forces their direction to READY. It is deliberately not an accuracy
// claim.
const neutralForwardMessage = "Let's move forward - you've both put real effort into understanding each other."

// errWaiting stops a directional run because the counterpart's material is
// not available yet. This is the normal waiting state, not a failure.
var errWaiting = errors.New("waiting for counterpart material")

// errStaleRun stops a run whose analysis input was superseded by a
// resubmission while the external call was in flight.
var errStaleRun = errors.New("analysis input superseded")

type dataStore interface {
	UpsertEmpathyAttempt(ctx context.Context, sessionID, userID, displayName, content string) (store.EmpathyAttempt, error)
	GetEmpathyAttempt(ctx context.Context, sessionID, userID string) (store.EmpathyAttempt, error)
	ListSessionAttempts(ctx context.Context, sessionID string) ([]store.EmpathyAttempt, error)
	TransitionAttemptStatus(ctx context.Context, sessionID, userID string, from []string, to string) (bool, error)
	MutualReveal(ctx context.Context, sessionID string) (bool, []store.EmpathyAttempt, error)
	MarkAttemptDelivered(ctx context.Context, sessionID, userID string) error
	CurrentResult(ctx context.Context, sessionID, guesserID, subjectID string) (*store.ReconcilerResult, error)
	InsertResultIfAbsent(ctx context.Context, item store.ReconcilerResult) (store.ReconcilerResult, bool, error)
	SupersedeResult(ctx context.Context, sessionID, guesserID, subjectID string) error
	InsertShareOffer(ctx context.Context, offer store.ShareOffer) (bool, error)
	GetShareOffer(ctx context.Context, offerID string) (store.ShareOffer, error)
	PendingShareOfferForSubject(ctx context.Context, sessionID, subjectID string) (*store.ShareOffer, error)
	MarkOfferOffered(ctx context.Context, offerID string) (bool, error)
	ResolveShareOffer(ctx context.Context, offerID, to, refinedContent, sharedContent string, sharedAt *time.Time, deliveryStatus string) (bool, error)
	UpdateShareOfferSuggestion(ctx context.Context, offerID, suggestedContent, suggestedReason string) (bool, error)
	HasSharedContent(ctx context.Context, sessionID, guesserID, subjectID string) (bool, error)
	CountPendingOffers(ctx context.Context, sessionID string) (int, error)
	CheckAttempts(ctx context.Context, sessionID, guesserID, subjectID string) (int, error)
	IncrementAttempts(ctx context.Context, sessionID, guesserID, subjectID string) (int, error)
	UpsertWitnessing(ctx context.Context, record store.WitnessingRecord) error
	GetWitnessing(ctx context.Context, sessionID, userID string) (store.WitnessingRecord, error)
	Ping(ctx context.Context) error
}

// direction is one ordered (guesser, subject) pair within a session.
type direction struct {
	sessionID string
	guesserID string
	subjectID string
}

type Service struct {
	cfg         config.Config
	store       dataStore
	reasoner    reasoner.Client
	notifier    notify.Publisher
	maxAttempts int
}

func New(cfg config.Config, dataStore *store.PostgresStore, reasonerClient reasoner.Client, notifier notify.Publisher) *Service {
	maxAttempts := cfg.MaxRefinementAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if notifier == nil {
		notifier = notify.NoopPublisher{}
	}
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		reasoner:    reasonerClient,
		notifier:    notifier,
		maxAttempts: maxAttempts,
	}
}

func (s *Service) ServiceToken() string {
	return s.cfg.ServiceToken
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SubmitStatement records a user's empathy statement and runs their direction.
// A resubmission supersedes the prior analysis and counts against the
// refinement circuit breaker.
func (s *Service) SubmitStatement(ctx context.Context, sessionID, userID, partnerID, displayName, content string) (store.EmpathyAttempt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return store.EmpathyAttempt{}, validationError("content is required")
	}
	if userID == "" || partnerID == "" {
		return store.EmpathyAttempt{}, validationError("userId and partnerId are required")
	}

	attempt, err := s.store.UpsertEmpathyAttempt(ctx, sessionID, userID, displayName, content)
	if err != nil {
		return store.EmpathyAttempt{}, err
	}

	if attempt.RevisionCount > 0 {
		if _, err := s.store.IncrementAttempts(ctx, sessionID, userID, partnerID); err != nil {
			return store.EmpathyAttempt{}, err
		}
		if err := s.store.SupersedeResult(ctx, sessionID, userID, partnerID); err != nil {
			return store.EmpathyAttempt{}, err
		}
	}

	err = s.runDirection(ctx, direction{sessionID: sessionID, guesserID: userID, subjectID: partnerID})
	if err != nil && !errors.Is(err, errWaiting) && !errors.Is(err, errStaleRun) {
		return store.EmpathyAttempt{}, err
	}

	return s.store.GetEmpathyAttempt(ctx, sessionID, userID)
}

// ListeningCompleted captures the subject's self-reported corpus and themes
// once their listening stage finishes, then runs the partner's direction
// against it if the partner has already submitted.
func (s *Service) ListeningCompleted(ctx context.Context, sessionID, userID, partnerID, displayName, content string, themes []string) error {
	if strings.TrimSpace(content) == "" {
		return validationError("content is required")
	}
	if userID == "" || partnerID == "" {
		return validationError("userId and partnerId are required")
	}

	if err := s.store.UpsertWitnessing(ctx, store.WitnessingRecord{
		SessionID:   sessionID,
		UserID:      userID,
		DisplayName: displayName,
		Content:     content,
		Themes:      themes,
	}); err != nil {
		return err
	}

	err := s.runDirection(ctx, direction{sessionID: sessionID, guesserID: partnerID, subjectID: userID})
	if errors.Is(err, errWaiting) || errors.Is(err, errStaleRun) {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "PRECONDITION_FAILED" {
		// The partner hasn't submitted yet; their submission will trigger
		// this direction.
		return nil
	}
	return err
}

// runDirection executes one pass of the reconciliation pipeline for a single
// direction: circuit breaker gate, memoized gap analysis, disclosure decision,
// state update, mutual reveal check.
func (s *Service) runDirection(ctx context.Context, dir direction) error {
	guesser, err := s.store.GetEmpathyAttempt(ctx, dir.sessionID, dir.guesserID)
	if errors.Is(err, sql.ErrNoRows) {
		return preconditionError("guesser has not submitted an empathy statement")
	}
	if err != nil {
		return err
	}

	attempts, err := s.store.CheckAttempts(ctx, dir.sessionID, dir.guesserID, dir.subjectID)
	if err != nil {
		return err
	}
	if attempts > s.maxAttempts {
		return s.forceReady(ctx, dir)
	}

	result, err := s.analyzeDirection(ctx, dir, guesser)
	if err != nil {
		return err
	}

	if shouldOfferSharing(result) {
		alreadyShared, err := s.store.HasSharedContent(ctx, dir.sessionID, dir.guesserID, dir.subjectID)
		if err != nil {
			return err
		}
		if alreadyShared {
			// The subject already disclosed for this direction; repeating
			// the offer would loop the guesser through AWAITING_SHARING
			// forever on every resubmission.
			return s.forceReady(ctx, dir)
		}
		offered, err := s.createShareOffer(ctx, dir, result)
		if err != nil {
			return err
		}
		if offered {
			moved, err := s.store.TransitionAttemptStatus(ctx, dir.sessionID, dir.guesserID,
				[]string{store.AttemptHeld, store.AttemptRefining}, store.AttemptAwaitingSharing)
			if err != nil {
				return err
			}
			if moved {
				s.notifyStatus(ctx, dir.sessionID, dir.guesserID, "empathy_status", "",
					s.attemptPayload(ctx, dir.sessionID, dir.guesserID))
				s.notifyStatus(ctx, dir.sessionID, dir.subjectID, "share_suggestion_ready",
					"There's something that might help them understand you better.", nil)
			}
			return nil
		}
		// Suggestion generation degraded; treat as PROCEED.
	}

	moved, err := s.store.TransitionAttemptStatus(ctx, dir.sessionID, dir.guesserID,
		[]string{store.AttemptHeld, store.AttemptRefining}, store.AttemptReady)
	if err != nil {
		return err
	}
	if moved {
		payload := s.attemptPayload(ctx, dir.sessionID, dir.guesserID)
		payload["guidance"] = guidancePayload(result)
		s.notifyStatus(ctx, dir.sessionID, dir.guesserID, "empathy_status", "", payload)
	}
	return s.maybeReveal(ctx, dir.sessionID)
}

// analyzeDirection returns the current result for a direction, invoking the
// external capability only when no non-superseded result exists.
func (s *Service) analyzeDirection(ctx context.Context, dir direction, guesser store.EmpathyAttempt) (*store.ReconcilerResult, error) {
	current, err := s.store.CurrentResult(ctx, dir.sessionID, dir.guesserID, dir.subjectID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return current, nil
	}

	witness, err := s.store.GetWitnessing(ctx, dir.sessionID, dir.subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errWaiting
	}
	if err != nil {
		return nil, err
	}

	analysis, err := s.reasoner.AnalyzeGap(ctx, reasoner.GapRequest{
		GuesserName:      nameOr(guesser.DisplayName, dir.guesserID),
		SubjectName:      nameOr(witness.DisplayName, dir.subjectID),
		EmpathyStatement: guesser.Content,
		ActualContent:    witness.Content,
		Themes:           witness.Themes,
	})
	if err != nil {
		log.Printf("gap analysis for session %s degraded to fallback: %v", dir.sessionID, err)
		analysis = reasoner.Fallback()
	}

	// A resubmission may have raced the external call; check before applying
	// side effects, not only before reading input.
	fresh, err := s.store.GetEmpathyAttempt(ctx, dir.sessionID, dir.guesserID)
	if err != nil {
		return nil, err
	}
	if fresh.RevisionCount != guesser.RevisionCount {
		return nil, errStaleRun
	}

	guidance := ComputeGuidance(analysis.Gaps.MissedFeelings, analysis.Gaps.Misattributions)
	surviving, _, err := s.store.InsertResultIfAbsent(ctx, store.ReconcilerResult{
		ID:                  util.NewID("rec"),
		SessionID:           dir.sessionID,
		GuesserID:           dir.guesserID,
		SubjectID:           dir.subjectID,
		Score:               analysis.Alignment.Score,
		AlignmentSummary:    analysis.Alignment.Summary,
		CorrectlyIdentified: analysis.Alignment.CorrectlyIdentified,
		GapSeverity:         analysis.Gaps.Severity,
		GapSummary:          analysis.Gaps.Summary,
		MissedFeelings:      analysis.Gaps.MissedFeelings,
		Misattributions:     analysis.Gaps.Misattributions,
		MostImportantGap:    analysis.Gaps.MostImportantGap,
		Action:              analysis.Recommendation.Action,
		Rationale:           analysis.Recommendation.Rationale,
		SharingWouldHelp:    analysis.Recommendation.SharingWouldHelp,
		SuggestedShareFocus: analysis.Recommendation.SuggestedShareFocus,
		AreaHint:            optional(guidance.AreaHint),
		GuidanceType:        optional(guidance.GuidanceType),
		PromptSeed:          optional(guidance.PromptSeed),
	})
	if err != nil {
		return nil, err
	}
	return &surviving, nil
}

// shouldOfferSharing decides whether a result routes into the disclosure
// workflow. An OFFER_OPTIONAL with a null or empty-string focus behaves
// exactly like PROCEED.
func shouldOfferSharing(result *store.ReconcilerResult) bool {
	switch result.Action {
	case store.ActionOfferSharing:
		return true
	case store.ActionOfferOptional:
		return result.SuggestedShareFocus != nil && strings.TrimSpace(*result.SuggestedShareFocus) != ""
	default:
		return false
	}
}

// createShareOffer generates a disclosure suggestion from the subject's raw
// corpus (a second, independent capability call) and persists the offer.
// Returns whether an open offer now exists for the direction; generation
// failure degrades to no offer rather than an error.
func (s *Service) createShareOffer(ctx context.Context, dir direction, result *store.ReconcilerResult) (bool, error) {
	witness, err := s.store.GetWitnessing(ctx, dir.sessionID, dir.subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	gapContext := result.GapSummary
	if result.SuggestedShareFocus != nil && strings.TrimSpace(*result.SuggestedShareFocus) != "" {
		gapContext = *result.SuggestedShareFocus
	}

	suggestion, err := s.reasoner.SuggestShare(ctx, reasoner.ShareRequest{
		GapContext:        gapContext,
		SubjectRawContent: witness.Content,
	})
	if err != nil {
		log.Printf("share suggestion for session %s degraded, proceeding without offer: %v", dir.sessionID, err)
		return false, nil
	}

	// A losing insert race means another run created the offer first; either
	// way an open offer exists for this result.
	if _, err := s.store.InsertShareOffer(ctx, store.ShareOffer{
		ID:               util.NewID("off"),
		ResultID:         result.ID,
		SessionID:        dir.sessionID,
		GuesserID:        dir.guesserID,
		SubjectID:        dir.subjectID,
		SuggestedContent: suggestion.SuggestedContent,
		SuggestedReason:  suggestion.Reason,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// forceReady is the circuit breaker's fast path: skip analysis and disclosure
// and move the direction to READY with the neutral message.
func (s *Service) forceReady(ctx context.Context, dir direction) error {
	offer, err := s.store.PendingShareOfferForSubject(ctx, dir.sessionID, dir.subjectID)
	if err != nil {
		return err
	}
	if offer != nil && offer.GuesserID == dir.guesserID {
		if _, err := s.store.ResolveShareOffer(ctx, offer.ID, store.OfferSkipped, "", "", nil, store.DeliveryNone); err != nil {
			return err
		}
	}

	moved, err := s.store.TransitionAttemptStatus(ctx, dir.sessionID, dir.guesserID,
		[]string{store.AttemptHeld, store.AttemptAwaitingSharing, store.AttemptRefining}, store.AttemptReady)
	if err != nil {
		return err
	}
	if moved {
		payload := s.attemptPayload(ctx, dir.sessionID, dir.guesserID)
		payload["forced"] = true
		s.notifyStatus(ctx, dir.sessionID, dir.guesserID, "empathy_status", neutralForwardMessage, payload)
	}
	return s.maybeReveal(ctx, dir.sessionID)
}

// maybeReveal flips both attempts to REVEALED when both directions are READY.
// Redundant invocations are no-ops; the store transaction is the barrier.
func (s *Service) maybeReveal(ctx context.Context, sessionID string) error {
	revealed, attempts, err := s.store.MutualReveal(ctx, sessionID)
	if err != nil {
		return err
	}
	if !revealed {
		return nil
	}

	// Notification dispatch happens only after the commit above, one
	// personalized message per user.
	for _, attempt := range attempts {
		var partnerName, partnerStatement string
		for _, other := range attempts {
			if other.UserID != attempt.UserID {
				partnerName = other.DisplayName
				partnerStatement = other.Content
			}
		}
		s.notifyStatus(ctx, sessionID, attempt.UserID, "mutual_reveal", "", map[string]any{
			"status":           store.AttemptRevealed,
			"revealedAt":       attempt.RevealedAt,
			"partnerName":      partnerName,
			"partnerStatement": partnerStatement,
		})
		if err := s.store.MarkAttemptDelivered(ctx, sessionID, attempt.UserID); err != nil {
			return err
		}
	}
	return nil
}

// RespondToShareOffer applies the subject's accept, decline, or refine action.
// Accept and decline are status-guarded; losing the race yields an explicit
// conflict rather than a silent reapply.
func (s *Service) RespondToShareOffer(ctx context.Context, sessionID, offerID, userID, action, refinedContent string) (map[string]any, error) {
	offer, err := s.store.GetShareOffer(ctx, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("share offer not found")
	}
	if err != nil {
		return nil, err
	}
	if offer.SessionID != sessionID {
		return nil, notFoundError("share offer not found")
	}
	if offer.SubjectID != userID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "share offer belongs to another user", nil)
	}

	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accept":
		refined := strings.TrimSpace(refinedContent)
		shared := refined
		if shared == "" {
			shared = offer.SuggestedContent
		}
		now := time.Now().UTC()
		ok, err := s.store.ResolveShareOffer(ctx, offer.ID, store.OfferAccepted, refined, shared, &now, store.DeliveryDelivered)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conflictError("share offer already processed")
		}
		if _, err := s.store.TransitionAttemptStatus(ctx, sessionID, offer.GuesserID,
			[]string{store.AttemptAwaitingSharing}, store.AttemptRefining); err != nil {
			return nil, err
		}
		s.notifyStatus(ctx, sessionID, offer.GuesserID, "context_shared",
			"They shared something more with you. Take a moment to reconsider your reflection.",
			map[string]any{"sharedContent": shared, "status": store.AttemptRefining})
		s.notifyStatus(ctx, sessionID, offer.SubjectID, "share_acknowledged",
			"Thank you for sharing that - it took courage. Your words are on their way.",
			map[string]any{"sharedAt": now})
		return map[string]any{"status": store.OfferAccepted, "sharedContent": shared, "sharedAt": now}, nil

	case "decline":
		ok, err := s.store.ResolveShareOffer(ctx, offer.ID, store.OfferDeclined, "", "", nil, store.DeliveryNone)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conflictError("share offer already processed")
		}
		if _, err := s.store.TransitionAttemptStatus(ctx, sessionID, offer.GuesserID,
			[]string{store.AttemptAwaitingSharing}, store.AttemptReady); err != nil {
			return nil, err
		}
		s.notifyStatus(ctx, sessionID, offer.GuesserID, "empathy_status", "",
			s.attemptPayload(ctx, sessionID, offer.GuesserID))
		if err := s.maybeReveal(ctx, sessionID); err != nil {
			return nil, err
		}
		return map[string]any{"status": store.OfferDeclined}, nil

	case "refine":
		witness, err := s.store.GetWitnessing(ctx, sessionID, offer.SubjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, preconditionError("no witnessing content recorded for user")
		}
		if err != nil {
			return nil, err
		}
		suggestion, err := s.reasoner.SuggestShare(ctx, reasoner.ShareRequest{
			GapContext:        offer.SuggestedReason,
			SubjectRawContent: witness.Content,
		})
		if err != nil {
			// Keep the existing suggestion rather than failing the flow.
			log.Printf("share refinement for offer %s degraded: %v", offer.ID, err)
			return map[string]any{
				"status":           offer.Status,
				"suggestedContent": offer.SuggestedContent,
				"suggestedReason":  offer.SuggestedReason,
			}, nil
		}
		ok, err := s.store.UpdateShareOfferSuggestion(ctx, offer.ID, suggestion.SuggestedContent, suggestion.Reason)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conflictError("share offer already processed")
		}
		return map[string]any{
			"status":           store.OfferOffered,
			"suggestedContent": suggestion.SuggestedContent,
			"suggestedReason":  suggestion.Reason,
		}, nil

	default:
		return nil, validationError("action must be accept, decline, or refine")
	}
}

// ValidateRevealed records that the caller confirmed their partner's revealed
// statement, the terminal transition of the partner's attempt.
func (s *Service) ValidateRevealed(ctx context.Context, sessionID, userID, partnerID string) error {
	if userID == "" || partnerID == "" {
		return validationError("userId and partnerId are required")
	}
	ok, err := s.store.TransitionAttemptStatus(ctx, sessionID, partnerID,
		[]string{store.AttemptRevealed}, store.AttemptValidated)
	if err != nil {
		return err
	}
	if !ok {
		return preconditionError("statement has not been revealed")
	}
	s.notifyStatus(ctx, sessionID, partnerID, "empathy_validated",
		"They confirmed your understanding of what they shared.",
		s.attemptPayload(ctx, sessionID, partnerID))
	return nil
}

// PendingShareSuggestion returns the open share suggestion addressed to a
// user. Fetching a PENDING offer marks it OFFERED.
func (s *Service) PendingShareSuggestion(ctx context.Context, sessionID, userID string) (map[string]any, error) {
	offer, err := s.store.PendingShareOfferForSubject(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return map[string]any{"hasSuggestion": false}, nil
	}
	if offer.Status == store.OfferPending {
		if _, err := s.store.MarkOfferOffered(ctx, offer.ID); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"hasSuggestion":    true,
		"offerId":          offer.ID,
		"suggestedContent": offer.SuggestedContent,
		"suggestedReason":  offer.SuggestedReason,
	}, nil
}

// ReconcilerStatus is the aggregate read-only view of a session.
func (s *Service) ReconcilerStatus(ctx context.Context, sessionID string) (map[string]any, error) {
	attempts, err := s.store.ListSessionAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	attemptViews := make([]map[string]any, 0, len(attempts))
	readyCount := 0
	for _, attempt := range attempts {
		attemptViews = append(attemptViews, attemptView(attempt))
		switch attempt.Status {
		case store.AttemptReady, store.AttemptRevealed, store.AttemptValidated:
			readyCount++
		}
	}

	hasRun := false
	directions := make([]map[string]any, 0, 2)
	if len(attempts) == 2 {
		for i, guesser := range attempts {
			subject := attempts[1-i]
			result, err := s.store.CurrentResult(ctx, sessionID, guesser.UserID, subject.UserID)
			if err != nil {
				return nil, err
			}
			view := map[string]any{
				"guesserId": guesser.UserID,
				"subjectId": subject.UserID,
				"analyzed":  result != nil,
			}
			if result != nil {
				hasRun = true
				view["score"] = result.Score
				view["gapSeverity"] = result.GapSeverity
				view["action"] = result.Action
				view["guidance"] = guidancePayload(result)
				view["analyzedAt"] = result.CreatedAt
			}
			directions = append(directions, view)
		}
	}

	pendingOffers, err := s.store.CountPendingOffers(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"hasRun":         hasRun,
		"attempts":       attemptViews,
		"directions":     directions,
		"pendingOffers":  pendingOffers,
		"readyToProceed": len(attempts) == 2 && readyCount == 2,
	}, nil
}

func (s *Service) notifyStatus(ctx context.Context, sessionID, userID, kind, message string, payload map[string]any) {
	err := s.notifier.StatusChanged(ctx, notify.Notification{
		SessionID: sessionID,
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Payload:   payload,
	})
	if err != nil {
		log.Printf("notify %s for user %s failed: %v", kind, userID, err)
	}
}

// attemptPayload builds the self-sufficient status payload for notifications,
// so clients never have to re-query after an event.
func (s *Service) attemptPayload(ctx context.Context, sessionID, userID string) map[string]any {
	attempt, err := s.store.GetEmpathyAttempt(ctx, sessionID, userID)
	if err != nil {
		return map[string]any{"userId": userID}
	}
	return attemptView(attempt)
}

func attemptView(attempt store.EmpathyAttempt) map[string]any {
	return map[string]any{
		"userId":        attempt.UserID,
		"status":        attempt.Status,
		"statusVersion": attempt.StatusVersion,
		"revisionCount": attempt.RevisionCount,
		"revealedAt":    attempt.RevealedAt,
	}
}

func guidancePayload(result *store.ReconcilerResult) map[string]any {
	return map[string]any{
		"areaHint":     result.AreaHint,
		"guidanceType": result.GuidanceType,
		"promptSeed":   result.PromptSeed,
	}
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
