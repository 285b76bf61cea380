package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shantamg/meet-without-fear-sub002/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const attemptColumns = `id, session_id, user_id, display_name, content, status, status_version, revision_count, delivery_status, revealed_at, created_at, updated_at`

func scanAttempt(row interface{ Scan(...any) error }) (EmpathyAttempt, error) {
	var item EmpathyAttempt
	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.UserID,
		&item.DisplayName,
		&item.Content,
		&item.Status,
		&item.StatusVersion,
		&item.RevisionCount,
		&item.DeliveryStatus,
		&item.RevealedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// UpsertEmpathyAttempt records a submission. A resubmission resets the row to
// HELD and bumps both the revision count and the status version.
func (s *PostgresStore) UpsertEmpathyAttempt(ctx context.Context, sessionID, userID, displayName, content string) (EmpathyAttempt, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO empathy_attempts (id, session_id, user_id, display_name, content, status)
		VALUES ($1, $2, $3, $4, $5, 'HELD')
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			display_name=EXCLUDED.display_name,
			content=EXCLUDED.content,
			status='HELD',
			status_version=empathy_attempts.status_version+1,
			revision_count=empathy_attempts.revision_count+1,
			updated_at=NOW()
		RETURNING `+attemptColumns, util.NewID("att"), sessionID, userID, displayName, content)
	item, err := scanAttempt(row)
	if err != nil {
		return EmpathyAttempt{}, fmt.Errorf("upsert empathy attempt: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) GetEmpathyAttempt(ctx context.Context, sessionID, userID string) (EmpathyAttempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+`
		FROM empathy_attempts
		WHERE session_id=$1 AND user_id=$2
	`, sessionID, userID)
	return scanAttempt(row)
}

func (s *PostgresStore) ListSessionAttempts(ctx context.Context, sessionID string) ([]EmpathyAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM empathy_attempts
		WHERE session_id=$1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session attempts: %w", err)
	}
	defer rows.Close()

	items := make([]EmpathyAttempt, 0)
	for rows.Next() {
		item, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan empathy attempt: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate empathy attempts: %w", err)
	}
	return items, nil
}

// TransitionAttemptStatus applies a status-scoped conditional update. It
// returns false when the row is no longer in one of the expected statuses.
func (s *PostgresStore) TransitionAttemptStatus(ctx context.Context, sessionID, userID string, from []string, to string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE empathy_attempts
		SET status=$3, status_version=status_version+1, updated_at=NOW()
		WHERE session_id=$1 AND user_id=$2 AND status = ANY($4::text[])
	`, sessionID, userID, to, from)
	if err != nil {
		return false, fmt.Errorf("transition attempt status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition attempt status rows: %w", err)
	}
	return affected > 0, nil
}

// MutualReveal flips both attempts of a session to REVEALED with a shared
// timestamp, inside one transaction. It is a no-op unless both rows are
// READY, so it is safe to call from either direction's completion path.
func (s *PostgresStore) MutualReveal(ctx context.Context, sessionID string) (bool, []EmpathyAttempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("begin reveal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM empathy_attempts
		WHERE session_id=$1
		ORDER BY user_id ASC
		FOR UPDATE
	`, sessionID)
	if err != nil {
		return false, nil, fmt.Errorf("lock session attempts: %w", err)
	}
	attempts := make([]EmpathyAttempt, 0, 2)
	for rows.Next() {
		item, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return false, nil, fmt.Errorf("scan locked attempt: %w", err)
		}
		attempts = append(attempts, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, nil, fmt.Errorf("iterate locked attempts: %w", err)
	}
	rows.Close()

	if len(attempts) != 2 {
		return false, nil, nil
	}
	for _, attempt := range attempts {
		if attempt.Status != AttemptReady {
			return false, nil, nil
		}
	}

	revealedAt := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE empathy_attempts
		SET status='REVEALED', revealed_at=$2, delivery_status='PENDING', status_version=status_version+1, updated_at=NOW()
		WHERE session_id=$1 AND status='READY'
	`, sessionID, revealedAt)
	if err != nil {
		return false, nil, fmt.Errorf("reveal attempts: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("reveal attempts rows: %w", err)
	}
	if affected != 2 {
		return false, nil, nil
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("commit reveal tx: %w", err)
	}

	for i := range attempts {
		attempts[i].Status = AttemptRevealed
		attempts[i].RevealedAt = &revealedAt
		attempts[i].StatusVersion++
		attempts[i].DeliveryStatus = DeliveryPending
	}
	return true, attempts, nil
}

func (s *PostgresStore) MarkAttemptDelivered(ctx context.Context, sessionID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE empathy_attempts
		SET delivery_status='DELIVERED', updated_at=NOW()
		WHERE session_id=$1 AND user_id=$2
	`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("mark attempt delivered: %w", err)
	}
	return nil
}

const resultColumns = `id, session_id, guesser_id, subject_id, score, alignment_summary, correctly_identified, gap_severity, gap_summary, missed_feelings, misattributions, most_important_gap, action, rationale, sharing_would_help, suggested_share_focus, area_hint, guidance_type, prompt_seed, superseded_at, created_at`

func scanResult(row interface{ Scan(...any) error }) (ReconcilerResult, error) {
	var item ReconcilerResult
	var correctlyIdentified, missedFeelings, misattributions []byte
	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.GuesserID,
		&item.SubjectID,
		&item.Score,
		&item.AlignmentSummary,
		&correctlyIdentified,
		&item.GapSeverity,
		&item.GapSummary,
		&missedFeelings,
		&misattributions,
		&item.MostImportantGap,
		&item.Action,
		&item.Rationale,
		&item.SharingWouldHelp,
		&item.SuggestedShareFocus,
		&item.AreaHint,
		&item.GuidanceType,
		&item.PromptSeed,
		&item.SupersededAt,
		&item.CreatedAt,
	)
	if err != nil {
		return ReconcilerResult{}, err
	}
	_ = json.Unmarshal(correctlyIdentified, &item.CorrectlyIdentified)
	_ = json.Unmarshal(missedFeelings, &item.MissedFeelings)
	_ = json.Unmarshal(misattributions, &item.Misattributions)
	return item, nil
}

// CurrentResult returns the non-superseded result for a direction, or nil
// when the direction has not been analyzed yet.
func (s *PostgresStore) CurrentResult(ctx context.Context, sessionID, guesserID, subjectID string) (*ReconcilerResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM reconciler_results
		WHERE session_id=$1 AND guesser_id=$2 AND subject_id=$3 AND superseded_at IS NULL
	`, sessionID, guesserID, subjectID)
	item, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current result: %w", err)
	}
	return &item, nil
}

// InsertResultIfAbsent creates the current result for a direction unless one
// already exists. The partial unique index makes two racing runs converge on
// a single surviving row; the survivor is returned either way.
func (s *PostgresStore) InsertResultIfAbsent(ctx context.Context, item ReconcilerResult) (ReconcilerResult, bool, error) {
	encode := func(values []string) string {
		if values == nil {
			values = []string{}
		}
		raw, _ := json.Marshal(values)
		return string(raw)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO reconciler_results (
			id, session_id, guesser_id, subject_id,
			score, alignment_summary, correctly_identified,
			gap_severity, gap_summary, missed_feelings, misattributions, most_important_gap,
			action, rationale, sharing_would_help, suggested_share_focus,
			area_hint, guidance_type, prompt_seed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10::jsonb, $11::jsonb, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (session_id, guesser_id, subject_id) WHERE superseded_at IS NULL DO NOTHING
		RETURNING `+resultColumns,
		item.ID, item.SessionID, item.GuesserID, item.SubjectID,
		item.Score, item.AlignmentSummary, encode(item.CorrectlyIdentified),
		item.GapSeverity, item.GapSummary, encode(item.MissedFeelings), encode(item.Misattributions), item.MostImportantGap,
		item.Action, item.Rationale, item.SharingWouldHelp, item.SuggestedShareFocus,
		item.AreaHint, item.GuidanceType, item.PromptSeed,
	)
	created, err := scanResult(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ReconcilerResult{}, false, fmt.Errorf("insert result: %w", err)
	}

	existing, err := s.CurrentResult(ctx, item.SessionID, item.GuesserID, item.SubjectID)
	if err != nil {
		return ReconcilerResult{}, false, err
	}
	if existing == nil {
		return ReconcilerResult{}, false, fmt.Errorf("insert result: lost race and no current row for %s", item.SessionID)
	}
	return *existing, false, nil
}

func (s *PostgresStore) SupersedeResult(ctx context.Context, sessionID, guesserID, subjectID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reconciler_results
		SET superseded_at=NOW()
		WHERE session_id=$1 AND guesser_id=$2 AND subject_id=$3 AND superseded_at IS NULL
	`, sessionID, guesserID, subjectID)
	if err != nil {
		return fmt.Errorf("supersede result: %w", err)
	}
	return nil
}

const offerColumns = `id, result_id, session_id, guesser_id, subject_id, status, suggested_content, suggested_reason, refined_content, shared_content, shared_at, delivery_status, created_at`

func scanOffer(row interface{ Scan(...any) error }) (ShareOffer, error) {
	var item ShareOffer
	err := row.Scan(
		&item.ID,
		&item.ResultID,
		&item.SessionID,
		&item.GuesserID,
		&item.SubjectID,
		&item.Status,
		&item.SuggestedContent,
		&item.SuggestedReason,
		&item.RefinedContent,
		&item.SharedContent,
		&item.SharedAt,
		&item.DeliveryStatus,
		&item.CreatedAt,
	)
	return item, err
}

// InsertShareOffer persists an offer, at most one per analysis result. A
// racing insert for the same result is reported as created=false.
func (s *PostgresStore) InsertShareOffer(ctx context.Context, offer ShareOffer) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO share_offers (id, result_id, session_id, guesser_id, subject_id, status, suggested_content, suggested_reason)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)
		ON CONFLICT (result_id) DO NOTHING
	`, offer.ID, offer.ResultID, offer.SessionID, offer.GuesserID, offer.SubjectID, offer.SuggestedContent, offer.SuggestedReason)
	if err != nil {
		return false, fmt.Errorf("insert share offer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert share offer: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) GetShareOffer(ctx context.Context, offerID string) (ShareOffer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM share_offers
		WHERE id=$1
	`, offerID)
	return scanOffer(row)
}

// PendingShareOfferForSubject returns the open offer addressed to a user, or
// nil when there is none.
func (s *PostgresStore) PendingShareOfferForSubject(ctx context.Context, sessionID, subjectID string) (*ShareOffer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM share_offers
		WHERE session_id=$1 AND subject_id=$2 AND status IN ('PENDING', 'OFFERED')
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionID, subjectID)
	item, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending share offer: %w", err)
	}
	return &item, nil
}

// MarkOfferOffered records that the subject has fetched the suggestion.
func (s *PostgresStore) MarkOfferOffered(ctx context.Context, offerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE share_offers
		SET status='OFFERED'
		WHERE id=$1 AND status='PENDING'
	`, offerID)
	if err != nil {
		return false, fmt.Errorf("mark offer offered: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark offer offered rows: %w", err)
	}
	return affected > 0, nil
}

// ResolveShareOffer moves an open offer to a terminal status. The guard only
// matches PENDING or OFFERED rows, so losing a race reports false instead of
// reapplying effects.
func (s *PostgresStore) ResolveShareOffer(ctx context.Context, offerID, to, refinedContent, sharedContent string, sharedAt *time.Time, deliveryStatus string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE share_offers
		SET status=$2, refined_content=$3, shared_content=$4, shared_at=$5, delivery_status=$6
		WHERE id=$1 AND status IN ('PENDING', 'OFFERED')
	`, offerID, to, refinedContent, sharedContent, sharedAt, deliveryStatus)
	if err != nil {
		return false, fmt.Errorf("resolve share offer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve share offer rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateShareOfferSuggestion regenerates the suggested content of an offer
// that is still OFFERED. Refinement is an action, not a status change.
func (s *PostgresStore) UpdateShareOfferSuggestion(ctx context.Context, offerID, suggestedContent, suggestedReason string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE share_offers
		SET suggested_content=$2, suggested_reason=$3
		WHERE id=$1 AND status IN ('PENDING', 'OFFERED')
	`, offerID, suggestedContent, suggestedReason)
	if err != nil {
		return false, fmt.Errorf("update share offer suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update share offer suggestion rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) HasSharedContent(ctx context.Context, sessionID, guesserID, subjectID string) (bool, error) {
	var shared bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM share_offers
			WHERE session_id=$1 AND guesser_id=$2 AND subject_id=$3
			  AND status='ACCEPTED' AND shared_content <> ''
		)
	`, sessionID, guesserID, subjectID).Scan(&shared)
	if err != nil {
		return false, fmt.Errorf("check shared content: %w", err)
	}
	return shared, nil
}

func (s *PostgresStore) CountPendingOffers(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM share_offers
		WHERE session_id=$1 AND status IN ('PENDING', 'OFFERED')
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending offers: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CheckAttempts(ctx context.Context, sessionID, guesserID, subjectID string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(
			(SELECT attempts FROM refinement_attempts WHERE session_id=$1 AND guesser_id=$2 AND subject_id=$3),
			0
		)
	`, sessionID, guesserID, subjectID).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("check refinement attempts: %w", err)
	}
	return attempts, nil
}

// IncrementAttempts bumps the monotonic per-direction counter and returns the
// new value. Counters are never reset within a session.
func (s *PostgresStore) IncrementAttempts(ctx context.Context, sessionID, guesserID, subjectID string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO refinement_attempts (session_id, guesser_id, subject_id, attempts)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (session_id, guesser_id, subject_id)
		DO UPDATE SET attempts=refinement_attempts.attempts+1, updated_at=NOW()
		RETURNING attempts
	`, sessionID, guesserID, subjectID).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment refinement attempts: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) UpsertWitnessing(ctx context.Context, record WitnessingRecord) error {
	themes := record.Themes
	if themes == nil {
		themes = []string{}
	}
	encodedThemes, err := json.Marshal(themes)
	if err != nil {
		return fmt.Errorf("marshal witnessing themes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO witnessing_content (session_id, user_id, display_name, content, themes)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (session_id, user_id)
		DO UPDATE SET display_name=EXCLUDED.display_name, content=EXCLUDED.content, themes=EXCLUDED.themes, updated_at=NOW()
	`, record.SessionID, record.UserID, record.DisplayName, record.Content, string(encodedThemes))
	if err != nil {
		return fmt.Errorf("upsert witnessing content: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWitnessing(ctx context.Context, sessionID, userID string) (WitnessingRecord, error) {
	var record WitnessingRecord
	var themesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, display_name, content, themes, updated_at
		FROM witnessing_content
		WHERE session_id=$1 AND user_id=$2
	`, sessionID, userID).Scan(&record.SessionID, &record.UserID, &record.DisplayName, &record.Content, &themesRaw, &record.UpdatedAt)
	if err != nil {
		return WitnessingRecord{}, err
	}
	_ = json.Unmarshal(themesRaw, &record.Themes)
	return record, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
