package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"shopwithus/internal/apperror"
	"shopwithus/internal/model"
	"shopwithus/internal/repository"
)

// compile-time check that *DB implements repository.ParticipantRepository
var _ repository.ParticipantRepository = (*DB)(nil)

// updatableColumns is the whitelist for UpdateFields. Anything outside this
// set is a programming error, not caller input, so we fail loudly.
// id and prolific_id are immutable; timestamp is managed by UpdateFields
// itself.
var updatableColumns = map[string]bool{
	"session_id":      true,
	"cookie_response": true,
	"report_text":     true,
	"llm_consent":     true,
	"toggle_response": true,
	"report_llm_text": true,
}

const participantColumns = `id, prolific_id, session_id, cookie_response,
	report_text, llm_consent, toggle_response, report_llm_text, timestamp`

// Insert creates a new participant record, generating the internal ID and
// timestamp. The caller is expected to have checked for an existing record
// first; a duplicate prolific_id surfaces as a conflict.
func (db *DB) Insert(ctx context.Context, p *model.Participant) error {
	p.ID = xid.New().String()
	p.Timestamp = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO participants
		  (id, prolific_id, session_id, cookie_response, report_text,
		   llm_consent, toggle_response, report_llm_text, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ProlificID,
		nullString(p.SessionID),
		p.CookieResponse,
		p.ReportText,
		p.LLMConsent,
		p.ToggleResponse,
		p.ReportLLMText,
		p.Timestamp,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("participant", p.ProlificID)
		}
		return fmt.Errorf("sqlite: inserting participant %q: %w", p.ProlificID, err)
	}

	return nil
}

// FindByProlificID retrieves a participant by their Prolific ID.
// Returns apperror.ErrNotFound if no record exists.
func (db *DB) FindByProlificID(ctx context.Context, prolificID string) (*model.Participant, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE prolific_id = ?`,
		prolificID,
	)
	return scanParticipant(row, prolificID)
}

// FindBySessionID retrieves the participant holding the given session token.
// Logged-out records have a NULL session_id and can never match; an empty
// token is rejected outright so it cannot accidentally match either.
func (db *DB) FindBySessionID(ctx context.Context, sessionID string) (*model.Participant, error) {
	if sessionID == "" {
		return nil, apperror.NotFound("session", sessionID)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE session_id = ?`,
		sessionID,
	)
	return scanParticipant(row, sessionID)
}

// UpdateFields applies a partial update to the record keyed by prolificID.
// Only whitelisted columns may be set; the record timestamp is refreshed on
// every call. Returns apperror.ErrNotFound if no record matches.
func (db *DB) UpdateFields(ctx context.Context, prolificID string, fields repository.Fields) error {
	if len(fields) == 0 {
		return fmt.Errorf("sqlite: UpdateFields called with no fields")
	}

	// Deterministic column order keeps queries stable for logging and tests.
	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("sqlite: column %q is not updatable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+2)
	for _, col := range columns {
		assignments = append(assignments, col+" = ?")
		args = append(args, fields[col])
	}
	assignments = append(assignments, "timestamp = ?")
	args = append(args, time.Now().UTC(), prolificID)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE participants SET `+strings.Join(assignments, ", ")+` WHERE prolific_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating participant %q: %w", prolificID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("participant", prolificID)
	}

	return nil
}

// scanParticipant reads one row, translating NULL columns back into the
// model's pointer fields and sql.ErrNoRows into apperror.ErrNotFound.
func scanParticipant(row *sql.Row, key string) (*model.Participant, error) {
	var (
		p              model.Participant
		sessionID      sql.NullString
		cookieResponse sql.NullString
		reportText     sql.NullString
		toggleResponse sql.NullBool
		reportLLMText  sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.ProlificID,
		&sessionID,
		&cookieResponse,
		&reportText,
		&p.LLMConsent,
		&toggleResponse,
		&reportLLMText,
		&p.Timestamp,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("participant", key)
		}
		return nil, fmt.Errorf("sqlite: scanning participant: %w", err)
	}

	p.SessionID = sessionID.String
	if cookieResponse.Valid {
		p.CookieResponse = &cookieResponse.String
	}
	if reportText.Valid {
		p.ReportText = &reportText.String
	}
	if toggleResponse.Valid {
		p.ToggleResponse = &toggleResponse.Bool
	}
	if reportLLMText.Valid {
		p.ReportLLMText = &reportLLMText.String
	}

	return &p, nil
}

// nullString maps "" to NULL so an empty session token is stored as the
// absence of a session, not a matchable value.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
