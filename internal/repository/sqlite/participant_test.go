package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopwithus/internal/apperror"
	"shopwithus/internal/model"
	"shopwithus/internal/repository"
)

// newTestDB returns a DB backed by an in-memory SQLite database that is
// destroyed when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// insertTestParticipant creates a participant and fails the test if it errors.
func insertTestParticipant(t *testing.T, db *DB, prolificID string) *model.Participant {
	t.Helper()
	p := &model.Participant{
		ProlificID: prolificID,
		LLMConsent: true,
	}
	if err := db.Insert(context.Background(), p); err != nil {
		t.Fatalf("failed to insert test participant: %v", err)
	}
	return p
}

// =========================================================================
// INSERT TESTS
// =========================================================================

func TestInsert(t *testing.T) {
	db := newTestDB(t)

	p := &model.Participant{
		ProlificID: "PRLF001",
		LLMConsent: true,
	}

	if err := db.Insert(context.Background(), p); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// The record is modified in-place (pointer receiver)
	if p.ID == "" {
		t.Error("Insert() did not set p.ID")
	}
	if p.Timestamp.IsZero() {
		t.Error("Insert() did not set p.Timestamp")
	}
}

func TestInsert_DuplicateProlificID(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")

	duplicate := &model.Participant{ProlificID: "PRLF001", LLMConsent: true}
	err := db.Insert(context.Background(), duplicate)
	if err == nil {
		t.Fatal("Insert() should have returned an error for duplicate prolific_id")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Insert() error = %v, want ErrConflict", err)
	}
}

func TestInsert_UnsetFieldsStoredAsNull(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")

	got, err := db.FindByProlificID(context.Background(), "PRLF001")
	if err != nil {
		t.Fatalf("FindByProlificID() error = %v", err)
	}

	if got.CookieResponse != nil {
		t.Errorf("CookieResponse = %v, want nil (no decision yet)", *got.CookieResponse)
	}
	if got.ToggleResponse != nil {
		t.Errorf("ToggleResponse = %v, want nil (no decision yet)", *got.ToggleResponse)
	}
	if !got.LLMConsent {
		t.Error("LLMConsent should default to true")
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestFindByProlificID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.FindByProlificID(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByProlificID() error = %v, want ErrNotFound", err)
	}
}

func TestFindBySessionID(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")

	err := db.UpdateFields(context.Background(), "PRLF001", repository.Fields{
		"session_id": "session-token-1",
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	got, err := db.FindBySessionID(context.Background(), "session-token-1")
	if err != nil {
		t.Fatalf("FindBySessionID() error = %v", err)
	}
	if got.ProlificID != "PRLF001" {
		t.Errorf("ProlificID = %q, want %q", got.ProlificID, "PRLF001")
	}
}

func TestFindBySessionID_EmptyToken(t *testing.T) {
	db := newTestDB(t)
	// A logged-out record stores NULL; an empty lookup token must never
	// match it.
	insertTestParticipant(t, db, "PRLF001")

	_, err := db.FindBySessionID(context.Background(), "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindBySessionID(\"\") error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateFields_PartialMerge(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")
	ctx := context.Background()

	// First write: cookie decision
	err := db.UpdateFields(ctx, "PRLF001", repository.Fields{
		"cookie_response": "agree",
	})
	if err != nil {
		t.Fatalf("UpdateFields(cookie_response) error = %v", err)
	}

	// Second write: unrelated fields — must not clobber the first
	err = db.UpdateFields(ctx, "PRLF001", repository.Fields{
		"llm_consent":     false,
		"toggle_response": false,
	})
	if err != nil {
		t.Fatalf("UpdateFields(llm fields) error = %v", err)
	}

	got, err := db.FindByProlificID(ctx, "PRLF001")
	if err != nil {
		t.Fatalf("FindByProlificID() error = %v", err)
	}
	if got.CookieResponse == nil || *got.CookieResponse != "agree" {
		t.Errorf("CookieResponse = %v, want agree (unrelated write clobbered it?)", got.CookieResponse)
	}
	if got.LLMConsent {
		t.Error("LLMConsent = true, want false")
	}
	if got.ToggleResponse == nil || *got.ToggleResponse != false {
		t.Errorf("ToggleResponse = %v, want false", got.ToggleResponse)
	}
}

func TestUpdateFields_RefreshesTimestamp(t *testing.T) {
	db := newTestDB(t)
	p := insertTestParticipant(t, db, "PRLF001")

	time.Sleep(5 * time.Millisecond)
	err := db.UpdateFields(context.Background(), "PRLF001", repository.Fields{
		"cookie_response": "agree",
	})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	got, err := db.FindByProlificID(context.Background(), "PRLF001")
	if err != nil {
		t.Fatalf("FindByProlificID() error = %v", err)
	}
	if !got.Timestamp.After(p.Timestamp) {
		t.Errorf("Timestamp not refreshed: insert=%v update=%v", p.Timestamp, got.Timestamp)
	}
}

func TestUpdateFields_UnknownParticipant(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateFields(context.Background(), "nobody", repository.Fields{
		"cookie_response": "agree",
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateFields() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateFields_RejectsNonWhitelistedColumn(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")

	err := db.UpdateFields(context.Background(), "PRLF001", repository.Fields{
		"prolific_id": "PRLF002", // identity is immutable
	})
	if err == nil {
		t.Fatal("UpdateFields() should reject non-whitelisted columns")
	}
}

func TestUpdateFields_ClearSession(t *testing.T) {
	db := newTestDB(t)
	insertTestParticipant(t, db, "PRLF001")
	ctx := context.Background()

	if err := db.UpdateFields(ctx, "PRLF001", repository.Fields{"session_id": "tok"}); err != nil {
		t.Fatalf("UpdateFields(set session) error = %v", err)
	}
	if err := db.UpdateFields(ctx, "PRLF001", repository.Fields{"session_id": nil}); err != nil {
		t.Fatalf("UpdateFields(clear session) error = %v", err)
	}

	if _, err := db.FindBySessionID(ctx, "tok"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindBySessionID() after clear error = %v, want ErrNotFound", err)
	}
}
