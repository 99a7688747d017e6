// Package db provides the SQLite snapshot cache and settlement journal.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

// ErrNoSnapshot is returned when no schedule has been cached yet.
var ErrNoSnapshot = errors.New("no cached schedule")

// SQLite stores the last known schedule and the history of settled flows.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at path and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the cached schedule with snap.
func (s *SQLite) SaveSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if snap == nil {
		snap = &store.Snapshot{}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, payload, group_count, exam_count, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			group_count = excluded.group_count,
			exam_count = excluded.exam_count,
			saved_at = excluded.saved_at
	`
	_, err = s.db.ExecContext(ctx, query,
		string(payload),
		snap.GroupCount(),
		len(snap.AllExams()),
		s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached schedule and when it was saved.
// Returns ErrNoSnapshot if nothing has been cached.
func (s *SQLite) LoadSnapshot(ctx context.Context) (*store.Snapshot, time.Time, error) {
	var payload, savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT payload, saved_at FROM snapshots WHERE id = 1`).
		Scan(&payload, &savedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap store.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	saved, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing saved at: %w", err)
	}
	return &snap, saved, nil
}

// Entry is one settled flow in the journal.
type Entry struct {
	ID         int64
	Outcome    string
	Kind       string
	GroupID    int64
	Label      string
	Target     exam.SlotRef // zero when the flow did not commit
	Room       string
	ExamID     int64
	Error      string
	RecordedAt time.Time
}

// RecordSettlement appends a settled flow to the journal.
func (s *SQLite) RecordSettlement(ctx context.Context, st assign.Settlement) error {
	e := st.Proposal.Entity

	var (
		targetDate, targetSlot, errText sql.NullString
		examID                          sql.NullInt64
	)
	if !st.Target.IsZero() {
		targetDate = sql.NullString{String: st.Target.DayKey(), Valid: true}
		targetSlot = sql.NullString{String: string(st.Target.Name), Valid: true}
	}
	if st.ExamID != 0 {
		examID = sql.NullInt64{Int64: st.ExamID, Valid: true}
	}
	if st.Err != nil {
		errText = sql.NullString{String: st.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO settlements (
			outcome, entity_kind, group_id, label, target_date, target_slot,
			room, exam_id, error, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		st.Outcome.String(),
		e.Kind.String(),
		e.Group.ID,
		e.Label(),
		targetDate,
		targetSlot,
		e.Room,
		examID,
		errText,
		s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording settlement: %w", err)
	}
	return nil
}

// ListSettlements returns the most recent journal entries, newest first.
func (s *SQLite) ListSettlements(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, outcome, entity_kind, group_id, label, target_date, target_slot,
		       room, exam_id, error, recorded_at
		FROM settlements
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying settlements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                                 Entry
			targetDate, targetSlot, room, msg sql.NullString
			examID                            sql.NullInt64
			recordedAt                        string
		)
		err := rows.Scan(
			&e.ID,
			&e.Outcome,
			&e.Kind,
			&e.GroupID,
			&e.Label,
			&targetDate,
			&targetSlot,
			&room,
			&examID,
			&msg,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning settlement: %w", err)
		}

		if targetDate.Valid && targetSlot.Valid {
			day, err := parseDate(targetDate.String)
			if err != nil {
				return nil, fmt.Errorf("parsing target date: %w", err)
			}
			e.Target = exam.NewSlotRef(day, exam.SlotName(targetSlot.String))
		}
		e.Room = room.String
		e.ExamID = examID.Int64
		e.Error = msg.String

		e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlements: %w", err)
	}
	return entries, nil
}

// parseDate parses a date string in various formats SQLite might return.
// Date-only values are parsed as local midnight.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(exam.DateLayout, s, time.Local); err == nil {
		return t, nil
	}

	// DATE columns can come back as "2006-01-02T00:00:00Z".
	if len(s) == 20 && s[10] == 'T' && s[19] == 'Z' && s[11:19] == "00:00:00" {
		if t, err := time.ParseInLocation(exam.DateLayout, s[:10], time.Local); err == nil {
			return t, nil
		}
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}
