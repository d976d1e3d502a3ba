package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region turn-log

// TurnLog persists turn provenance in its own table on a shared database.
type TurnLog struct {
	db *sql.DB
}

// NewTurnLog creates the turn_log table if needed and returns a logger.
func NewTurnLog(db *sql.DB) (*TurnLog, error) {
	l := &TurnLog{db: db}
	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *TurnLog) init() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS turn_log (
		turn_id          TEXT PRIMARY KEY,
		conversation_id  TEXT NOT NULL,
		turn_count       INTEGER NOT NULL,
		stages           TEXT NOT NULL,
		affection_before INTEGER NOT NULL,
		affection_after  INTEGER NOT NULL,
		duration_ms      INTEGER NOT NULL,
		error            TEXT,
		created_at       TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("init turn_log: %w", err)
	}
	return nil
}

// #endregion turn-log

// #region log

// Log writes one turn entry.
func (l *TurnLog) Log(entry TurnEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(
		`INSERT INTO turn_log (turn_id, conversation_id, turn_count, stages, affection_before, affection_after, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TurnID,
		entry.ConversationID,
		entry.TurnCount,
		entry.Stages,
		entry.AffectionBefore,
		entry.AffectionAfter,
		entry.DurationMS,
		nullIfEmpty(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// #endregion log

// #region list

// ListByConversation returns a conversation's turn entries, oldest first.
func (l *TurnLog) ListByConversation(conversationID string) ([]TurnEntry, error) {
	rows, err := l.db.Query(
		`SELECT turn_id, conversation_id, turn_count, stages, affection_before, affection_after, duration_ms, error, created_at
		 FROM turn_log WHERE conversation_id = ? ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turn log: %w", err)
	}
	defer rows.Close()

	var entries []TurnEntry
	for rows.Next() {
		var e TurnEntry
		var errStr sql.NullString
		var createdStr string
		if err := rows.Scan(&e.TurnID, &e.ConversationID, &e.TurnCount, &e.Stages,
			&e.AffectionBefore, &e.AffectionAfter, &e.DurationMS, &errStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn entry: %w", err)
		}
		if errStr.Valid {
			e.Error = errStr.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
