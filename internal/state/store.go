package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/companionkit/controller/internal/persona"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	name            TEXT NOT NULL,
	age             TEXT NOT NULL DEFAULT '',
	occupation      TEXT NOT NULL DEFAULT '',
	additional_info TEXT NOT NULL DEFAULT '',
	worldview       TEXT NOT NULL DEFAULT '',
	traits_json     TEXT NOT NULL,
	addendum        TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id                 TEXT PRIMARY KEY,
	character_id       TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	affection          INTEGER NOT NULL DEFAULT 50,
	relationship_stage TEXT NOT NULL DEFAULT 'stranger',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	FOREIGN KEY (character_id) REFERENCES characters(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);

CREATE TABLE IF NOT EXISTS quests (
	conversation_id    TEXT NOT NULL,
	quest_id           TEXT NOT NULL,
	kind               TEXT NOT NULL,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	required_affection INTEGER NOT NULL DEFAULT 0,
	cleared            INTEGER NOT NULL DEFAULT 0,
	cleared_at         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (conversation_id, quest_id),
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);

CREATE TABLE IF NOT EXISTS memories (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	character_id    TEXT NOT NULL,
	category        TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);
`
// #endregion schema

// #region store-struct
// Store manages companion state in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for packages that own their own tables
// (recall index, turn log).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region characters

// CreateCharacter stores a new character and returns it with a fresh ID.
func (s *Store) CreateCharacter(userID string, p persona.Persona) (Character, error) {
	traitsJSON, err := json.Marshal(p.Traits)
	if err != nil {
		return Character{}, fmt.Errorf("marshal traits: %w", err)
	}

	c := Character{
		ID:        uuid.New().String(),
		UserID:    userID,
		Persona:   p,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.Exec(
		`INSERT INTO characters (id, user_id, name, age, occupation, additional_info, worldview, traits_json, addendum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, p.Basics.Name, p.Basics.Age, p.Basics.Occupation,
		p.Basics.AdditionalInfo, p.Worldview, string(traitsJSON), p.Addendum,
		c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Character{}, fmt.Errorf("insert character: %w", err)
	}
	return c, nil
}

// GetCharacter retrieves a character by ID.
func (s *Store) GetCharacter(id string) (Character, error) {
	var c Character
	var traitsJSON, createdStr string

	err := s.db.QueryRow(
		`SELECT id, user_id, name, age, occupation, additional_info, worldview, traits_json, addendum, created_at
		 FROM characters WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Persona.Basics.Name, &c.Persona.Basics.Age,
		&c.Persona.Basics.Occupation, &c.Persona.Basics.AdditionalInfo,
		&c.Persona.Worldview, &traitsJSON, &c.Persona.Addendum, &createdStr)
	if err != nil {
		return Character{}, fmt.Errorf("get character %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(traitsJSON), &c.Persona.Traits); err != nil {
		return Character{}, fmt.Errorf("unmarshal traits: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return c, nil
}

// ListCharacters returns all characters owned by a user, newest first.
func (s *Store) ListCharacters(userID string) ([]Character, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, age, occupation, additional_info, worldview, traits_json, addendum, created_at
		 FROM characters WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		var c Character
		var traitsJSON, createdStr string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Persona.Basics.Name, &c.Persona.Basics.Age,
			&c.Persona.Basics.Occupation, &c.Persona.Basics.AdditionalInfo,
			&c.Persona.Worldview, &traitsJSON, &c.Persona.Addendum, &createdStr); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		if err := json.Unmarshal([]byte(traitsJSON), &c.Persona.Traits); err != nil {
			return nil, fmt.Errorf("unmarshal traits: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateAddendum replaces a character's stored addendum. Callers pass the
// full grown addendum; the store does not append.
func (s *Store) UpdateAddendum(characterID, addendum string) error {
	res, err := s.db.Exec(`UPDATE characters SET addendum = ? WHERE id = ?`, addendum, characterID)
	if err != nil {
		return fmt.Errorf("update addendum: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("character %s not found", characterID)
	}
	return nil
}

// #endregion characters

// #region conversations

// CreateConversation starts a new session with a character.
func (s *Store) CreateConversation(characterID, userID string) (Conversation, error) {
	now := time.Now().UTC()
	conv := Conversation{
		ID:          uuid.New().String(),
		CharacterID: characterID,
		UserID:      userID,
		Affection:   50,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	conv.RelationshipStage = persona.StageFor(conv.Affection)

	_, err := s.db.Exec(
		`INSERT INTO conversations (id, character_id, user_id, affection, relationship_stage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.CharacterID, conv.UserID, conv.Affection, conv.RelationshipStage,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(id string) (Conversation, error) {
	var conv Conversation
	var createdStr, updatedStr string

	err := s.db.QueryRow(
		`SELECT id, character_id, user_id, affection, relationship_stage, created_at, updated_at
		 FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.CharacterID, &conv.UserID, &conv.Affection,
		&conv.RelationshipStage, &createdStr, &updatedStr)
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation %s: %w", id, err)
	}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return conv, nil
}

// LatestConversation returns the most recently updated conversation between
// a user and a character, or sql.ErrNoRows wrapped when none exists.
func (s *Store) LatestConversation(characterID, userID string) (Conversation, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM conversations WHERE character_id = ? AND user_id = ?
		 ORDER BY updated_at DESC LIMIT 1`, characterID, userID,
	).Scan(&id)
	if err != nil {
		return Conversation{}, fmt.Errorf("latest conversation: %w", err)
	}
	return s.GetConversation(id)
}

// #endregion conversations

// #region messages

// History returns a conversation's messages in order.
func (s *Store) History(conversationID string) ([]persona.Message, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []persona.Message
	for rows.Next() {
		var m persona.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// AppendTurn atomically appends one (user, reply) pair and updates the
// conversation's affection and relationship stage.
func (s *Store) AppendTurn(conversationID, userMsg, assistantMsg string, affection int, stage string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&nextSeq)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	insert := `INSERT INTO messages (id, conversation_id, seq, role, content, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := tx.Exec(insert, uuid.New().String(), conversationID, nextSeq,
		persona.RoleUser, userMsg, now); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := tx.Exec(insert, uuid.New().String(), conversationID, nextSeq+1,
		persona.RoleAssistant, assistantMsg, now); err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE conversations SET affection = ?, relationship_stage = ?, updated_at = ? WHERE id = ?`,
		affection, stage, now, conversationID,
	); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	return tx.Commit()
}

// #endregion messages

// #region quests

// SeedQuests inserts a quest collection for a conversation. Existing quest
// rows with the same ID are left untouched.
func (s *Store) SeedQuests(conversationID, kind string, quests []persona.Quest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range quests {
		id := q.ID
		if id == "" {
			id = uuid.New().String()
		}
		clearedAt := ""
		if q.Cleared == 1 {
			clearedAt = time.Now().UTC().Format(time.RFC3339Nano)
		}
		_, err := tx.Exec(
			`INSERT INTO quests (conversation_id, quest_id, kind, title, description, required_affection, cleared, cleared_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(conversation_id, quest_id) DO NOTHING`,
			conversationID, id, kind, q.Title, q.Description, q.RequiredAffection, q.Cleared, clearedAt,
		)
		if err != nil {
			return fmt.Errorf("insert quest %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Quests returns a conversation's quest collection of one kind.
func (s *Store) Quests(conversationID, kind string) ([]persona.Quest, error) {
	rows, err := s.db.Query(
		`SELECT quest_id, title, description, required_affection, cleared
		 FROM quests WHERE conversation_id = ? AND kind = ? ORDER BY quest_id ASC`,
		conversationID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var out []persona.Quest
	for rows.Next() {
		var q persona.Quest
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.RequiredAffection, &q.Cleared); err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetQuestCleared marks a quest cleared. The flag only ever moves upward;
// asking to clear an already-cleared quest is a no-op, and asking to
// un-clear one is ignored.
func (s *Store) SetQuestCleared(conversationID, questID string) error {
	_, err := s.db.Exec(
		`UPDATE quests SET cleared = 1, cleared_at = ? WHERE conversation_id = ? AND quest_id = ? AND cleared = 0`,
		time.Now().UTC().Format(time.RFC3339Nano), conversationID, questID,
	)
	if err != nil {
		return fmt.Errorf("set quest cleared: %w", err)
	}
	return nil
}

// ApplyQuestUpdates persists cleared flags from a checked collection.
func (s *Store) ApplyQuestUpdates(conversationID string, quests []persona.Quest) error {
	for _, q := range quests {
		if q.Cleared != 1 {
			continue
		}
		if err := s.SetQuestCleared(conversationID, q.ID); err != nil {
			return err
		}
	}
	return nil
}

// #endregion quests

// #region memories

// InsertMemory stores one extracted fact and returns its ID.
func (s *Store) InsertMemory(conversationID, characterID, category, content string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO memories (id, conversation_id, character_id, category, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, conversationID, characterID, category, content,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	return id, nil
}

// ListMemories returns a character's stored facts, newest first.
func (s *Store) ListMemories(characterID string, limit int) ([]MemoryRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, character_id, category, content, created_at
		 FROM memories WHERE character_id = ? ORDER BY created_at DESC LIMIT ?`,
		characterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []MemoryRecord
	for rows.Next() {
		var m MemoryRecord
		var createdStr string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.CharacterID, &m.Category, &m.Content, &createdStr); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, m)
	}
	return out, rows.Err()
}

// #endregion memories
