// Package state persists characters, conversations, quests, and memories
// in SQLite. It is the single owner of the core schema; packages that need
// their own tables attach through DB().
package state

// #region imports
import (
	"time"

	"github.com/companionkit/controller/internal/persona"
)

// #endregion

// #region character

// Character is a stored companion character owned by one user.
type Character struct {
	ID        string
	UserID    string
	Persona   persona.Persona
	CreatedAt time.Time
}

// #endregion

// #region conversation

// Conversation is one ongoing chat session with a character. Affection and
// the relationship stage are updated after every successful turn.
type Conversation struct {
	ID                string
	CharacterID       string
	UserID            string
	Affection         int
	RelationshipStage string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// #endregion

// #region memory

// MemoryRecord is one stored atomic fact extracted from a turn.
type MemoryRecord struct {
	ID             string
	ConversationID string
	CharacterID    string
	Category       string
	Content        string
	CreatedAt      time.Time
}

// #endregion
