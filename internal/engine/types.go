// Package engine is the turn orchestration core: it sequences the response,
// quest, profile, and memory stages for each user turn and merges their
// outputs into one TurnResult. It performs no I/O besides the injected
// completion port.
package engine

// #region imports
import (
	"github.com/companionkit/controller/internal/persona"
)

// #endregion

// #region turn-input

// TurnInput is the full per-turn snapshot handed in by the caller.
// History and quest collections are treated as read-only; the engine
// returns updated copies instead of mutating them.
type TurnInput struct {
	UserMessage     string
	Persona         persona.Persona
	History         []persona.Message
	RoutineQuests   []persona.Quest
	MilestoneQuests []persona.Quest
	Affection       int
	Stage           string // relationship stage label, read-only context
}

// #endregion

// #region reply

// Reply is the structured response produced every turn.
// AffectionScore is authoritative for the turn; AffectionChange is
// descriptive only and is never reconciled against the score.
type Reply struct {
	Dialogue        string `json:"dialogue"`
	Action          string `json:"action"`
	Situation       string `json:"situation"`
	Background      string `json:"background"`
	AffectionScore  int    `json:"affection_score"`
	AffectionChange int    `json:"affection_change"`
	InternalThought string `json:"internal_thought"`
}

// #endregion

// #region quest-update

// QuestUpdate carries both quest collections with refreshed cleared flags.
// Checked is false when the quest stage was not on this turn's route; the
// collections then echo the input unchanged.
type QuestUpdate struct {
	Routine   []persona.Quest `json:"routine"`
	Milestone []persona.Quest `json:"milestone"`
	Checked   bool            `json:"checked"`
}

// #endregion

// #region fact-bundle

// FactBundle is one turn's extracted memory facts, split into five fixed
// categories. Categories may be empty but are never nil.
type FactBundle struct {
	Facts                []string `json:"facts"`
	Emotions             []string `json:"emotions"`
	KeyEvents            []string `json:"key_events"`
	UserInfo             []string `json:"user_info"`
	CharacterRevelations []string `json:"character_revelations"`
}

// emptyFacts returns a bundle with all five categories present and empty.
func emptyFacts() FactBundle {
	return FactBundle{
		Facts:                []string{},
		Emotions:             []string{},
		KeyEvents:            []string{},
		UserInfo:             []string{},
		CharacterRevelations: []string{},
	}
}

// normalize replaces nil category slices with empty ones so callers can
// iterate without nil checks.
func (b *FactBundle) normalize() {
	if b.Facts == nil {
		b.Facts = []string{}
	}
	if b.Emotions == nil {
		b.Emotions = []string{}
	}
	if b.KeyEvents == nil {
		b.KeyEvents = []string{}
	}
	if b.UserInfo == nil {
		b.UserInfo = []string{}
	}
	if b.CharacterRevelations == nil {
		b.CharacterRevelations = []string{}
	}
}

// Empty reports whether every category is empty.
func (b FactBundle) Empty() bool {
	return len(b.Facts) == 0 && len(b.Emotions) == 0 && len(b.KeyEvents) == 0 &&
		len(b.UserInfo) == 0 && len(b.CharacterRevelations) == 0
}

// Fact is one categorized memory fact, flattened for storage.
type Fact struct {
	Category string
	Content  string
}

// Flatten lists all facts with their category labels, in category order.
func (b FactBundle) Flatten() []Fact {
	var out []Fact
	add := func(category string, items []string) {
		for _, it := range items {
			out = append(out, Fact{Category: category, Content: it})
		}
	}
	add("facts", b.Facts)
	add("emotions", b.Emotions)
	add("key_events", b.KeyEvents)
	add("user_info", b.UserInfo)
	add("character_revelations", b.CharacterRevelations)
	return out
}

// #endregion

// #region turn-result

// TurnResult merges all stage outputs for one turn.
//
// Addendum is the persona's full addendum after the profile stage ran, or ""
// when the stage was not on the route. When the stage ran but found nothing
// new, Addendum equals the input addendum byte for byte.
type TurnResult struct {
	Reply            Reply
	UpdatedAffection int
	Quests           QuestUpdate
	Addendum         string
	Memory           FactBundle
}

// #endregion
