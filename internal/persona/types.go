package persona

// #region basics

// Basics holds the immutable identity fields of a companion character.
type Basics struct {
	Name           string `json:"name"`
	Age            string `json:"age"`
	Occupation     string `json:"occupation"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// #endregion

// #region trait-bundle

// TraitBundle is the mutable personality description generated at creation time.
type TraitBundle struct {
	Personality   string `json:"personality"`
	Quirks        string `json:"quirks"`
	SpeakingStyle string `json:"speaking_style"`
	Likes         string `json:"likes"`
	Dislikes      string `json:"dislikes"`
	Background    string `json:"background"`
	Goals         string `json:"goals"`
}

// #endregion

// #region persona

// Persona is a complete character: identity, worldview, traits, and the
// append-only addendum of traits learned during conversations.
type Persona struct {
	Basics    Basics      `json:"basics"`
	Worldview string      `json:"worldview,omitempty"`
	Traits    TraitBundle `json:"traits"`
	Addendum  string      `json:"addendum,omitempty"`
}

// #endregion

// #region messages

// Message roles as stored in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one utterance in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnCount returns the number of complete turns in a history.
// One turn = one user message + one assistant reply.
func TurnCount(history []Message) int {
	return len(history) / 2
}

// #endregion

// #region quests

// Quest kinds. Routine quests are everyday conversation goals; milestone
// quests gate relationship progression and carry an affection requirement.
const (
	QuestRoutine   = "routine"
	QuestMilestone = "milestone"
)

// Quest is a tracked conversation goal with a binary cleared flag.
// Cleared is 0 or 1; once 1 it must never be downgraded within a conversation.
type Quest struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	RequiredAffection int    `json:"required_affection,omitempty"`
	Cleared           int    `json:"cleared"`
}

// #endregion

// #region addendum

// AddendumHeading delimits each batch of profile additions.
const AddendumHeading = "=== Recent Updates ==="

// AppendAddendum appends new profile content under a fresh heading.
// The existing addendum is never rewritten, only grown.
func AppendAddendum(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "\n\n" + AddendumHeading + "\n" + addition
}

// #endregion
