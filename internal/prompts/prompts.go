// Package prompts builds the instruction text for every completion stage.
// Templates are plain consts filled with fmt.Sprintf; stages own the schemas
// the completions must satisfy.
package prompts

// #region imports
import (
	"fmt"
	"strings"

	"github.com/companionkit/controller/internal/persona"
)

// #endregion

// #region character-context

const characterContextTemplate = `CHARACTER PROFILE:
Name: %s
Age: %s
Occupation: %s

Personality: %s
Quirks: %s
Speaking Style: %s
Likes: %s
Dislikes: %s
Background: %s
Goals: %s`

const addendumSuffixTemplate = `

LEARNED DURING CONVERSATIONS (newest last):
%s`

// CharacterContext folds a persona's basics and trait bundle into one context
// blob. A non-empty addendum is appended as a clearly delimited suffix.
func CharacterContext(p persona.Persona) string {
	ctx := fmt.Sprintf(characterContextTemplate,
		orUnknown(p.Basics.Name),
		orUnknown(p.Basics.Age),
		orUnknown(p.Basics.Occupation),
		orUnspecified(p.Traits.Personality),
		orUnspecified(p.Traits.Quirks),
		orUnspecified(p.Traits.SpeakingStyle),
		orUnspecified(p.Traits.Likes),
		orUnspecified(p.Traits.Dislikes),
		orUnspecified(p.Traits.Background),
		orUnspecified(p.Traits.Goals),
	)
	if p.Addendum != "" {
		ctx += fmt.Sprintf(addendumSuffixTemplate, p.Addendum)
	}
	return ctx
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orUnspecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

// #endregion

// #region chat

const chatSystemTemplate = `You are roleplaying as the character described below. Stay in character at all times.

%s

IMPORTANT INSTRUCTIONS:
1. Respond as this character would, maintaining their personality and speaking style
2. Generate natural dialogue that fits the character
3. Describe physical actions, expressions, and body language
4. Update the situation based on the conversation flow
5. Provide atmospheric background descriptions
6. Track affection score (0-100) based on the interaction quality
7. Show internal thoughts that the character doesn't say aloud

Your response must be a JSON object with these fields:
- dialogue: What the character says (in quotes)
- action: Physical actions or expressions (e.g., *smiles warmly*, *looks away nervously*)
- situation: Current situation/scene description
- background: Environmental details and atmosphere
- affection_score: Current affection level (0-100)
- affection_change: How much affection changed this turn (-10 to +10)
- internal_thought: What the character thinks but doesn't say

Current Affection Level: %d/100

Be creative, immersive, and true to the character!`

// ChatSystem builds the response-stage system prompt.
func ChatSystem(characterContext string, affection int) string {
	return fmt.Sprintf(chatSystemTemplate, characterContext, affection)
}

// #endregion

// #region quest-check

const questCheckSystem = `You are a quest completion analyzer for a character interaction system.

Your task is to review conversation history and determine if any quests have been completed.

QUEST TYPES:
- Conversation quests: Ask specific questions, discuss topics
- Action quests: Perform actions together, go places
- Relationship quests: Build rapport, show interest

COMPLETION CRITERIA:
- Quest is clearly addressed in the conversation
- User successfully engages with the quest objective
- The interaction is meaningful and complete

Return the EXACT same JSON structure provided, but update the "cleared" field:
- 0 = Not cleared
- 1 = Cleared in this conversation

Be strict but fair. Only mark as cleared if genuinely completed.`

const questCheckUserTemplate = `Conversation History (last 3 turns):
%s

Quest Structure:
%s

Analyze the conversation and return the quest structure with updated 'cleared' status.`

// QuestCheckSystem returns the routine quest check system prompt.
func QuestCheckSystem() string { return questCheckSystem }

// QuestCheckUser builds the routine quest check payload.
func QuestCheckUser(history, questJSON string) string {
	return fmt.Sprintf(questCheckUserTemplate, history, questJSON)
}

// #endregion

// #region milestone-check

const milestoneCheckSystemTemplate = `You are an advancement quest analyzer for relationship progression.

Advancement quests are special quests that unlock new relationship stages.
They require:
1. Sufficient affection level
2. Meaningful emotional connection
3. Significant relationship milestones
4. Character opening up or trust building

Current Affection: %d/100
Current Relationship Stage: %s

RELATIONSHIP STAGES (in order):
- stranger (0-20 affection)
- acquaintance (20-40 affection)
- friend (40-60 affection)
- close_friend (60-80 affection)
- special (80-100 affection)

Be STRICT with advancement quests. They should represent meaningful progression.
Only mark as cleared if the conversation shows genuine relationship growth.

Return the quest structure with updated 'cleared' status (0 or 1).`

const milestoneCheckUserTemplate = `Conversation History:
%s

Advancement Quest Structure:
%s

Determine if any advancement quests have been completed.`

// MilestoneCheckSystem builds the milestone quest check system prompt.
func MilestoneCheckSystem(affection int, stage string) string {
	return fmt.Sprintf(milestoneCheckSystemTemplate, affection, stage)
}

// MilestoneCheckUser builds the milestone quest check payload.
func MilestoneCheckUser(history, questJSON string) string {
	return fmt.Sprintf(milestoneCheckUserTemplate, history, questJSON)
}

// #endregion

// #region profile

// ProfileNoUpdateMarker is the phrase the capability returns when the recent
// conversation revealed nothing new about the character.
const ProfileNoUpdateMarker = "no significant updates"

const profileSystemTemplate = `You are a character development analyst.

Your job is to identify NEW information about the character that has emerged
from recent conversations, which should be added to their profile.

Look for:
1. NEW likes or dislikes discovered in conversation
2. NEW experiences or memories created
3. NEW traits or quirks revealed
4. NEW relationships or feelings developed
5. NEW knowledge or interests shown

IMPORTANT RULES:
- Only include ADDITIONS, not things already in the original profile
- Be specific and concrete
- If nothing significant is new, return "No significant updates"
- Keep additions natural and character-consistent
- Format as brief bullet points

Original Character Profile:
%s

Recent Conversation:
%s%s

Generate dynamic profile additions (if any):`

// ProfileSystem builds the profile-stage system prompt.
func ProfileSystem(traits persona.TraitBundle, history, questInfo string) string {
	if questInfo != "" {
		questInfo = "\n\nRecent Quest Activity:\n" + questInfo
	}
	return fmt.Sprintf(profileSystemTemplate, formatTraits(traits), history, questInfo)
}

// ProfileUser is the short instruction payload for the profile stage.
const ProfileUser = "Analyze the conversation and identify new character information."

func formatTraits(t persona.TraitBundle) string {
	lines := []string{
		"- Personality: " + t.Personality,
		"- Quirks: " + t.Quirks,
		"- Speaking Style: " + t.SpeakingStyle,
		"- Likes: " + t.Likes,
		"- Dislikes: " + t.Dislikes,
		"- Background: " + t.Background,
		"- Goals: " + t.Goals,
	}
	return strings.Join(lines, "\n")
}

// #endregion

// #region memory

const memorySystemTemplate = `You are a memory extraction specialist for AI character systems.

Your task is to extract atomic facts from conversation turns and categorize them.

ATOMIC FACTS are:
- Single, standalone pieces of information
- Concrete and specific (not vague)
- Factual statements that can be stored independently
- Useful for future reference

Extract and categorize information into:

1. "facts": General factual statements from the conversation
2. "emotions": Emotional moments, feelings expressed, or reactions
3. "key_events": Important events, actions, or milestones
4. "user_info": New information learned about the user
5. "character_revelations": New things revealed about the character

CHARACTER NAME: %s

Return a JSON object with these five categories as lists.
If a category has no items, return an empty list.

Be concise but specific. Focus on memorable, useful information.`

const memoryUserTemplate = `Extract atomic facts from this conversation turn:

%s

Return categorized memory facts in JSON format.`

// MemorySystem builds the memory-stage system prompt.
func MemorySystem(characterName string) string {
	return fmt.Sprintf(memorySystemTemplate, characterName)
}

// MemoryUser builds the memory-stage payload from one formatted turn.
func MemoryUser(turn string) string {
	return fmt.Sprintf(memoryUserTemplate, turn)
}

// FormatTurn renders one (user, reply) pair for memory extraction.
func FormatTurn(userMsg, assistantMsg string) string {
	return fmt.Sprintf("USER: %s\nCHARACTER: %s", userMsg, assistantMsg)
}

// #endregion

// #region creator

const worldviewSystemTemplate = `You are a worldbuilding assistant for an AI companion system.

Write a short worldview for the character below: the setting they live in,
their daily rhythm, and the tone of their world. Two or three paragraphs,
grounded and concrete, no lists.`

const worldviewUserTemplate = `Name: %s
Age: %s
Occupation: %s
Additional Info: %s`

// WorldviewSystem returns the worldview-generation system prompt.
func WorldviewSystem() string { return worldviewSystemTemplate }

// WorldviewUser builds the worldview payload from character basics.
func WorldviewUser(b persona.Basics) string {
	return fmt.Sprintf(worldviewUserTemplate, b.Name, b.Age, b.Occupation, b.AdditionalInfo)
}

const detailsSystemTemplate = `You are a character designer for an AI companion system.

Given the character basics and worldview below, produce the character's
personality details as a JSON object with exactly these string fields:
- personality
- quirks
- speaking_style
- likes
- dislikes
- background
- goals

Each field is one or two sentences. Stay consistent with the worldview.`

const detailsUserTemplate = `Basics:
Name: %s
Age: %s
Occupation: %s
Additional Info: %s

Worldview:
%s`

// DetailsSystem returns the trait-generation system prompt.
func DetailsSystem() string { return detailsSystemTemplate }

// DetailsUser builds the trait-generation payload.
func DetailsUser(b persona.Basics, worldview string) string {
	return fmt.Sprintf(detailsUserTemplate, b.Name, b.Age, b.Occupation, b.AdditionalInfo, worldview)
}

// #endregion

// #region history

// FormatHistory renders messages as "ROLE: content" lines for stage payloads.
func FormatHistory(history []persona.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, strings.ToUpper(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// LastMessages returns the trailing n messages of a history.
func LastMessages(history []persona.Message, n int) []persona.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// #endregion
