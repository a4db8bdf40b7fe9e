// internal/generator/prompt.go
package generator

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/classkit/internal/models"
)

const baseSystemPrompt = `
You write classroom speaking-practice content for English language learners.

Rules:
- Calibrate vocabulary and grammar to the CEFR level you are given.
- Keep every text short enough to read aloud from a projector.
- Avoid sensitive, violent or adult topics.
- Never repeat an item from the exclusion list.
- Reply with a single JSON object of the form {"items": [...]} and nothing else.
`

// itemShapes describes the JSON shape of one item per activity.
var itemShapes = map[models.Activity]string{
	models.ActivityFourThreeTwo: `Each item is a talk topic a student can speak about for several minutes:
{"text": "<topic as a question or prompt>", "followUps": ["<optional hint>", ...]}`,
	models.ActivityDiscussionCards: `Each item is a discussion question card:
{"text": "<open question>", "followUps": ["<follow-up question>", ...]}`,
	models.ActivityAgreeDisagree: `Each item is a debatable statement students agree or disagree with:
{"text": "<statement, not a question>", "followUps": ["<question to justify the opinion>", ...]}`,
	models.ActivityThisOrThat: `Each item is a pair of options to choose between:
{"text": "<short category label>", "options": ["<option A>", "<option B>"]}
"options" must contain exactly two different entries.`,
}

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// BuildPrompt builds the system prompt and the user content for a request.
func BuildPrompt(req Request) Prompt {
	var sys strings.Builder
	sys.WriteString(strings.TrimSpace(baseSystemPrompt))
	sys.WriteString("\n\nItem shape:\n")
	sys.WriteString(itemShapes[req.Activity])

	var user strings.Builder
	fmt.Fprintf(&user, "Level: %s\n", req.Level)
	fmt.Fprintf(&user, "Number of items: %d\n", req.Count)
	if req.Topic != "" {
		fmt.Fprintf(&user, "Topic: %s\n", req.Topic)
	}
	if len(req.Exclude) > 0 {
		user.WriteString("Do not repeat any of these:\n")
		for _, e := range req.Exclude {
			fmt.Fprintf(&user, "- %s\n", e)
		}
	}

	return Prompt{System: sys.String(), User: user.String()}
}
