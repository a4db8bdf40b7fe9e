// internal/generator/fallback.go
package generator

import (
	"github.com/jason-s-yu/classkit/internal/models"
)

// fallbackBank is the offline content used when the backend is unavailable.
var fallbackBank = map[models.Activity][]models.Item{
	models.ActivityFourThreeTwo: {
		{Text: "Describe a memorable trip you have taken.", FollowUps: []string{"Where did you go?", "Who were you with?", "What surprised you?"}},
		{Text: "Talk about a skill you would like to learn.", FollowUps: []string{"Why this skill?", "How would you learn it?"}},
		{Text: "Describe your ideal weekend.", FollowUps: []string{"Where are you?", "What do you eat?"}},
		{Text: "Talk about a person who has influenced you.", FollowUps: []string{"How did you meet?", "What did you learn from them?"}},
		{Text: "Describe the place where you grew up."},
		{Text: "Talk about a film or book you recommend."},
	},
	models.ActivityDiscussionCards: {
		{Text: "What makes a good friend?", FollowUps: []string{"Has a friend ever surprised you?"}},
		{Text: "How has technology changed the way we communicate?"},
		{Text: "What is the best advice you have ever received?"},
		{Text: "Would you rather live in a big city or in the countryside? Why?"},
		{Text: "What job would you do if money did not matter?"},
		{Text: "Which tradition from your culture would you like to keep forever?"},
		{Text: "What is something you changed your mind about?"},
		{Text: "How do you usually deal with stress?"},
	},
	models.ActivityAgreeDisagree: {
		{Text: "Homework should be optional.", FollowUps: []string{"What would students do instead?"}},
		{Text: "Everyone should learn to cook at school."},
		{Text: "Social media does more harm than good."},
		{Text: "It is better to travel alone than with friends."},
		{Text: "Money can buy happiness."},
		{Text: "Cities should ban cars from the centre."},
	},
	models.ActivityThisOrThat: {
		{Text: "Drinks", Options: []string{"tea", "coffee"}},
		{Text: "Holidays", Options: []string{"beach", "mountains"}},
		{Text: "Pets", Options: []string{"cats", "dogs"}},
		{Text: "Evenings", Options: []string{"going out", "staying in"}},
		{Text: "Reading", Options: []string{"books", "e-readers"}},
		{Text: "Seasons", Options: []string{"summer", "winter"}},
		{Text: "Food", Options: []string{"sweet", "savoury"}},
	},
}

// FallbackItems returns up to req.Count built-in items for the activity, skipping excluded
// texts. The result is a fresh copy.
func FallbackItems(req Request) []models.Item {
	excluded := excludeSet(req.Exclude)
	var out []models.Item
	for _, it := range fallbackBank[req.Activity] {
		if req.Count > 0 && len(out) >= req.Count {
			break
		}
		if _, ex := excluded[normalizeText(it.Text)]; ex {
			continue
		}
		out = append(out, models.Item{
			Text:      it.Text,
			Options:   append([]string(nil), it.Options...),
			FollowUps: append([]string(nil), it.FollowUps...),
		})
	}
	return out
}
