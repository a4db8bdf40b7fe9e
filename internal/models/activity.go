// internal/models/activity.go
package models

// Activity identifies which classroom activity a session runs.
type Activity string

const (
	ActivityFourThreeTwo    Activity = "four_three_two"   // fluency repetition: the same talk in shrinking rounds
	ActivityDiscussionCards Activity = "discussion_cards" // question cards revealed one at a time
	ActivityAgreeDisagree   Activity = "agree_disagree"   // statement polling followed by pair discussion
	ActivityThisOrThat      Activity = "this_or_that"     // two-option voting, swipe navigation
)

// Family groups activities that share a slide expansion strategy.
type Family string

const (
	FamilyRound  Family = "round"
	FamilyCard   Family = "card"
	FamilyPoll   Family = "poll"
	FamilyChoice Family = "choice"
)

// Family returns the expansion family of the activity, or "" for an unknown activity.
func (a Activity) Family() Family {
	switch a {
	case ActivityFourThreeTwo:
		return FamilyRound
	case ActivityDiscussionCards:
		return FamilyCard
	case ActivityAgreeDisagree:
		return FamilyPoll
	case ActivityThisOrThat:
		return FamilyChoice
	default:
		return ""
	}
}

// Activities lists every supported activity in a stable order.
func Activities() []Activity {
	return []Activity{ActivityFourThreeTwo, ActivityDiscussionCards, ActivityAgreeDisagree, ActivityThisOrThat}
}

// InteractionMode is how students are grouped while speaking.
type InteractionMode string

const (
	ModePairs  InteractionMode = "pairs"
	ModeGroups InteractionMode = "groups"
)

// TimerStartPolicy decides who starts a slide timer once it has been reset.
type TimerStartPolicy string

const (
	// TimerStartManual leaves the timer paused until the presenter starts it.
	TimerStartManual TimerStartPolicy = "manual"
	// TimerStartOnEnter starts the timer as soon as the slide is entered.
	TimerStartOnEnter TimerStartPolicy = "on_enter"
	// TimerStartOnFirstInput starts the timer on the first input event of the slide.
	TimerStartOnFirstInput TimerStartPolicy = "on_first_input"
)

// Level is a CEFR proficiency tier. It is opaque to the presentation core and only
// calibrates generated content.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)
