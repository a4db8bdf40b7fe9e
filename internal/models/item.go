// internal/models/item.go
package models

import (
	"fmt"
	"strings"
)

// Item is one piece of activity content: a speaking prompt, a discussion card, a statement
// to agree or disagree with, or a this-or-that pair.
type Item struct {
	Text      string   `json:"text" validate:"required,max=400"`
	Options   []string `json:"options,omitempty" validate:"omitempty,max=4,unique,dive,required,max=120"`
	FollowUps []string `json:"followUps,omitempty" validate:"omitempty,max=5,dive,required,max=300"`
}

// Normalize trims surrounding whitespace from every text field.
func (it Item) Normalize() Item {
	out := Item{Text: strings.TrimSpace(it.Text)}
	for _, o := range it.Options {
		out.Options = append(out.Options, strings.TrimSpace(o))
	}
	for _, f := range it.FollowUps {
		out.FollowUps = append(out.FollowUps, strings.TrimSpace(f))
	}
	return out
}

// ValidateItem checks an item against the generic tags and the shape the activity expects.
func ValidateItem(activity Activity, it Item) error {
	if err := validate.Struct(it); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if activity == ActivityThisOrThat && len(it.Options) != 2 {
		return fmt.Errorf("%w: this-or-that items need exactly 2 options, got %d", ErrInvalidItem, len(it.Options))
	}
	return nil
}
