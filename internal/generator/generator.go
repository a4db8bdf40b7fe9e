// internal/generator/generator.go
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/classkit/internal/models"
)

var (
	// ErrGenerationFailed wraps every failure of the content backend (network, empty or
	// malformed output).
	ErrGenerationFailed = errors.New("content generation failed")
	// ErrNoValidItems is returned when output parsed but no item matched the activity's shape.
	ErrNoValidItems = fmt.Errorf("%w: no valid items", ErrGenerationFailed)
	// ErrInvalidRequest is returned for a request that fails validation.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("generation job not found")
)

// DefaultCount is used when a request does not say how many items it wants.
const DefaultCount = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request describes the content to produce for one activity.
type Request struct {
	Activity models.Activity `json:"activity" validate:"required,oneof=four_three_two discussion_cards agree_disagree this_or_that"`
	Level    models.Level    `json:"level" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	Count    int             `json:"count" validate:"min=1,max=20"`
	Topic    string          `json:"topic,omitempty" validate:"max=200"`
	// Exclude lists item texts produced earlier that must not be repeated.
	Exclude []string `json:"exclude,omitempty" validate:"max=100,dive,max=400"`
}

// Normalize trims the topic and applies the default count.
func (r Request) Normalize() Request {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	r.Level = models.Level(strings.ToUpper(string(r.Level)))
	return r
}

func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Generator produces validated items for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.Item, error)
}

// excludeSet normalizes texts for duplicate and exclusion checks.
func excludeSet(texts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		set[normalizeText(t)] = struct{}{}
	}
	return set
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
