// internal/generator/mock.go
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/jason-s-yu/classkit/internal/models"
)

// MockGenerator produces deterministic content without a network call. Delay and Err let
// tests simulate a slow or failing backend.
type MockGenerator struct {
	Delay time.Duration
	Err   error
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) ([]models.Item, error) {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
		case <-t.C:
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	topic := req.Topic
	if topic == "" {
		topic = "everyday life"
	}
	excluded := excludeSet(req.Exclude)

	var out []models.Item
	for n := 1; len(out) < req.Count && n <= req.Count+len(req.Exclude); n++ {
		it := mockItem(req.Activity, req.Level, topic, n)
		if _, ex := excluded[normalizeText(it.Text)]; ex {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, ErrNoValidItems
	}
	return out, nil
}

func mockItem(activity models.Activity, level models.Level, topic string, n int) models.Item {
	switch activity {
	case models.ActivityThisOrThat:
		return models.Item{
			Text:    fmt.Sprintf("%s choice %d", topic, n),
			Options: []string{fmt.Sprintf("option %dA", n), fmt.Sprintf("option %dB", n)},
		}
	case models.ActivityAgreeDisagree:
		return models.Item{Text: fmt.Sprintf("Statement %d about %s (%s).", n, topic, level)}
	case models.ActivityDiscussionCards:
		return models.Item{
			Text:      fmt.Sprintf("Question %d about %s (%s)?", n, topic, level),
			FollowUps: []string{"Why do you think so?"},
		}
	default:
		return models.Item{Text: fmt.Sprintf("Talk %d: %s (%s)", n, topic, level)}
	}
}
