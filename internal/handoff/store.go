// internal/handoff/store.go
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/classkit/internal/models"
)

var (
	// ErrNotFound is returned when a key is missing or expired.
	ErrNotFound = errors.New("handoff key not found")
	// ErrCorrupt is returned when a stored value cannot be turned back into a usable config.
	ErrCorrupt = errors.New("handoff value corrupt")
)

// Store carries a session config from the setup screen to the presentation screen.
// Values are transient and scoped to a session; nothing is kept long term.
type Store interface {
	Save(ctx context.Context, cfg models.SessionConfig) (string, error)
	Load(ctx context.Context, key string) (models.SessionConfig, error)
	Delete(ctx context.Context, key string) error
}

func encode(cfg models.SessionConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session config: %w", err)
	}
	return data, nil
}

// decode parses and validates a stored value. Any failure is reported as ErrCorrupt.
func decode(data []byte) (models.SessionConfig, error) {
	var cfg models.SessionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.SessionConfig{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return models.SessionConfig{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return cfg, nil
}
