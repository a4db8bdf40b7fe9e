// internal/settings/settings.go
package settings

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Theme is the colour scheme every screen renders with.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// CookieName holds the chosen theme between requests.
const CookieName = "classkit_theme"

// ErrInvalidSettings is returned for settings that fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New()

// Settings are application-level preferences resolved once per request and passed down
// explicitly instead of being read ad hoc by each screen.
type Settings struct {
	Theme Theme `json:"theme" validate:"required,oneof=light dark"`
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidSettings, err)
	}
	return nil
}

// Dark reports whether the dark theme is active.
func (s Settings) Dark() bool {
	return s.Theme == ThemeDark
}

type ctxKey struct{}

// WithSettings returns a context carrying s.
func WithSettings(ctx context.Context, s Settings) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the settings in ctx, or light-theme defaults when none were injected.
func FromContext(ctx context.Context) Settings {
	if s, ok := ctx.Value(ctxKey{}).(Settings); ok {
		return s
	}
	return Settings{Theme: ThemeLight}
}

// Middleware resolves the settings of each request from its cookie, falling back to
// defaults, and injects them into the request context.
func Middleware(defaults Settings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := defaults
			if c, err := r.Cookie(CookieName); err == nil {
				candidate := Settings{Theme: Theme(c.Value)}
				if candidate.Validate() == nil {
					s = candidate
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSettings(r.Context(), s)))
		})
	}
}

// Cookie builds the cookie that persists s in the browser.
func Cookie(s Settings) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    string(s.Theme),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}
