package prompts

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/swingdesk/radar-service/internal/db"
)

// Store resolves a named prompt section to its template text. An unknown
// section resolves to "".
type Store interface {
	Section(ctx context.Context, name string) (string, error)
}

// DefaultStore serves the built-in templates.
type DefaultStore struct{}

func (DefaultStore) Section(_ context.Context, name string) (string, error) {
	return defaultSections[name], nil
}

// PgStore reads active templates from prompt_templates and falls back to the
// built-in templates for missing or empty sections.
type PgStore struct {
	db       db.DB
	fallback Store
}

// NewPgStore creates a Postgres-backed Store.
func NewPgStore(database db.DB) *PgStore {
	return &PgStore{db: database, fallback: DefaultStore{}}
}

func (s *PgStore) Section(ctx context.Context, name string) (string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT body FROM prompt_templates WHERE section = $1 AND active = true ORDER BY updated_at DESC LIMIT 1`,
		name,
	)
	if err != nil {
		log.Printf("WARNING: prompt section %s lookup failed, using default: %v", name, err)
		return s.fallback.Section(ctx, name)
	}
	if len(rows) > 0 {
		if body := db.StrVal(rows[0]["body"]); strings.TrimSpace(body) != "" {
			return body, nil
		}
	}
	return s.fallback.Section(ctx, name)
}

// Resolve returns the primary section, or the fallback section when the
// primary is empty. An empty result is an error.
func Resolve(ctx context.Context, store Store, primary, fallback string) (string, error) {
	text, err := store.Section(ctx, primary)
	if err != nil {
		return "", fmt.Errorf("load prompt section %s: %w", primary, err)
	}
	if strings.TrimSpace(text) == "" && fallback != "" {
		text, err = store.Section(ctx, fallback)
		if err != nil {
			return "", fmt.Errorf("load prompt section %s: %w", fallback, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("prompt section %s is empty", primary)
	}
	return text, nil
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Interpolate replaces {name} placeholders with vars. Unknown placeholders
// are left untouched.
func Interpolate(tmpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
