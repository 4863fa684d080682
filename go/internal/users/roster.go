package users

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// LoadRoster reads and validates a roster file.
func LoadRoster(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()
	return ParseRoster(f)
}

func ParseRoster(r io.Reader) (*Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return &roster, nil
}

// Validate checks every entry and rejects duplicate emails.
func (r *Roster) Validate() error {
	seen := make(map[string]int, len(r.Users))
	for i, e := range r.Users {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("roster entry %d: %w", i+1, err)
		}
		key := strings.ToLower(e.Email)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("roster entry %d: email %s already used by entry %d", i+1, e.Email, prev)
		}
		seen[key] = i + 1
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if e.Email == "" {
		return fmt.Errorf("email is required")
	}
	if at := strings.IndexByte(e.Email, '@'); at <= 0 || !strings.Contains(e.Email[at:], ".") {
		return fmt.Errorf("email %q is invalid", e.Email)
	}
	if !e.Role.Valid() {
		return fmt.Errorf("role %q must be director, mentor or judge", e.Role)
	}
	return nil
}

// ID is the stable user id for the entry's email.
func (e Entry) ID() uuid.UUID {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(e.Email)))
}

// User converts the entry into a user record without a group.
func (e Entry) User(now time.Time) models.User {
	return models.User{
		ID:        e.ID(),
		Name:      strings.TrimSpace(e.Name),
		Email:     e.Email,
		Role:      e.Role,
		CreatedAt: now,
	}
}

// Accounts converts the whole roster.
func (r *Roster) Accounts(now time.Time) []models.User {
	out := make([]models.User, len(r.Users))
	for i, e := range r.Users {
		out[i] = e.User(now)
	}
	return out
}
