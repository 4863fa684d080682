// Package memstore is an in-memory store with the same transactional
// contract as the Postgres store. Transactions are serialized and commit a
// copy of the state only when the unit of work succeeds.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

type state struct {
	users     map[uuid.UUID]models.User
	groups    map[uuid.UUID]*models.Group
	projects  map[uuid.UUID]*models.Project
	positions map[uuid.UUID]int
	scores    map[uuid.UUID]*models.Score
	judging   models.JudgingStatus
	hasStatus bool
	outbox    []models.OutboxEvent
}

func newState() *state {
	return &state{
		users:     make(map[uuid.UUID]models.User),
		groups:    make(map[uuid.UUID]*models.Group),
		projects:  make(map[uuid.UUID]*models.Project),
		positions: make(map[uuid.UUID]int),
		scores:    make(map[uuid.UUID]*models.Score),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, u := range s.users {
		c.users[id] = cloneUser(u)
	}
	for id, g := range s.groups {
		c.groups[id] = g.Clone()
	}
	for id, p := range s.projects {
		c.projects[id] = cloneProject(p)
	}
	for id, pos := range s.positions {
		c.positions[id] = pos
	}
	for id, sc := range s.scores {
		c.scores[id] = cloneScore(sc)
	}
	c.judging = s.judging
	c.hasStatus = s.hasStatus
	c.outbox = append([]models.OutboxEvent(nil), s.outbox...)
	return c
}

// Store holds all judging data in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// WithinTx runs fn against a private copy of the state and publishes the
// copy only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{st: s.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// AddUser inserts a user directly, for seeding and tests.
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = cloneUser(u)
}

// User returns a snapshot of one user.
func (s *Store) User(id uuid.UUID) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	return cloneUser(u), ok
}

// Group returns a snapshot of one group.
func (s *Store) Group(id uuid.UUID) (*models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.st.groups[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Groups returns snapshots of every group.
func (s *Store) Groups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Group, 0, len(s.st.groups))
	for _, g := range sortedGroups(s.st.groups) {
		out = append(out, *g.Clone())
	}
	return out
}

// Project returns a snapshot of the project with devpostID.
func (s *Store) Project(devpostID string) (*models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.st.projects {
		if p.DevpostID == devpostID {
			return cloneProject(p), true
		}
	}
	return nil, false
}

// Outbox returns every event written so far.
func (s *Store) Outbox() []models.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OutboxEvent(nil), s.st.outbox...)
}

func cloneUser(u models.User) models.User {
	if u.GroupID != nil {
		id := *u.GroupID
		u.GroupID = &id
	}
	return u
}

func cloneProject(p *models.Project) *models.Project {
	c := *p
	c.TeamMembers = append([]string(nil), p.TeamMembers...)
	if p.GroupID != nil {
		id := *p.GroupID
		c.GroupID = &id
	}
	return &c
}

func cloneScore(s *models.Score) *models.Score {
	c := *s
	c.Criteria = make(map[string]float64, len(s.Criteria))
	for k, v := range s.Criteria {
		c.Criteria[k] = v
	}
	return &c
}

// GetUser loads one user, for request authentication.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.WithinTx(ctx, func(tx *Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		return err
	})
	return user, err
}
