// Package store binds the query layer in internal/db to domain models and
// runs each unit of work inside one Postgres transaction.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/db"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/sqlutil"
)

// Postgres is the transactional store used by the judging and presentation apps.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(database *sql.DB) *Postgres {
	return &Postgres{db: database}
}

// WithinTx runs fn in a transaction, committing only when fn succeeds.
func (p *Postgres) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	return sqlutil.Run(ctx, p.db,
		func(tx *sql.Tx) *Tx { return &Tx{q: db.New(tx)} },
		fn,
	)
}

// GetUser loads one user outside an explicit transaction, for request
// authentication.
func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	tx := &Tx{q: db.New(p.db)}
	return tx.GetUser(ctx, id)
}
