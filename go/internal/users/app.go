package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// UsersRepository defines what the app layer needs from the store
type UsersRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// App handles user lookups
type App struct {
	repo UsersRepository
}

func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// CurrentUser reloads the caller so a group assigned after sign-in shows up.
func (a *App) CurrentUser(ctx context.Context, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	user, err := a.repo.GetUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Your account could not be found in the system.")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
