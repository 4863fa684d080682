package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5/request"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

type ctxKeyType string

const ctxUserKey ctxKeyType = "currentUser"

// UserStore loads the user a token names.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// tokenExtractor reads a bearer header, or a token query argument for
// WebSocket upgrades where browsers cannot set headers.
var tokenExtractor = request.MultiExtractor{
	request.BearerExtractor{},
	request.ArgumentExtractor{"token"},
}

// Middleware resolves the bearer token of each request to a user and stores
// it in the request context. Requests without a token pass through anonymous.
func Middleware(issuer *Issuer, users UserStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenExtractor.ExtractToken(r)
			if err != nil {
				if errors.Is(err, request.ErrNoTokenInRequest) {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			userID, _, err := issuer.Validate(token)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load user for token")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, user)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(ctxUserKey).(*models.User)
	return user
}
