package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

type userStoreMock struct {
	getUser func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m userStoreMock) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.getUser(ctx, id)
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, *models.User) {
	t.Helper()
	var seen *models.User
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.CurrentUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareResolvesBearerToken(t *testing.T) {
	groupID := uuid.New()
	mentor := models.User{ID: uuid.New(), Name: "Mia", Role: models.RoleMentor, GroupID: &groupID}
	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Hour)
	token, err := issuer.Issue(mentor, time.Now())
	require.NoError(t, err)

	mw := auth.Middleware(issuer, userStoreMock{getUser: func(_ context.Context, id uuid.UUID) (*models.User, error) {
		require.Equal(t, mentor.ID, id)
		return &mentor, nil
	}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, seen := serve(t, mw, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, mentor.ID, seen.ID)
	assert.Equal(t, models.RoleMentor, seen.Role)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	judge := models.User{ID: uuid.New(), Name: "Jo", Role: models.RoleJudge}
	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Hour)
	token, err := issuer.Issue(judge, time.Now())
	require.NoError(t, err)

	mw := auth.Middleware(issuer, userStoreMock{getUser: func(context.Context, uuid.UUID) (*models.User, error) {
		return &judge, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	_, seen := serve(t, mw, req)
	require.NotNil(t, seen)
	assert.Equal(t, judge.ID, seen.ID)
}

func TestMiddlewareWithoutTokenIsAnonymous(t *testing.T) {
	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Hour)
	mw := auth.Middleware(issuer, userStoreMock{getUser: func(context.Context, uuid.UUID) (*models.User, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}})

	rec, seen := serve(t, mw, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, seen)
}

func TestMiddlewareRejectsForeignSignature(t *testing.T) {
	user := models.User{ID: uuid.New(), Role: models.RoleDirector}
	forged, err := auth.NewIssuer([]byte("other"), "hackjudge", time.Hour).Issue(user, time.Now())
	require.NoError(t, err)

	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Hour)
	mw := auth.Middleware(issuer, userStoreMock{getUser: func(context.Context, uuid.UUID) (*models.User, error) {
		return &user, nil
	}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec, seen := serve(t, mw, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	user := models.User{ID: uuid.New(), Role: models.RoleJudge}
	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Minute)
	token, err := issuer.Issue(user, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	mw := auth.Middleware(issuer, userStoreMock{getUser: func(context.Context, uuid.UUID) (*models.User, error) {
		return &user, nil
	}})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ := serve(t, mw, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareUnknownUserIsAnonymous(t *testing.T) {
	user := models.User{ID: uuid.New(), Role: models.RoleJudge}
	issuer := auth.NewIssuer([]byte("secret"), "hackjudge", time.Hour)
	token, err := issuer.Issue(user, time.Now())
	require.NoError(t, err)

	mw := auth.Middleware(issuer, userStoreMock{getUser: func(_ context.Context, id uuid.UUID) (*models.User, error) {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, seen := serve(t, mw, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, seen)
}
