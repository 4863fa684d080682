package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/rpc"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
	"github.com/mcdev12/hackjudge/go/internal/users"
)

func currentUser(t *testing.T, s *memstore.Store, caller *models.User) (*users.CurrentUserResponse, error) {
	t.Helper()
	path, handler := users.NewHandler(users.NewService(users.NewApp(s)))
	mux := http.NewServeMux()
	mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if caller != nil {
			ctx = auth.WithUser(ctx, caller)
		}
		handler.ServeHTTP(w, r.WithContext(ctx))
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := rpc.NewClient[rpc.Empty, users.CurrentUserResponse](http.DefaultClient, srv.URL+users.GetCurrentUserProcedure)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(&rpc.Empty{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func TestGetCurrentUserReloadsGroup(t *testing.T) {
	s := memstore.New()
	groupID := uuid.New()
	stale := models.User{ID: uuid.New(), Name: "J1", Email: "j1@example.org", Role: models.RoleJudge}
	fresh := stale
	fresh.GroupID = &groupID
	s.AddUser(fresh)

	res, err := currentUser(t, s, &stale)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Equal(t, &groupID, res.User.GroupID)
}

func TestGetCurrentUserErrors(t *testing.T) {
	s := memstore.New()

	_, err := currentUser(t, s, nil)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = currentUser(t, s, &models.User{ID: uuid.New(), Role: models.RoleJudge})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}
