package users

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/rpc"
)

const (
	ServiceName = "judging.v1.UserService"

	GetCurrentUserProcedure = "/judging.v1.UserService/GetCurrentUser"
)

// UsersApp defines what the service layer needs from the users application
type UsersApp interface {
	CurrentUser(ctx context.Context, actor *models.User) (*models.User, error)
}

// Service implements the UserService connect handlers
type Service struct {
	app UsersApp
}

func NewService(app UsersApp) *Service {
	return &Service{app: app}
}

func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetCurrentUserProcedure, rpc.NewUnaryHandler(GetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + ServiceName + "/", mux
}

// GetCurrentUser returns the signed-in user with their current role and group
func (s *Service) GetCurrentUser(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[CurrentUserResponse], error) {
	user, err := s.app.CurrentUser(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetCurrentUserProcedure, err)
	}
	return connect.NewResponse(&CurrentUserResponse{User: user}), nil
}
