package presentation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/rpc"
)

const (
	// ServiceName is the fully-qualified name of the presentation service.
	ServiceName = "judging.v1.PresentationService"

	StartPresentationProcedure     = "/judging.v1.PresentationService/StartPresentation"
	PausePresentationProcedure     = "/judging.v1.PresentationService/PausePresentation"
	ResumePresentationProcedure    = "/judging.v1.PresentationService/ResumePresentation"
	StopPresentationProcedure      = "/judging.v1.PresentationService/StopPresentation"
	CheckIncompleteScoresProcedure = "/judging.v1.PresentationService/CheckIncompleteScores"
	GetGroupPresentationsProcedure = "/judging.v1.PresentationService/GetGroupPresentations"
)

// PresentationApp defines what the service layer needs from the presentation application
type PresentationApp interface {
	Start(ctx context.Context, actor *models.User, devpostID string) (*Transition, error)
	Pause(ctx context.Context, actor *models.User, devpostID string) (*Transition, error)
	Resume(ctx context.Context, actor *models.User, devpostID string) (*Transition, error)
	Stop(ctx context.Context, actor *models.User, devpostID string) (*Transition, error)
	GroupPresentations(ctx context.Context, actor *models.User) (*GroupSchedule, error)
	CheckIncompleteScores(ctx context.Context, actor *models.User) (*GateReport, error)
}

// PresentationRequest names the slot a mentor acts on.
type PresentationRequest struct {
	ProjectDevpostID string `json:"projectDevpostId"`
}

// PresentationResponse is the result of a transition plus the slot it left behind.
type PresentationResponse struct {
	rpc.ActionResult
	Slot   *models.PresentationSlot `json:"slot,omitempty"`
	Origin string                   `json:"origin,omitempty"`
}

// GroupPresentationsResponse is the mentor's schedule.
type GroupPresentationsResponse struct {
	GroupID             uuid.UUID                 `json:"groupId"`
	Presentations       []models.PresentationSlot `json:"presentations"`
	CurrentlyPresenting *string                   `json:"currentlyPresenting,omitempty"`
	ServerTime          time.Time                 `json:"serverTime"`
}

// Service implements the PresentationService connect handlers
type Service struct {
	app PresentationApp
}

// NewService creates a new presentation service
func NewService(app PresentationApp) *Service {
	return &Service{app: app}
}

// NewHandler mounts every procedure of the service under its path.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StartPresentationProcedure, rpc.NewUnaryHandler(StartPresentationProcedure, svc.StartPresentation, opts...))
	mux.Handle(PausePresentationProcedure, rpc.NewUnaryHandler(PausePresentationProcedure, svc.PausePresentation, opts...))
	mux.Handle(ResumePresentationProcedure, rpc.NewUnaryHandler(ResumePresentationProcedure, svc.ResumePresentation, opts...))
	mux.Handle(StopPresentationProcedure, rpc.NewUnaryHandler(StopPresentationProcedure, svc.StopPresentation, opts...))
	mux.Handle(CheckIncompleteScoresProcedure, rpc.NewUnaryHandler(CheckIncompleteScoresProcedure, svc.CheckIncompleteScores, opts...))
	mux.Handle(GetGroupPresentationsProcedure, rpc.NewUnaryHandler(GetGroupPresentationsProcedure, svc.GetGroupPresentations, opts...))
	return "/" + ServiceName + "/", mux
}

// StartPresentation starts the countdown of an upcoming slot
func (s *Service) StartPresentation(ctx context.Context, req *connect.Request[PresentationRequest]) (*connect.Response[PresentationResponse], error) {
	tr, err := s.app.Start(ctx, auth.CurrentUser(ctx), req.Msg.ProjectDevpostID)
	if err != nil {
		return failure(StartPresentationProcedure, err, "starting"), nil
	}
	return success(tr, fmt.Sprintf("Presentation for %s started.", tr.Slot.ProjectName)), nil
}

// PausePresentation freezes the running countdown
func (s *Service) PausePresentation(ctx context.Context, req *connect.Request[PresentationRequest]) (*connect.Response[PresentationResponse], error) {
	tr, err := s.app.Pause(ctx, auth.CurrentUser(ctx), req.Msg.ProjectDevpostID)
	if err != nil {
		return failure(PausePresentationProcedure, err, "pausing"), nil
	}
	return success(tr, fmt.Sprintf("Presentation for %s paused.", tr.Slot.ProjectName)), nil
}

// ResumePresentation continues a paused countdown
func (s *Service) ResumePresentation(ctx context.Context, req *connect.Request[PresentationRequest]) (*connect.Response[PresentationResponse], error) {
	tr, err := s.app.Resume(ctx, auth.CurrentUser(ctx), req.Msg.ProjectDevpostID)
	if err != nil {
		return failure(ResumePresentationProcedure, err, "resuming"), nil
	}
	return success(tr, fmt.Sprintf("Presentation for %s resumed.", tr.Slot.ProjectName)), nil
}

// StopPresentation ends a presentation early
func (s *Service) StopPresentation(ctx context.Context, req *connect.Request[PresentationRequest]) (*connect.Response[PresentationResponse], error) {
	tr, err := s.app.Stop(ctx, auth.CurrentUser(ctx), req.Msg.ProjectDevpostID)
	if err != nil {
		return failure(StopPresentationProcedure, err, "stopping"), nil
	}
	return success(tr, fmt.Sprintf("Presentation ended. Please tell your judges to submit scores for %s.", tr.Slot.ProjectName)), nil
}

// CheckIncompleteScores reports judges who still owe scores in the mentor's group
func (s *Service) CheckIncompleteScores(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[GateReport], error) {
	report, err := s.app.CheckIncompleteScores(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(CheckIncompleteScoresProcedure, err)
	}
	return connect.NewResponse(report), nil
}

// GetGroupPresentations returns the mentor's schedule with live countdowns
func (s *Service) GetGroupPresentations(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[GroupPresentationsResponse], error) {
	schedule, err := s.app.GroupPresentations(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetGroupPresentationsProcedure, err)
	}
	return connect.NewResponse(&GroupPresentationsResponse{
		GroupID:             schedule.GroupID,
		Presentations:       schedule.Slots,
		CurrentlyPresenting: schedule.CurrentlyPresenting,
		ServerTime:          schedule.ServerTime,
	}), nil
}

func success(tr *Transition, message string) *connect.Response[PresentationResponse] {
	slot := tr.Slot
	return connect.NewResponse(&PresentationResponse{
		ActionResult: rpc.Succeeded(message),
		Slot:         &slot,
		Origin:       string(tr.Origin),
	})
}

func failure(procedure string, err error, verb string) *connect.Response[PresentationResponse] {
	fallback := fmt.Sprintf("Unknown error %s presentation. Please try again.", verb)
	return connect.NewResponse(&PresentationResponse{
		ActionResult: rpc.Failed(procedure, err, fallback),
	})
}
