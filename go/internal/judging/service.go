package judging

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/rpc"
)

const (
	// ServiceName is the fully-qualified name of the judging service.
	ServiceName = "judging.v1.JudgingService"

	FormGroupsProcedure                     = "/judging.v1.JudgingService/FormGroups"
	BeginJudgingProcedure                   = "/judging.v1.JudgingService/BeginJudging"
	EndJudgingProcedure                     = "/judging.v1.JudgingService/EndJudging"
	SubmitScoreProcedure                    = "/judging.v1.JudgingService/SubmitScore"
	GetAllGroupsPresentationStatusProcedure = "/judging.v1.JudgingService/GetAllGroupsPresentationStatus"
	GetGroupProjectsProcedure               = "/judging.v1.JudgingService/GetGroupProjects"
	GetMyScoresProcedure                    = "/judging.v1.JudgingService/GetMyScores"
	GetScoreboardProcedure                  = "/judging.v1.JudgingService/GetScoreboard"
	GetCurrentlyPresentingProcedure         = "/judging.v1.JudgingService/GetCurrentlyPresenting"
	GetJudgingStatusProcedure               = "/judging.v1.JudgingService/GetJudgingStatus"
	GetServerTimeProcedure                  = "/judging.v1.JudgingService/GetServerTime"
	GetCriteriaProcedure                    = "/judging.v1.JudgingService/GetCriteria"
)

// JudgingApp defines what the service layer needs from the judging application
type JudgingApp interface {
	FormGroups(ctx context.Context, actor *models.User) (*FormGroupsResult, error)
	BeginJudging(ctx context.Context, actor *models.User) (*models.JudgingStatus, error)
	EndJudging(ctx context.Context, actor *models.User) (*models.JudgingStatus, error)
	SubmitScore(ctx context.Context, actor *models.User, devpostID string, criteria map[string]float64) (*models.Score, error)
	AllGroupsStatus(ctx context.Context, actor *models.User) ([]GroupStatus, error)
	GroupProjects(ctx context.Context, actor *models.User) ([]models.Project, error)
	MyScores(ctx context.Context, actor *models.User) ([]models.Score, error)
	Scoreboard(ctx context.Context, actor *models.User) ([]ScoreboardEntry, error)
	CurrentlyPresenting(ctx context.Context, actor *models.User) (string, error)
	JudgingStatus(ctx context.Context) (models.JudgingStatus, error)
	ServerTime() time.Time
	Criteria() []Criterion
}

type FormGroupsResponse struct {
	rpc.ActionResult
	GroupCount   int `json:"groupCount,omitempty"`
	ProjectCount int `json:"projectCount,omitempty"`
}

type JudgingToggleResponse struct {
	rpc.ActionResult
	Active bool `json:"active"`
}

type SubmitScoreRequest struct {
	ProjectDevpostID string             `json:"projectDevpostId"`
	Criteria         map[string]float64 `json:"criteria"`
}

type SubmitScoreResponse struct {
	rpc.ActionResult
	Score *models.Score `json:"score,omitempty"`
}

type GroupStatusResponse struct {
	Groups []GroupStatus `json:"groups"`
}

type GroupProjectsResponse struct {
	Projects []models.Project `json:"projects"`
}

type MyScoresResponse struct {
	Scores []models.Score `json:"scores"`
}

type ScoreboardResponse struct {
	Entries []ScoreboardEntry `json:"entries"`
}

type CurrentlyPresentingResponse struct {
	ProjectName string `json:"projectName,omitempty"`
}

type JudgingStatusResponse struct {
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ServerTimeResponse struct {
	ServerTime time.Time `json:"serverTime"`
}

type CriteriaResponse struct {
	Criteria []Criterion `json:"criteria"`
	MinScore float64     `json:"minScore"`
	MaxScore float64     `json:"maxScore"`
}

// Service implements the JudgingService connect handlers
type Service struct {
	app JudgingApp
	cfg Config
}

// NewService creates a new judging service
func NewService(app JudgingApp, cfg Config) *Service {
	return &Service{app: app, cfg: cfg}
}

// NewHandler mounts every procedure of the service under its path.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(FormGroupsProcedure, rpc.NewUnaryHandler(FormGroupsProcedure, svc.FormGroups, opts...))
	mux.Handle(BeginJudgingProcedure, rpc.NewUnaryHandler(BeginJudgingProcedure, svc.BeginJudging, opts...))
	mux.Handle(EndJudgingProcedure, rpc.NewUnaryHandler(EndJudgingProcedure, svc.EndJudging, opts...))
	mux.Handle(SubmitScoreProcedure, rpc.NewUnaryHandler(SubmitScoreProcedure, svc.SubmitScore, opts...))
	mux.Handle(GetAllGroupsPresentationStatusProcedure, rpc.NewUnaryHandler(GetAllGroupsPresentationStatusProcedure, svc.GetAllGroupsPresentationStatus, opts...))
	mux.Handle(GetGroupProjectsProcedure, rpc.NewUnaryHandler(GetGroupProjectsProcedure, svc.GetGroupProjects, opts...))
	mux.Handle(GetMyScoresProcedure, rpc.NewUnaryHandler(GetMyScoresProcedure, svc.GetMyScores, opts...))
	mux.Handle(GetScoreboardProcedure, rpc.NewUnaryHandler(GetScoreboardProcedure, svc.GetScoreboard, opts...))
	mux.Handle(GetCurrentlyPresentingProcedure, rpc.NewUnaryHandler(GetCurrentlyPresentingProcedure, svc.GetCurrentlyPresenting, opts...))
	mux.Handle(GetJudgingStatusProcedure, rpc.NewUnaryHandler(GetJudgingStatusProcedure, svc.GetJudgingStatus, opts...))
	mux.Handle(GetServerTimeProcedure, rpc.NewUnaryHandler(GetServerTimeProcedure, svc.GetServerTime, opts...))
	mux.Handle(GetCriteriaProcedure, rpc.NewUnaryHandler(GetCriteriaProcedure, svc.GetCriteria, opts...))
	return "/" + ServiceName + "/", mux
}

// FormGroups redistributes judges and projects across mentors
func (s *Service) FormGroups(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[FormGroupsResponse], error) {
	res, err := s.app.FormGroups(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return connect.NewResponse(&FormGroupsResponse{
			ActionResult: rpc.Failed(FormGroupsProcedure, err, "Unknown error creating groups. Please try again."),
		}), nil
	}
	return connect.NewResponse(&FormGroupsResponse{
		ActionResult: rpc.Succeeded("Groups created and projects assigned."),
		GroupCount:   len(res.Groups),
		ProjectCount: res.Projects,
	}), nil
}

// BeginJudging opens the judging event
func (s *Service) BeginJudging(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[JudgingToggleResponse], error) {
	status, err := s.app.BeginJudging(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return connect.NewResponse(&JudgingToggleResponse{
			ActionResult: rpc.Failed(BeginJudgingProcedure, err, "Unknown error starting judging. Please try again."),
		}), nil
	}
	return connect.NewResponse(&JudgingToggleResponse{
		ActionResult: rpc.Succeeded("Judging has began."),
		Active:       status.Active,
	}), nil
}

// EndJudging closes the judging event
func (s *Service) EndJudging(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[JudgingToggleResponse], error) {
	status, err := s.app.EndJudging(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return connect.NewResponse(&JudgingToggleResponse{
			ActionResult: rpc.Failed(EndJudgingProcedure, err, "Unknown error ending judging. Please try again."),
		}), nil
	}
	return connect.NewResponse(&JudgingToggleResponse{
		ActionResult: rpc.Succeeded("Judging has ended."),
		Active:       status.Active,
	}), nil
}

// SubmitScore records a judge's score for a presented project
func (s *Service) SubmitScore(ctx context.Context, req *connect.Request[SubmitScoreRequest]) (*connect.Response[SubmitScoreResponse], error) {
	score, err := s.app.SubmitScore(ctx, auth.CurrentUser(ctx), req.Msg.ProjectDevpostID, req.Msg.Criteria)
	if err != nil {
		return connect.NewResponse(&SubmitScoreResponse{
			ActionResult: rpc.Failed(SubmitScoreProcedure, err, "Unknown error submitting score. Please try again."),
		}), nil
	}
	return connect.NewResponse(&SubmitScoreResponse{
		ActionResult: rpc.Succeeded("Successfully submitted score."),
		Score:        score,
	}), nil
}

// GetAllGroupsPresentationStatus summarizes every group for the director
func (s *Service) GetAllGroupsPresentationStatus(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[GroupStatusResponse], error) {
	groups, err := s.app.AllGroupsStatus(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetAllGroupsPresentationStatusProcedure, err)
	}
	return connect.NewResponse(&GroupStatusResponse{Groups: groups}), nil
}

// GetGroupProjects lists the projects of the caller's group
func (s *Service) GetGroupProjects(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[GroupProjectsResponse], error) {
	projects, err := s.app.GroupProjects(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetGroupProjectsProcedure, err)
	}
	return connect.NewResponse(&GroupProjectsResponse{Projects: projects}), nil
}

// GetMyScores lists the calling judge's scores
func (s *Service) GetMyScores(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[MyScoresResponse], error) {
	scores, err := s.app.MyScores(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetMyScoresProcedure, err)
	}
	return connect.NewResponse(&MyScoresResponse{Scores: scores}), nil
}

// GetScoreboard ranks projects for the director
func (s *Service) GetScoreboard(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[ScoreboardResponse], error) {
	entries, err := s.app.Scoreboard(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetScoreboardProcedure, err)
	}
	return connect.NewResponse(&ScoreboardResponse{Entries: entries}), nil
}

// GetCurrentlyPresenting names the project presenting in the judge's group
func (s *Service) GetCurrentlyPresenting(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[CurrentlyPresentingResponse], error) {
	name, err := s.app.CurrentlyPresenting(ctx, auth.CurrentUser(ctx))
	if err != nil {
		return nil, rpc.ConnectError(GetCurrentlyPresentingProcedure, err)
	}
	return connect.NewResponse(&CurrentlyPresentingResponse{ProjectName: name}), nil
}

// GetJudgingStatus reports whether judging is active
func (s *Service) GetJudgingStatus(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[JudgingStatusResponse], error) {
	status, err := s.app.JudgingStatus(ctx)
	if err != nil {
		return nil, rpc.ConnectError(GetJudgingStatusProcedure, err)
	}
	return connect.NewResponse(&JudgingStatusResponse{Active: status.Active, UpdatedAt: status.UpdatedAt}), nil
}

// GetServerTime returns the server clock
func (s *Service) GetServerTime(_ context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[ServerTimeResponse], error) {
	return connect.NewResponse(&ServerTimeResponse{ServerTime: s.app.ServerTime()}), nil
}

// GetCriteria returns the scoring rubric
func (s *Service) GetCriteria(_ context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[CriteriaResponse], error) {
	return connect.NewResponse(&CriteriaResponse{
		Criteria: s.app.Criteria(),
		MinScore: s.cfg.MinScore,
		MaxScore: s.cfg.MaxScore,
	}), nil
}
