package http

import (
	"context"
	stdhttp "net/http"

	"uplora/internal/audit"
	"uplora/internal/auth"
	"uplora/internal/config"
	"uplora/internal/http/handler"
	"uplora/internal/http/middleware"
	"uplora/internal/rbac/presets"
	"uplora/pkg/metrics"
	"uplora/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

type ServerDependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	AuthMiddleware *auth.Middleware
	Access         *auth.AccessMiddleware
	Uploads        handler.UploadService
	Videos         handler.VideoService
	Teams          handler.TeamService
	Accounts       handler.AccountService
	Events         handler.Subscriber
	Roles          handler.TeamRoleResolver
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// No write timeout: event streams stay open for minutes.
	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(echomiddleware.Recover())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(audit.Middleware())

	// Global rate limiting
	globalRateLimiter := middleware.NewGlobalRateLimiter()
	e.Use(globalRateLimiter.Middleware())

	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		deps.Metrics.RegisterRoute(e)
	}

	if deps.Config.Metrics.Profiling {
		profiling.RegisterRoutes(e.Group("/debug"))
	}

	// Strict rate limiting for auth endpoints
	strictRateLimiter := middleware.NewStrictRateLimiter()

	authHandler := handler.NewAuthHandler(deps.Accounts)
	uploadHandler := handler.NewUploadHandler(deps.Uploads)
	videoHandler := handler.NewVideoHandler(deps.Videos)
	teamHandler := handler.NewTeamHandler(deps.Teams)
	eventsHandler := handler.NewEventsHandler(deps.Events, deps.Roles, deps.Teams, deps.Config.Realtime, deps.Logger)

	e.GET("/health", healthCheck)

	authGroup := e.Group("/auth", strictRateLimiter.Middleware())
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/password/forgot", authHandler.ForgotPassword)
	authGroup.POST("/password/reset", authHandler.ResetPassword)

	api := e.Group("/api")
	api.Use(deps.AuthMiddleware.RequireJWT())

	api.GET("/me", authHandler.Me)
	api.GET("/me/activity", authHandler.Activity)
	api.GET("/events", eventsHandler.Stream)

	s3 := api.Group("/s3")
	s3.POST("/multipart/init", uploadHandler.Init)
	s3.POST("/multipart/sign", uploadHandler.Sign)
	s3.POST("/multipart/complete", uploadHandler.Complete)
	s3.POST("/multipart/cancel", uploadHandler.Cancel)
	s3.POST("/put-complete", uploadHandler.PutComplete)
	s3.POST("/lock/cleanup", uploadHandler.CleanupLocks)
	s3.DELETE("/lock/release", uploadHandler.ReleaseLocks)
	s3.POST("/lock/release", uploadHandler.ReleaseLocks)

	videoAction := deps.Access.RequireVideoAction
	api.GET("/videos", videoHandler.List)
	api.GET("/videos/:id", videoHandler.Get, videoAction(presets.ActionRead))
	api.POST("/videos/:id/request-approval", videoHandler.RequestApproval, videoAction(presets.ActionRequestApproval))
	api.POST("/videos/:id/approve", videoHandler.Approve, videoAction(presets.ActionApprove))
	api.POST("/videos/:id/reject", videoHandler.Reject, videoAction(presets.ActionReject))
	api.DELETE("/videos/:id/delete", videoHandler.Delete, videoAction(presets.ActionDelete))
	api.POST("/videos/:id/replace/presign", videoHandler.ReplacePresign, videoAction(presets.ActionReplace))
	api.POST("/videos/:id/replace/complete", videoHandler.ReplaceComplete, videoAction(presets.ActionReplace))

	teamAction := deps.Access.RequireTeamAction
	api.POST("/teams", teamHandler.Create)
	api.GET("/teams", teamHandler.List)
	api.GET("/teams/:teamId/members", teamHandler.Members, teamAction(presets.ResourceMember, presets.ActionRead))
	api.PATCH("/teams/:teamId/members/:userId", teamHandler.UpdateMember, teamAction(presets.ResourceMember, presets.ActionManage))
	api.DELETE("/teams/:teamId/members/:userId", teamHandler.RemoveMember, teamAction(presets.ResourceMember, presets.ActionManage))
	api.POST("/teams/:teamId/leave", teamHandler.Leave, teamAction(presets.ResourceTeam, presets.ActionRead))
	api.POST("/teams/:teamId/invites", teamHandler.Invite, teamAction(presets.ResourceInvite, presets.ActionCreate))
	api.GET("/teams/:teamId/invites", teamHandler.Invites, teamAction(presets.ResourceInvite, presets.ActionRead))
	api.POST("/teams/:teamId/invite/cancel", teamHandler.CancelInvite, teamAction(presets.ResourceInvite, presets.ActionCancel))

	api.POST("/invites/accept", teamHandler.AcceptInvite)
	api.POST("/invites/decline", teamHandler.DeclineInvite)

	return &Server{
		echo: e,
		deps: deps,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
