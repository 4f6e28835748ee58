package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/aiusage"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/breakdown"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/demo"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/handler"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/middleware"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/weekly"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/database"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/jwtutil"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/slack"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting workflow copilot service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Build services
	workspaces := workspace.NewService(db, log, cfg.Invite)
	tasks := task.NewService(db, log)
	weeklies := weekly.NewService(db)
	usage := aiusage.NewService(db, cfg.AI)
	demos := demo.NewService(db, log, cfg.Demo.ToolsEnabled)
	slackClient := slack.NewClient(cfg.Slack.WebhookURL)

	authH := handler.NewAuthHandler(db, workspaces)
	workspaceH := handler.NewWorkspaceHandler(workspaces)
	inviteH := handler.NewInviteHandler(workspaces)
	taskH := handler.NewTaskHandler(tasks, workspaces)
	activityH := handler.NewActivityHandler(db, workspaces)
	weeklyH := handler.NewWeeklyHandler(weeklies, tasks, workspaces, slackClient)
	breakdownH := handler.NewBreakdownHandler(breakdown.HeuristicGenerator{}, usage, tasks, workspaces)
	demoH := handler.NewDemoHandler(demos, workspaces)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	api.GET("/me", authH.Me)
	api.POST("/logout", authH.Logout)

	// Workspace context and membership
	workspaces2 := api.Group("/workspace")
	workspaces2.GET("", workspaceH.GetWorkspace)
	workspaces2.PATCH("", workspaceH.RenameWorkspace)
	workspaces2.GET("/all", workspaceH.ListWorkspaces)
	workspaces2.POST("/switch", workspaceH.SwitchWorkspace)
	workspaces2.GET("/members", workspaceH.ListMembers)
	workspaces2.PATCH("/members/:userId", workspaceH.UpdateMemberRole)
	workspaces2.DELETE("/members/:userId", workspaceH.RemoveMember)

	// Invites
	invites := api.Group("/invites")
	invites.POST("", inviteH.CreateInvite)
	invites.GET("", inviteH.ListInvites)
	invites.DELETE("/:inviteId", inviteH.RevokeInvite)
	invites.POST("/redeem", inviteH.RedeemInvite)

	// Tasks and focus
	tasksGroup := api.Group("/tasks")
	tasksGroup.GET("", taskH.ListTasks)
	tasksGroup.POST("", taskH.CreateTask)
	tasksGroup.POST("/:taskId/toggle", taskH.ToggleTask)
	tasksGroup.PATCH("/:taskId", taskH.UpdateTaskTitle)
	tasksGroup.POST("/:taskId/assign", taskH.AssignTask)
	tasksGroup.DELETE("/:taskId", taskH.DeleteTask)
	tasksGroup.GET("/:taskId/activity", taskH.TaskActivity)

	api.GET("/focus", taskH.GetFocus)
	api.POST("/focus/:taskId", taskH.SetFocus)
	api.DELETE("/focus", taskH.ClearFocus)

	// Activity feed
	api.GET("/activity", activityH.WorkspaceActivity)

	// Weekly review
	week := api.Group("/weekly")
	week.GET("", weeklyH.GetWeek)
	week.PUT("/note", weeklyH.SetNote)
	week.POST("/report", weeklyH.GenerateReport)
	week.PUT("/report", weeklyH.SaveReport)
	week.POST("/report/share", weeklyH.ShareReport)

	// AI breakdown
	api.POST("/breakdown", breakdownH.Breakdown)

	// Demo tooling, only wired when enabled
	if cfg.Demo.ToolsEnabled {
		api.POST("/demo/reset", demoH.ResetDemo)
	}

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
