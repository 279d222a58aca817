package main

import (
	"fmt"
	"os"

	"agent-service/internal/catalog"
	"agent-service/internal/handler"
	appmiddleware "agent-service/internal/middleware"
	"agent-service/internal/model"
	"agent-service/internal/provision"
	"agent-service/internal/repository"
	"agent-service/pkg/activation"
	"agent-service/pkg/config"
	"agent-service/pkg/database"
	"agent-service/pkg/ingest"
	"agent-service/pkg/jwtutil"
	"agent-service/pkg/logger"
	"agent-service/prometheus"

	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	conf, err := config.Load("agent")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.InitLogger(&logger.LogConfig{
		Level:       conf.Log.Level,
		Environment: conf.Server.Env,
		ServiceName: conf.ServiceName,
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	// Initialize database connection
	db, err := database.InitDB(&conf.Database)
	if err != nil {
		log.Fatal("Failed to initialize database")
	}

	// Run migrations once, before the server accepts traffic
	if err := database.MigrateModels(&model.Organization{}, &model.Agent{}); err != nil {
		log.Fatal("Failed to migrate database models")
	}

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      conf.JWT.SigningKey,
		ExpirationHours: conf.JWT.ExpirationHours,
	})

	// Wire the provisioning pipeline
	ingestClient := ingest.NewClient(&conf.Ingest)
	activationClient := activation.NewClient(&conf.Activation)
	repo := repository.NewAgentRepository(db)
	reader := catalog.NewReader(repo)
	orchestrator := provision.NewOrchestrator(ingestClient, activationClient, repo)
	handler.Init(orchestrator, repo, reader, activationClient, ingestClient)

	// Initialize Echo framework
	e := echo.New()

	// Apply middleware
	e.Use(appmiddleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(prometheus.Middleware())

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Public routes
	e.GET("/agent/hello", handler.Hello)
	e.GET("/health", handler.HealthCheck)

	// Secured routes - require a session token
	agents := e.Group("/agents")
	agents.Use(appmiddleware.JWTAuthMiddleware(jwt))

	agents.POST("/deploy", handler.DeployAgent)
	agents.GET("", handler.ListAgents)
	agents.GET("/:id", handler.GetAgent)
	agents.PUT("/:id", handler.UpdateAgent)
	agents.POST("/:id/activation", handler.RegenerateActivation)
	agents.POST("/:id/documents", handler.UploadDocument)

	orgs := e.Group("/organizations")
	orgs.Use(appmiddleware.JWTAuthMiddleware(jwt))
	orgs.GET("", handler.ListOrganizations)

	// Start server
	log.Info("Starting agent-service on port " + conf.Server.Port)
	e.Logger.Fatal(e.Start(":" + conf.Server.Port))
}
