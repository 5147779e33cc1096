package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/api"
	"github.com/financeai/backend/internal/chat"
	"github.com/financeai/backend/internal/config"
	"github.com/financeai/backend/internal/jobs"
	"github.com/financeai/backend/internal/registry"
	"github.com/financeai/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "FinanceAgent.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage: one store for uploaded PDFs, one for report files
	uploadStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		fmt.Printf("Failed to initialize upload storage: %v\n", err)
		os.Exit(1)
	}
	reportStore, err := storage.NewLocalStore(cfg.GetReportsDir())
	if err != nil {
		fmt.Printf("Failed to initialize report storage: %v\n", err)
		os.Exit(1)
	}

	// Initialize analysis service client
	analysisClient := analysis.NewClient(
		cfg.Analysis.BaseURL,
		time.Duration(cfg.Analysis.ReportTimeoutSeconds)*time.Second,
	)

	// Initialize conversation log and suggested questions
	chatLog := chat.NewLog()
	questions, err := chat.LoadSuggestedQuestions(cfg.Chat.SuggestionsFile)
	if err != nil {
		fmt.Printf("Warning: failed to load suggested questions, using defaults: %v\n", err)
		questions = chat.DefaultSuggestedQuestions()
	}

	// Initialize document registry and job manager
	docRegistry := registry.New(analysisClient)
	jobManager := jobs.NewManager(analysisClient, docRegistry, chatLog, uploadStore, reportStore)

	// Start background job cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Advanced.JobCleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			jobManager.CleanupOldJobs(time.Duration(cfg.Advanced.JobMaxAgeMinutes) * time.Minute)
		}
	}()

	// Initialize API handler
	h := api.NewHandler(jobManager, docRegistry, chatLog, questions, reportStore, analysisClient)

	// Initialize WebSocket handler
	wsHandler := api.NewWebSocketHandler(h)

	e := echo.New()
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/progress") ||
				strings.Contains(path, "/ws/") ||
				strings.Contains(path, "/documents") ||
				strings.Contains(path, "/report") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - query took too long",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Accept") == "text/event-stream"
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	// API Routes
	apiGroup := e.Group("/api")
	h.RegisterRoutes(apiGroup)

	// WebSocket endpoint
	apiGroup.GET("/ws/jobs", wsHandler.HandleWebSocket)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Finance Agent Backend                           ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Analysis:  %-46s║\n", cfg.Analysis.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}
