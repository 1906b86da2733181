package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/cache"
	"github.com/apexcrm/apex/internal/llm"
	"github.com/apexcrm/apex/internal/solver"
	"github.com/apexcrm/apex/internal/store"
	"github.com/apexcrm/apex/internal/telemetry"
	"github.com/apexcrm/apex/internal/tools"
)

// Server ties the assistant, storage, and HTTP surface together.
type Server struct {
	cfg     config.Config
	echo    *echo.Echo
	store   *store.Store
	cache   *cache.ResultCache
	solver  *solver.Solver
	metrics *telemetry.Metrics
	logger  *log.Logger
}

// Run starts the API server and blocks until SIGINT or SIGTERM.
func Run(cfg config.Config) error {
	logger := log.New(log.Writer(), "[SERVER] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Storage.Postgres)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	var resultCache *cache.ResultCache
	if cfg.Storage.Redis.Addr != "" {
		resultCache, err = cache.New(ctx, cfg.Storage.Redis)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer resultCache.Close()
	} else {
		logger.Printf("redis not configured, result cache disabled")
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			return fmt.Errorf("llm provider: %w", err)
		}
		logger.Printf("no language model configured, running in fallback mode")
		provider = nil
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New(nil)
	}

	registry := tools.NewRegistry()
	regTools := []tools.Tool{
		tools.NewQueryTool(st, cfg.Solver.RowLimit),
		tools.NewAnalyticsTool(st),
	}
	if provider != nil {
		regTools = append(regTools, tools.NewReasoningTool(provider, cfg.LLM.Routing.Reasoning))
	}
	for _, t := range regTools {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}

	opts := solver.Options{Logger: log.New(log.Writer(), "[SOLVER] ", log.LstdFlags)}
	if metrics != nil {
		opts.Observer = metrics
	}
	s := &Server{
		cfg:     cfg,
		store:   st,
		cache:   resultCache,
		solver:  solver.New(cfg, provider, registry, opts),
		metrics: metrics,
		logger:  logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.HTTPErrorHandler = jsonErrorHandler(logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout, s.withAuth)

	assistant := api.Group("/assistant", s.withAuth)
	assistant.POST("/query", s.handleQuery)
	assistant.GET("/examples", s.handleExamples)
	assistant.GET("/history", s.handleHistory)

	s.echo = e

	if cfg.Warmer.Enabled && resultCache != nil {
		warmer := NewWarmer(cfg.Warmer, st, resultCache, logger)
		go warmer.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Address)
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Printf("server stopped")
	return nil
}

// jsonErrorHandler renders every error as a JSON body with a message field.
func jsonErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		message := "internal server error"
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			} else {
				message = fmt.Sprintf("%v", httpErr.Message)
			}
		} else {
			logger.Printf("unhandled error: %v", err)
		}
		if writeErr := c.JSON(code, map[string]string{"message": message}); writeErr != nil {
			logger.Printf("write error response: %v", writeErr)
		}
	}
}
