package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"plutus-api/internal/config"
	"plutus-api/internal/llm"
	"plutus-api/internal/logging"
	"plutus-api/internal/middleware"
	"plutus-api/internal/routers"
	"plutus-api/internal/shared"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	googleAPIKey := flag.String("google-generative-ai-api-key", "", "Google Generative AI API key")
	webhookSecret := flag.String("layercode-webhook-secret", "", "Layercode webhook shared secret")
	layercodeAPIKey := flag.String("layercode-api-key", "", "Layercode API key")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	modelEndpoint := flag.String("model-endpoint", "", "Model streaming endpoint override")
	model := flag.String("model", llm.DefaultGeminiModel, "Model name")
	settingsPath := flag.String("settings", "", "Path to YAML settings file")
	debug := flag.Bool("debug", false, "Debug enabled")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		panic(fmt.Sprintf("failed loading settings: %s", err))
	}

	cfg := config.Config{
		GoogleAPIKey:           *googleAPIKey,
		LayercodeWebhookSecret: *webhookSecret,
		LayercodeAPIKey:        *layercodeAPIKey,
		MetricsAPIKey:          *metricsAPIKey,
		AuthorizeEndpoint:      settings.AuthorizeEndpoint,
		ListenAddr:             settings.ListenAddr,
		Debug:                  *debug,
		ServiceName:            settings.ServiceName,
		Environment:            settings.Environment,
		LogDir:                 settings.LogDir,
		LogLevel:               settings.LogLevel,
	}

	mode := logging.DetectMode(*debug)
	log, flush, err := logging.New(logging.Config{
		Mode:        mode,
		Level:       cfg.LogLevel,
		Dir:         cfg.LogDir,
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		panic(fmt.Sprintf("failed init logger: %s", err))
	}
	defer flush()

	// Missing secrets degrade the affected routes rather than stopping
	// the process; the health route reports them and webhook auth
	// fails closed.
	if validation := cfg.Validate(); !validation.Valid {
		log.Errorw("Critical configuration missing",
			"missing", validation.Missing,
			"errors", validation.Errors,
		)
	}

	e := echo.New()
	e.HideBanner = true
	e.GET("/ping", func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" || auth != "Bearer "+*metricsAPIKey {
				return c.String(401, "Missing or invalid API key")
			}
			return next(c)
		}
	})

	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))

	modelClient := llm.NewGeminiClient(cfg.GoogleAPIKey, *modelEndpoint, *model, log)

	// Register routes
	routers.RegisterAgentRoutes(base, cfg, modelClient, log)
	routers.RegisterAuthorizeRoutes(base, cfg, log)
	routers.RegisterHealthRoutes(base, cfg, log)

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
