package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/bootstrap"
	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/domain/fiber/handler"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

// Room for several 5MB photos per field plus form overhead.
const bodyLimit = 64 * 1024 * 1024

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	assessorConfig := config.LoadAssessorConfig()
	zlog := logger.NewZapLogger(appConfig.LogFile, appConfig.IsProduction())
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, zlog)
	if err != nil {
		zlog.Error("main", "failed to build application", map[string]interface{}{"error": err})
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		AppName:   appConfig.Name,
		BodyLimit: bodyLimit,
		Immutable: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}
			return ctx.Status(code).JSON(fiber.Map{"success": false, "message": message})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     originsOr(appConfig.BaseURL),
		AllowCredentials: appConfig.BaseURL != "",
		ExposeHeaders:    handler.SessionHeader,
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	handler.NewAssessmentHandler(
		container.Usecase,
		container.Sessions,
		zlog,
		assessorConfig.RateLimitMax,
		appConfig.IsProduction(),
	).RegisterRoutes(app)
	if container.Records != nil {
		handler.NewStatsHandler(container.Records).RegisterRoutes(app)
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				zlog.Debug("main", "runtime stats", map[string]interface{}{"goroutines": runtime.NumGoroutine()})
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		zlog.Info("main", "shutting down", nil)
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			zlog.Error("main", "shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	zlog.Info("main", "server running", map[string]interface{}{"port": appConfig.Port, "backend": assessorConfig.Backend})
	if err := app.Listen(appConfig.Port); err != nil {
		zlog.Error("main", "server stopped", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func originsOr(baseURL string) string {
	if baseURL == "" {
		return "*"
	}
	return baseURL
}
