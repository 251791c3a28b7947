package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/repository"
	"github.com/fadilmartias/ielts-assessor/internal/service"
	"github.com/fadilmartias/ielts-assessor/internal/store"
	"github.com/fadilmartias/ielts-assessor/internal/usecase"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Container holds the wired application services shared by the server and
// the CLI.
type Container struct {
	Log      logger.ILogger
	DB       *gorm.DB
	Records  *repository.AssessmentRecordRepository
	Usecase  *usecase.AssessmentUsecase
	Sessions *store.SessionStore
}

func NewContainer(ctx context.Context, log logger.ILogger) (*Container, error) {
	assessorCfg := config.LoadAssessorConfig()

	collab, err := NewCollaborators(ctx, assessorCfg, log)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Log:      log,
		Sessions: store.NewSessionStore(assessorCfg.SessionTTL),
	}

	var usage usecase.UsageRecorder
	if dbCfg := config.LoadDBConfig(); dbCfg.Enabled() {
		db, err := ConnectDB(dbCfg, config.LoadAppConfig())
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Records = repository.NewAssessmentRecordRepository(db)
		usage = c.Records
	} else {
		log.Info("bootstrap", "usage statistics disabled", nil)
	}

	c.Usecase = usecase.NewAssessmentUsecase(collab, usage, log)
	return c, nil
}

// NewCollaborators builds the transcription, evaluation and analysis
// backends selected by ASSESSOR_BACKEND.
func NewCollaborators(ctx context.Context, cfg *config.AssessorConfig, log logger.ILogger) (usecase.Collaborators, error) {
	collab := usecase.Collaborators{Backend: cfg.Backend, Timeout: cfg.Timeout}

	switch cfg.Backend {
	case config.BackendGemini:
		flow, err := newGeminiFlow(ctx, log)
		if err != nil {
			return collab, err
		}
		collab.Transcriber, collab.Evaluator, collab.Analyzer = flow, flow, flow
	case config.BackendOpenRouter:
		orCfg := config.LoadOpenRouterConfig()
		if orCfg.APIKey == "" {
			return collab, fmt.Errorf("OPENROUTER_API_KEY not set")
		}
		or := service.NewOpenRouterService(orCfg, cfg.Timeout, log)
		collab.Transcriber, collab.Evaluator, collab.Analyzer = or, or, or
	case config.BackendHTTP:
		if cfg.APIURL == "" {
			return collab, fmt.Errorf("ASSESSOR_API_URL not set")
		}
		collab.Remote = service.NewAssessorAPIService(cfg.APIURL, cfg.Timeout, log)
		// The remote API has no text analysis endpoint; use an LLM if one is configured.
		if config.LoadGeminiConfig().APIKey != "" {
			flow, err := newGeminiFlow(ctx, log)
			if err != nil {
				return collab, err
			}
			collab.Analyzer = flow
		} else if orCfg := config.LoadOpenRouterConfig(); orCfg.APIKey != "" {
			collab.Analyzer = service.NewOpenRouterService(orCfg, cfg.Timeout, log)
		}
	default:
		return collab, fmt.Errorf("unknown ASSESSOR_BACKEND %q", cfg.Backend)
	}

	log.Info("bootstrap", "assessment backend ready", map[string]interface{}{"backend": cfg.Backend})
	return collab, nil
}

func newGeminiFlow(ctx context.Context, log logger.ILogger) (*service.GeminiAssessmentFlow, error) {
	gemini, err := service.NewGeminiService(ctx, log)
	if err != nil {
		return nil, err
	}
	return service.NewGeminiAssessmentFlow(gemini, config.LoadGeminiConfig().Model), nil
}

func ConnectDB(dbConfig *config.DBConfig, appConfig *config.AppConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbConfig.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			dbConfig.Host,
			dbConfig.User,
			dbConfig.Password,
			dbConfig.Name,
			dbConfig.Port,
			dbConfig.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(dbConfig.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dialector = sqlite.Open(dbConfig.Path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", dbConfig.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get database instance: %w", err)
	}
	if appConfig.IsProduction() {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.AutoMigrate(&model.AssessmentRecord{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}
