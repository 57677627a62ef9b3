package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/agrolink/messaging/internal/app/controllers"
	appMigrations "github.com/agrolink/messaging/internal/app/migrations"
	appRepos "github.com/agrolink/messaging/internal/app/repositories"
	appRoutes "github.com/agrolink/messaging/internal/app/routes"
	appServices "github.com/agrolink/messaging/internal/app/services"
	"github.com/agrolink/messaging/internal/config"
	"github.com/agrolink/messaging/internal/db"
	pkgAuth "github.com/agrolink/messaging/internal/pkg/auth"
	"github.com/agrolink/messaging/internal/pkg/logger"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	ConversationService    appServices.ConversationService
	MessageService         appServices.MessageService
	ConversationController *appControllers.ConversationController
	MessageController      *appControllers.MessageController
	SearchController       *appControllers.SearchController
	Hub                    *websocket.Hub
	WebSocketHandler       *websocket.Handler
	Repos                  *appRepos.Repositories
	JWTService             *pkgAuth.JWTService
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied")

	return dbPool, nil
}

// BuildDependencies initializes repositories, services, the websocket hub
// and controllers
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenExp:    config.ParseDurationOrDefault(cfg.JWT.TokenExpiration, time.Hour),
		TokenIssuer: cfg.JWT.Issuer,
	})

	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run()

	deps.ConversationService = appServices.NewConversationService(
		deps.Repos.Conversations,
		deps.Repos.Participants,
		deps.Repos.Users,
		deps.Hub,
		lgr,
	)
	deps.MessageService = appServices.NewMessageService(
		deps.Repos.Conversations,
		deps.Repos.Participants,
		deps.Repos.Messages,
		deps.Repos.Attachments,
		deps.Repos.Reactions,
		deps.Repos.Users,
		deps.Hub,
		lgr,
	)

	deps.WebSocketHandler = websocket.NewHandler(
		deps.Hub,
		deps.Repos.Participants,
		deps.MessageService,
		cfg.WebSocketSettings(),
		lgr,
	)

	deps.ConversationController = appControllers.NewConversationController(deps.ConversationService)
	deps.MessageController = appControllers.NewMessageController(deps.MessageService)
	deps.SearchController = appControllers.NewSearchController(deps.MessageService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.ConversationController,
		deps.MessageController,
		deps.SearchController,
		deps.WebSocketHandler,
		deps.JWTService,
	)

	return router
}
