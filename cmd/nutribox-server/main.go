package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nutribox/nutribox/internal/config"
	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/export"
	"github.com/nutribox/nutribox/internal/domain/patient"
	"github.com/nutribox/nutribox/internal/domain/report"
	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/domain/wizard"
	"github.com/nutribox/nutribox/internal/platform/auth"
	"github.com/nutribox/nutribox/internal/platform/db"
	"github.com/nutribox/nutribox/internal/platform/kvstore"
	"github.com/nutribox/nutribox/internal/platform/middleware"
	"github.com/nutribox/nutribox/internal/platform/validate"
	"github.com/nutribox/nutribox/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutribox-server",
		Short: "NutriCoach consultation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource returns the embedded migrations unless dir is set.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationSource(dir)), schema)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", "public", "Target schema for migrations")
		c.Flags().String("dir", "", "Path to a migrations directory (defaults to the embedded set)")
		cmd.AddCommand(c)
	}
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// stores holds the persistence backends selected by configuration.
type stores struct {
	sections  section.Store
	templates kvstore.Store
}

func newStores(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) (stores, error) {
	var st stores

	switch cfg.SectionStore {
	case config.StorePostgres:
		st.sections = section.NewPGStore(pool)
	case config.StoreRedis:
		if rdb == nil {
			return st, fmt.Errorf("section store %q needs a redis client", cfg.SectionStore)
		}
		st.sections = section.NewKVStore(kvstore.NewRedis(rdb, "nutribox:sections"))
	case config.StoreMemory:
		st.sections = section.NewKVStore(kvstore.NewMemory())
	default:
		return st, fmt.Errorf("unknown section store %q", cfg.SectionStore)
	}

	switch cfg.TemplateStore {
	case config.StoreRedis:
		if rdb == nil {
			return st, fmt.Errorf("template store %q needs a redis client", cfg.TemplateStore)
		}
		st.templates = kvstore.NewRedis(rdb, "nutribox")
	case config.StoreMemory:
		st.templates = kvstore.NewMemory()
	default:
		return st, fmt.Errorf("unknown template store %q", cfg.TemplateStore)
	}
	return st, nil
}

func loadNavigator(path string) (*wizard.Navigator, error) {
	if path == "" {
		return wizard.NewNavigator(wizard.DefaultFlow()), nil
	}
	flow, err := wizard.LoadFlow(path)
	if err != nil {
		return nil, err
	}
	return wizard.NewNavigator(flow), nil
}

func notePolicy(name string) section.NotePolicy {
	if section.NotePolicy(name) == section.NotesDiscard {
		return section.NotesDiscard
	}
	return section.NotesPreserve
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func needsRedis(cfg *config.Config) bool {
	return cfg.SectionStore == config.StoreRedis || cfg.TemplateStore == config.StoreRedis
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	healthDeps := map[string]db.Pinger{}
	var rdb *redis.Client
	if needsRedis(cfg) {
		rdb, err = kvstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		healthDeps["redis"] = db.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info().Msg("connected to redis")
	}

	st, err := newStores(cfg, pool, rdb)
	if err != nil {
		return err
	}
	nav, err := loadNavigator(cfg.WizardFlowFile)
	if err != nil {
		return fmt.Errorf("load wizard flow: %w", err)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthDeps))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtCfg))
	}
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	// Patients and consultations
	patientSvc := patient.NewService(patient.NewRepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	consultationSvc := consultation.NewService(consultation.NewRepo(pool), patientSvc)
	consultation.NewHandler(consultationSvc).RegisterRoutes(apiV1)

	// Sections outside the wizard
	section.NewHandler(section.NewService(st.sections, consultationSvc)).RegisterRoutes(apiV1)

	// Wizard
	sessions := wizard.NewSessionStore(cfg.WizardSessionTTL)
	defer sessions.Flush()
	wizardSvc := wizard.NewService(wizard.Config{
		Navigator:     nav,
		Sessions:      sessions,
		Consultations: consultationSvc,
		Patients:      patientSvc,
		Sections:      st.sections,
		Templates:     wizard.NewTemplateLibrary(st.templates),
		NotePolicy:    notePolicy(cfg.WizardNotePolicy),
		Logger:        logger.With().Str("component", "wizard").Logger(),
	})
	wizard.NewHandler(wizardSvc).RegisterRoutes(apiV1)

	// Summary, comparison and exports
	reportSvc := report.NewService(st.sections, consultationSvc, logger.With().Str("component", "report").Logger())
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	exportSvc := export.NewService(st.sections, consultationSvc, patientSvc)
	export.NewHandler(exportSvc).RegisterRoutes(apiV1)

	// Start server
	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("section_store", cfg.SectionStore).
		Str("template_store", cfg.TemplateStore).
		Msg("starting server")

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
