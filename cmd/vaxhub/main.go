package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaxhub/vaxhub/internal/config"
	"github.com/vaxhub/vaxhub/internal/domain/appointment"
	"github.com/vaxhub/vaxhub/internal/domain/checkout"
	"github.com/vaxhub/vaxhub/internal/domain/immunization"
	"github.com/vaxhub/vaxhub/internal/domain/inventory"
	"github.com/vaxhub/vaxhub/internal/domain/medd"
	"github.com/vaxhub/vaxhub/internal/domain/product"
	"github.com/vaxhub/vaxhub/internal/logging"
	"github.com/vaxhub/vaxhub/internal/platform/auth"
	"github.com/vaxhub/vaxhub/internal/platform/cache"
	"github.com/vaxhub/vaxhub/internal/platform/db"
	"github.com/vaxhub/vaxhub/internal/platform/middleware"
	"github.com/vaxhub/vaxhub/migrations"
)

const version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "vaxhub",
		Short:        "Point-of-care vaccine checkout API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(evaluateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the checkout API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
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
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the built-in set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(ctx context.Context, dir string, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrationFiles(dir)))
}

func migrationFiles(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		state, at := "pending", ""
		if s.Applied {
			state = "applied"
			at = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
	}
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one dose from a JSON request and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			rules, _ := cmd.Flags().GetString("rules")

			policy, err := loadPolicy(rules)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runEvaluate(in, cmd.OutOrStdout(), checkout.NewVerifier(policy))
		},
	}
	cmd.Flags().String("file", "-", "Request JSON file, - for stdin")
	cmd.Flags().String("rules", "", "Rules YAML file (default built-in rules)")
	return cmd
}

func runEvaluate(r io.Reader, w io.Writer, v *checkout.Verifier) error {
	var req checkout.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	result := v.Evaluate(req)
	if result == nil {
		return checkout.ErrNotEvaluable
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func loadPolicy(path string) (checkout.Policy, error) {
	if path == "" {
		return checkout.DefaultPolicy(), nil
	}
	return checkout.LoadPolicy(path)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: every request is authenticated as admin")
	}

	policy, err := loadPolicy(cfg.RulesFile)
	if err != nil {
		logger.Fatal().Err(err).Str("rules_file", cfg.RulesFile).Msg("failed to load rules")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	checks := map[string]db.Check{"postgres": db.PoolCheck(pool)}

	var meddStore checkout.MedDStore
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		meddStore = medd.NewRedisStore(rdb, cfg.MedDCacheTTL)
		checks["redis"] = cache.Ping(rdb)
		logger.Info().Dur("ttl", cfg.MedDCacheTTL).Msg("medd results cached in redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set: medd results are kept only for the open checkout")
	}

	svc := checkout.NewService(checkout.NewVerifier(policy), checkout.Deps{
		Lots:         product.NewRepoPG(pool),
		Appointments: appointment.NewRepoPG(pool),
		OnHand:       inventory.NewRepoPG(pool),
		MedD:         meddStore,
		Doses:        immunization.NewRepoPG(pool),
		Tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	}, checkout.Features{
		VaxCare3Flow:        cfg.FeatureVaxCare3Flow,
		DisableDuplicateRSV: cfg.FeatureDisableDuplicateRSV,
		RPRD:                cfg.FeatureRPRD,
	}, logger)

	e := newServer(cfg, logger, svc, checks)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes. Health endpoints are public; the
// checkout API sits behind auth and the per-clinic rate limit.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *checkout.Service, checks map[string]db.Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.Audit(logger, nil))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(checks))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	checkout.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}
