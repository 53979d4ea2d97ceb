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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ehr/clinicfhir/internal/config"
	"github.com/ehr/clinicfhir/internal/domain/clinical"
	"github.com/ehr/clinicfhir/internal/domain/identity"
	"github.com/ehr/clinicfhir/internal/domain/interop"
	"github.com/ehr/clinicfhir/internal/domain/medication"
	"github.com/ehr/clinicfhir/internal/platform/auth"
	"github.com/ehr/clinicfhir/internal/platform/db"
	"github.com/ehr/clinicfhir/internal/platform/fhir"
	"github.com/ehr/clinicfhir/internal/platform/middleware"
	"github.com/ehr/clinicfhir/internal/platform/telemetry"
	"github.com/ehr/clinicfhir/migrations"
)

const (
	serviceName = "clinic-fhir"
	version     = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "fhir-server",
		Short:        "FHIR R4 read API for clinic records",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration. Every subcommand goes through
// it so a misconfigured deployment fails before touching the database.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FHIR API server",
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
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ *config.Config) error {
				count, err := db.NewMigrator(pool, migrationSource(dir)).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ *config.Config) error {
				statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a patient's FHIR record to stdout",
	}

	for _, kind := range []string{"bundle", "ccd"} {
		sub := &cobra.Command{
			Use:   kind,
			Short: "Export the patient " + kind,
			RunE: func(cmd *cobra.Command, args []string) error {
				clinicID, patientID, err := exportTarget(cmd)
				if err != nil {
					return err
				}
				return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
					svc := newInteropService(pool, cfg, noop.NewTracerProvider())

					var b *fhir.Bundle
					if kind == "ccd" {
						b, err = svc.CCDDocument(ctx, clinicID, patientID)
					} else {
						b, err = svc.PatientBundle(ctx, clinicID, patientID)
					}
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), b)
				})
			},
		}
		sub.Flags().String("clinic", "", "Clinic UUID")
		sub.Flags().String("patient", "", "Patient UUID")
		_ = sub.MarkFlagRequired("clinic")
		_ = sub.MarkFlagRequired("patient")
		cmd.AddCommand(sub)
	}

	return cmd
}

func exportTarget(cmd *cobra.Command) (clinicID, patientID uuid.UUID, err error) {
	rawClinic, _ := cmd.Flags().GetString("clinic")
	rawPatient, _ := cmd.Flags().GetString("patient")

	if clinicID, err = uuid.Parse(rawClinic); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("--clinic must be a UUID: %w", err)
	}
	if patientID, err = uuid.Parse(rawPatient); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("--patient must be a UUID: %w", err)
	}
	return clinicID, patientID, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withPool loads config, opens a pool with retry and runs fn against it.
func withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool, *config.Config) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	pool, err := db.NewPoolWithRetry(ctx, logger, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBConnectRetries)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, pool, cfg)
}

func newInteropService(q db.Querier, cfg *config.Config, tp trace.TracerProvider) *interop.Service {
	repos := interop.Repositories{
		Patients:      identity.NewPatientRepo(q),
		Vitals:        clinical.NewVitalSignRepo(q),
		Conditions:    clinical.NewConditionRepo(q),
		Diagnoses:     clinical.NewDiagnosisRepo(q),
		Allergies:     clinical.NewAllergyRepo(q),
		Prescriptions: medication.NewPrescriptionRepo(q),
	}
	limits := interop.Limits{
		VitalSnapshots: cfg.VitalsScanLimit,
		Prescriptions:  cfg.PrescriptionScanLimit,
	}
	return interop.NewService(repos, interop.NewMapper(nil), limits, tp)
}

// newServer builds the HTTP surface. Only the /fhir group requires a token;
// metadata and health checks are public.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *interop.Service, tp trace.TracerProvider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = fhir.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", db.ClinicHeader},
	}))
	e.Use(telemetry.Middleware(tp, serviceName))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	authMW := auth.JWTMiddleware(jwtCfg, logger)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg, logger)
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	fhirGroup := e.Group("/fhir",
		authMW,
		db.ClinicMiddleware(cfg.DefaultClinicID, cfg.IsDev()),
		middleware.RateLimit(rateLimitCfg),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.Audit(logger, nil),
	)

	handler := interop.NewHandler(svc)
	handler.RegisterRoutes(fhirGroup)

	capBuilder := fhir.NewCapabilityBuilder(cfg.FHIRBaseURL, version)
	handler.RegisterCapabilities(capBuilder)
	e.GET("/fhir/metadata", capBuilder.Handler())

	e.GET("/health", db.LivenessHandler())

	return e
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		bootLogger := newLogger(nil)
		bootLogger.Error().Err(err).Msg("failed to load config")
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		ExporterURL:    cfg.OTelExporterURL,
		SamplingRatio:  cfg.OTelSamplingRatio,
	}, logger)
	if err != nil {
		return err
	}

	pool, err := db.NewPoolWithRetry(ctx, logger, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBConnectRetries)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svc := newInteropService(pool, cfg, tel.TracerProvider())
	e := newServer(cfg, logger, svc, tel.TracerProvider())
	e.GET("/health/db", db.HealthHandler(pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
