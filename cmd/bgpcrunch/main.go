package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/irraudit/bgpcrunch/internal/config"
	"github.com/irraudit/bgpcrunch/internal/db"
	bgphttp "github.com/irraudit/bgpcrunch/internal/http"
	"github.com/irraudit/bgpcrunch/internal/maintenance"
	"github.com/irraudit/bgpcrunch/internal/metrics"
	"github.com/irraudit/bgpcrunch/internal/pipeline"
	"github.com/irraudit/bgpcrunch/internal/plot"
	"github.com/irraudit/bgpcrunch/internal/store"
)

// servePollInterval is how often serve mode re-scans the snapshot
// directories for newly landed days.
const servePollInterval = 15 * time.Minute

func main() {
	cmd := ""
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "":
		runPhases(args, phasePre|phaseProc|phasePost)
	case "preprocess":
		runPhases(args, phasePre)
	case "process":
		runPhases(args, phaseProc)
	case "postprocess":
		runPhases(args, phasePost)
	case "listdays":
		runListDays(args)
	case "serve":
		runServe(args)
	case "migrate":
		runMigrate(args)
	case "maintenance":
		runMaintenance(args)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: bgpcrunch [command] [options]")
	fmt.Println()
	fmt.Println("Audits daily BGP table snapshots against the RIPE IRR. With no")
	fmt.Println("command, runs preprocess, process and postprocess over every day")
	fmt.Println("with complete input data.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  preprocess    Expand archives, parse inputs, persist per-day artifacts")
	fmt.Println("  process       Run route-object and path-policy checks per day")
	fmt.Println("  postprocess   Aggregate cross-day reports, plots and rollups")
	fmt.Println("  listdays      List days with complete input data and exit")
	fmt.Println("  serve         Keep watching for new snapshots; expose /healthz, /readyz, /metrics")
	fmt.Println("  migrate       Run database migrations for the optional rollup sink")
	fmt.Println("  maintenance   Trim rollup rows older than the retention window")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --days <list>     Comma-separated YYYY-MM-DD workpackage (default: all available)")
	fmt.Println("  --workers <n>     Override the configured worker count")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
	fmt.Println()
	fmt.Println("Note: an IPv6 route is never admitted by a legacy (non-mp) import/")
	fmt.Println("export rule; only mp-import/mp-export rules apply to IPv6. This is")
	fmt.Println("stricter than some operators write policy, and intentional.")
}

type flags struct {
	configPath string
	logLevel   string
	days       string
	workers    int
}

func parseFlags(args []string) flags {
	var f flags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				f.configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				f.logLevel = args[i+1]
				i++
			}
		case "--days":
			if i+1 < len(args) {
				f.days = args[i+1]
				i++
			}
		case "--workers":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil || n <= 0 {
					fmt.Fprintf(os.Stderr, "invalid --workers value: %s\n", args[i+1])
					os.Exit(1)
				}
				f.workers = n
				i++
			}
		}
	}
	return f
}

func loadConfig(args []string) (*config.Config, flags, *zap.Logger) {
	f := parseFlags(args)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if f.logLevel != "" {
		cfg.Service.LogLevel = f.logLevel
	}
	if f.workers != 0 {
		cfg.Service.Workers = f.workers
	}

	logger := initLogger(cfg.Service.LogLevel)
	return cfg, f, logger
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zap.DebugLevel
	case "warn":
		zapLevel = zap.WarnLevel
	case "error":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// buildRunner wires the pipeline with its plot emitter and, when a DSN
// is configured, the Postgres rollup sink. The returned pool is nil
// without a sink; the returned cleanup closes it either way.
func buildRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Runner, *pgxpool.Pool, func(), error) {
	if err := os.MkdirAll(cfg.Data.ResultRoot, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating result root: %w", err)
	}
	plotter := plot.NewJSONL(cfg.Data.ResultRoot)

	cleanup := func() {}
	var pool *pgxpool.Pool
	var sink *store.Writer
	if cfg.Reporting.PostgresDSN != "" {
		var err error
		pool, err = db.NewPool(ctx, cfg.Reporting.PostgresDSN, cfg.Reporting.MaxConns, cfg.Reporting.MinConns)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting rollup sink: %w", err)
		}
		cleanup = pool.Close
		sink = store.NewWriter(pool, logger.Named("store"))
		logger.Info("rollup sink enabled", zap.String("dsn", redactDSN(cfg.Reporting.PostgresDSN)))
	}

	return pipeline.New(cfg, logger.Named("pipeline"), plotter, sink), pool, cleanup, nil
}

// resolveDays picks the workpackage: --days when given, otherwise every
// day with complete input data.
func resolveDays(runner *pipeline.Runner, f flags) ([]pipeline.Day, error) {
	if f.days == "" {
		return runner.ListDays()
	}
	var days []pipeline.Day
	for _, tok := range strings.Split(f.days, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, ok := pipeline.ParseDay(tok)
		if !ok {
			return nil, fmt.Errorf("invalid day %q", tok)
		}
		days = append(days, d)
	}
	return pipeline.SortDays(days), nil
}

type phaseMask int

const (
	phasePre phaseMask = 1 << iota
	phaseProc
	phasePost
)

func runPhases(args []string, phases phaseMask) {
	cfg, f, logger := loadConfig(args)
	defer logger.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, _, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}
	defer cleanup()

	days, err := resolveDays(runner, f)
	if err != nil {
		logger.Fatal("failed to resolve workpackage", zap.Error(err))
	}
	if len(days) == 0 {
		logger.Warn("no days to run", zap.String("data_root", cfg.Data.DataRoot))
		return
	}
	logger.Info("workpackage resolved",
		zap.Int("days", len(days)),
		zap.Stringer("first", days[0]),
		zap.Stringer("last", days[len(days)-1]))

	run := func(name string, on phaseMask, fn func(context.Context, []pipeline.Day) error) {
		if phases&on == 0 {
			return
		}
		if err := fn(ctx, days); err != nil {
			logger.Error("phase failed", zap.String("phase", name), zap.Error(err))
			os.Exit(1)
		}
	}
	run("preprocess", phasePre, runner.Preprocess)
	run("process", phaseProc, runner.Process)
	run("postprocess", phasePost, runner.Postprocess)
}

func runListDays(args []string) {
	cfg, _, logger := loadConfig(args)
	defer logger.Sync()

	runner := pipeline.New(cfg, logger.Named("pipeline"), plot.NewJSONL(cfg.Data.ResultRoot), nil)
	days, err := runner.ListDays()
	if err != nil {
		logger.Fatal("failed to list days", zap.Error(err))
	}
	for _, d := range days {
		fmt.Println(d)
	}
}

func runServe(args []string) {
	cfg, _, logger := loadConfig(args)
	defer logger.Sync()

	metrics.Register()

	logger.Info("starting bgpcrunch",
		zap.String("instance_id", cfg.Service.InstanceID),
		zap.String("http_listen", cfg.Service.HTTPListen),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, pool, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}
	defer cleanup()

	httpServer := bgphttp.NewServer(cfg.Service.HTTPListen, pool, runner, logger.Named("http"))
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	done := make(chan error, 1)
	go func() { done <- runner.Serve(ctx, servePollInterval) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Cancel and wait for the pipeline to reach a day boundary.
	cancel()
	select {
	case <-done:
		logger.Info("pipeline stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, pipeline may be mid-day")
	}

	logger.Info("bgpcrunch stopped")
}

func runMigrate(args []string) {
	cfg, _, logger := loadConfig(args)
	defer logger.Sync()

	if cfg.Reporting.PostgresDSN == "" {
		logger.Fatal("migrate requires reporting.postgres_dsn to be configured")
	}

	logger.Info("running migrations",
		zap.String("dsn", redactDSN(cfg.Reporting.PostgresDSN)),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Reporting.PostgresDSN, cfg.Reporting.MaxConns, cfg.Reporting.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationsDir(), logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations complete")
}

func runMaintenance(args []string) {
	cfg, _, logger := loadConfig(args)
	defer logger.Sync()

	if cfg.Reporting.PostgresDSN == "" {
		logger.Fatal("maintenance requires reporting.postgres_dsn to be configured")
	}

	logger.Info("running rollup retention maintenance",
		zap.Int("retention_days", cfg.Retention.Days),
		zap.String("timezone", cfg.Retention.Timezone),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Reporting.PostgresDSN, cfg.Reporting.MaxConns, cfg.Reporting.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	rm := maintenance.NewRetentionManager(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger)
	if err := rm.Run(ctx); err != nil {
		logger.Fatal("maintenance failed", zap.Error(err))
	}

	logger.Info("rollup retention maintenance complete")
}

// migrationsDir returns the migrations directory next to the binary,
// falling back to the in-repo location for development runs.
func migrationsDir() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "migrations")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return filepath.Join("internal", "db", "migrations")
}

func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		// keyword=value format — redact password=... portion
		re := regexp.MustCompile(`password\s*=\s*\S+`)
		return re.ReplaceAllString(dsn, "password=***")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
