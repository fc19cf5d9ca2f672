package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/bsmanager/internal/agenda"
	"github.com/example/bsmanager/internal/application"
	"github.com/example/bsmanager/internal/config"
	httptransport "github.com/example/bsmanager/internal/http"
	"github.com/example/bsmanager/internal/logging"
	"github.com/example/bsmanager/internal/persistence"
	firestoresource "github.com/example/bsmanager/internal/persistence/firestore"
	"github.com/example/bsmanager/internal/persistence/memory"
	"github.com/example/bsmanager/internal/persistence/sqlite"
	"github.com/example/bsmanager/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("bsmanager exited", "error", err)
		os.Exit(1)
	}
}

// options holds command line overrides for the loaded configuration.
type options struct {
	envFiles   []string
	dataSource string
	port       int
	sqliteDSN  string
	memoryFile string
	seedDemo   bool
	logLevel   string

	changed func(name string) bool
}

func parseFlags(errOut io.Writer, args []string) (options, error) {
	flagSet := flag.NewFlagSet("bsmanager", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	var opts options
	flagSet.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	flagSet.StringVar(&opts.dataSource, "data-source", "", "data source: sqlite, firestore or memory")
	flagSet.IntVarP(&opts.port, "port", "p", 0, "HTTP listen port")
	flagSet.StringVar(&opts.sqliteDSN, "sqlite-dsn", "", "SQLite database path")
	flagSet.StringVar(&opts.memoryFile, "memory-file", "", "snapshot file for the memory data source")
	flagSet.BoolVar(&opts.seedDemo, "seed-demo", false, "seed demo to-dos into an empty memory data source")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	opts.changed = flagSet.Changed
	return opts, nil
}

// apply copies explicitly set flags over cfg.
func (o options) apply(cfg *config.Config) error {
	if o.changed == nil {
		return nil
	}
	if o.changed("data-source") {
		cfg.DataSource = config.DataSource(o.dataSource)
	}
	if o.changed("port") {
		cfg.HTTPPort = o.port
	}
	if o.changed("sqlite-dsn") {
		cfg.SQLiteDSN = o.sqliteDSN
	}
	if o.changed("memory-file") {
		cfg.MemoryFile = o.memoryFile
	}
	if o.changed("seed-demo") {
		cfg.MemorySeedDemo = o.seedDemo
	}
	if o.changed("log-level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(o.logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(stderr, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return err
	}
	if err := opts.apply(&cfg); err != nil {
		return err
	}

	logger := logging.New(stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	source, err := openDataSource(ctx, cfg, logger, time.Now)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := source.close(); cerr != nil {
			logger.Error("failed to close data source", "data_source", source.name, "error", cerr)
		}
	}()

	service := application.NewTodoServiceWithLogger(newTodoRepositoryAdapter(source.todos), uuid.NewString, time.Now, cfg.Location, logger)

	if cfg.AgendaSchedule != "" {
		job := agenda.New(service, cfg.Location, logger)
		if _, err := job.Schedule(cfg.AgendaSchedule); err != nil {
			return fmt.Errorf("failed to schedule agenda: %w", err)
		}
		job.Start()
		defer job.Stop()
		logger.Info("agenda scheduled", "schedule", cfg.AgendaSchedule)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(service, source, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bsmanager API listening", "addr", server.Addr, "data_source", source.name, "timezone", cfg.Location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server encountered error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		logger.Info("bsmanager API stopped")
		return nil
	})
	return g.Wait()
}

func newHandler(service *application.TodoService, source dataSource, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Todos:  httptransport.NewTodoHandler(service, logger),
		Health: httptransport.NewHealthHandler(source.pinger, string(source.name), logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})
}

// dataSource is the repository selected at startup with its lifecycle hooks.
type dataSource struct {
	name   config.DataSource
	todos  persistence.TodoRepository
	pinger httptransport.Pinger
	close  func() error
}

func openDataSource(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (dataSource, error) {
	switch cfg.DataSource {
	case config.DataSourceSQLite:
		storage, err := sqlite.OpenWithConfig(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return dataSource{}, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return dataSource{}, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return dataSource{name: cfg.DataSource, todos: storage, pinger: storage, close: storage.Close}, nil

	case config.DataSourceFirestore:
		repo, err := firestoresource.New(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
		if err != nil {
			return dataSource{}, err
		}
		return dataSource{name: cfg.DataSource, todos: repo, pinger: repo, close: repo.Close}, nil

	case config.DataSourceMemory:
		store, err := memory.Open(cfg.MemoryFile)
		if err != nil {
			return dataSource{}, fmt.Errorf("failed to open memory store: %w", err)
		}
		if cfg.MemorySeedDemo {
			current := now()
			today := civil.DateOf(current.In(cfg.Location))
			if err := memory.SeedDemo(ctx, store, today, current, uuid.NewString); err != nil {
				return dataSource{}, fmt.Errorf("failed to seed demo data: %w", err)
			}
			logger.Info("demo data seeded", "date", today.String(), "count", store.Len())
		}
		return dataSource{name: cfg.DataSource, todos: store, close: store.Close}, nil

	default:
		return dataSource{}, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}
