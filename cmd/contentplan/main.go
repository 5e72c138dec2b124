package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hongliu-studio/contentplan/internal/agent"
	"github.com/hongliu-studio/contentplan/internal/api"
	"github.com/hongliu-studio/contentplan/internal/calendar"
	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/genai"
	"github.com/hongliu-studio/contentplan/internal/outline"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/planning"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
	"github.com/hongliu-studio/contentplan/internal/scheduler"
	"github.com/hongliu-studio/contentplan/internal/store"
	"github.com/hongliu-studio/contentplan/internal/wizard"
	"github.com/hongliu-studio/contentplan/internal/workflow"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for contentplan state data
	DefaultStateDir = "/var/lib/contentplan"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "contentplan.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("contentplan failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("contentplan exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	OpenAIBase  string
	OpenAIModel string
	APIAddr     string
	NATSURL     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	openaiKey   *string
	openaiBase  *string
	openaiModel *string
	apiAddr     *string
	natsURL     *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("CONTENTPLAN_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBase:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		APIAddr:     os.Getenv("API_ADDR"),
		NATSURL:     os.Getenv("NATS_URL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CONTENTPLAN_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Without a database URL, fall back to SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CONTENTPLAN_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_BASE_URL", config.OpenAIBase,
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"NATS_URL_SET", config.NATSURL != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for contentplan data (overrides $CONTENTPLAN_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN, Postgres URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiBase:  flag.String("openai-base-url", config.OpenAIBase, "OpenAI-compatible API base URL (overrides $OPENAI_BASE_URL)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "chat model name (overrides $OPENAI_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		natsURL:     flag.String("nats-url", config.NATSURL, "NATS server URL for the external event bus (overrides $NATS_URL)"),
	}

	flag.Parse()

	// Keep the SQLite default inside the state directory when only the state
	// directory was overridden.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"natsURL_set", *flags.natsURL != "")

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == store.DSNTypeSQLite {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, store.DefaultDirPermissions); err != nil {
			return err
		}
	}
	return nil
}

// buildStore opens the configured persistence backend.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == store.DSNTypePostgres {
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Info("Using SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildBus selects the event bus: NATS when a URL is configured, otherwise
// the in-process bus.
func buildBus(flags Flags) (events.Bus, func(), error) {
	if *flags.natsURL != "" {
		slog.Info("Using NATS event bus", "url", *flags.natsURL)
		bus, err := events.NewNATSBus(*flags.natsURL)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	}
	return events.NewInProcBus(), func() {}, nil
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiBase != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.openaiBase))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// run wires the services together and serves the API until interrupted.
func run(flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	bus, closeBus, err := buildBus(flags)
	if err != nil {
		return err
	}
	defer closeBus()

	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	sessions := wizard.NewSessions(st)
	requirements := requirement.NewService(st, bus, requirement.NewGenAIAnalyzer(client))
	plans := planning.NewService(
		planner.NewPlanner(outline.NewGenerator(client)),
		nil,
		agent.NewGenAIChecker(client),
		st, bus,
	)
	producer := production.NewProducer(production.NewGenAICopyWriter(client), bus)
	cal := calendar.NewService(st, bus)
	engine := workflow.NewEngine(bus)
	steps := workflow.Steps{
		Requirements: requirements,
		Plans:        plans,
		Producer:     producer,
		Calendar:     cal,
	}

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(sessions, requirements, plans, producer, cal, engine, steps, apiOpts...)

	// Sweep upcoming schedules for due publish reminders once a minute.
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddEvery(time.Minute, func() {
		if err := cal.CheckReminders(context.Background(), time.Now()); err != nil {
			slog.Error("Reminder sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
