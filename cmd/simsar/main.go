package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/Simsar/internal/api"
	"github.com/BTreeMap/Simsar/internal/flow"
	"github.com/BTreeMap/Simsar/internal/genai"
	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/lockfile"
	"github.com/BTreeMap/Simsar/internal/messaging"
	"github.com/BTreeMap/Simsar/internal/metrics"
	"github.com/BTreeMap/Simsar/internal/store"
	"github.com/BTreeMap/Simsar/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Simsar state data
	DefaultStateDir = "/var/lib/simsar"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "simsar.db"
)

// exitWords end a terminal conversation.
var exitWords = map[string]bool{"exit": true, "quit": true, "خروج": true}

// logLevel is raised to debug once flags are parsed.
var logLevel = new(slog.LevelVar)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}
	if *flags.debug {
		logLevel.Set(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("Simsar failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Simsar exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir        string
	DataDir         string
	DatabaseURL     string
	RedisURL        string
	OpenAIKey       string
	OpenAIModel     string
	APIAddr         string
	PublicURL       string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	Debug           bool
	SessionTTL      time.Duration
	MaxBodyBytes    int
	DatabaseDefault bool // DatabaseURL was derived from StateDir
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dataDir     *string
	dbDSN       *string
	redisURL    *string
	openaiKey   *string
	openaiModel *string
	apiAddr     *string
	publicURL   *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
	sessionTTL  *time.Duration
	maxBody     *int
	debug       *bool
	chat        *bool
}

// initializeLogger installs a text logger whose level follows logLevel.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
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
		StateDir:     util.GetenvDefault("SIMSAR_STATE_DIR", DefaultStateDir),
		DataDir:      os.Getenv("SIMSAR_DATA_DIR"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  util.GetenvDefault("OPENAI_MODEL", genai.DefaultModel),
		APIAddr:      util.GetenvDefault("API_ADDR", api.DefaultAddr),
		PublicURL:    os.Getenv("SIMSAR_PUBLIC_URL"),
		TwilioSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:   os.Getenv("TWILIO_FROM_NUMBER"),
		Debug:        util.ParseBoolEnv("SIMSAR_DEBUG", false),
		SessionTTL:   util.ParseDurationEnv("SIMSAR_SESSION_TTL", store.DefaultSessionTTL),
		MaxBodyBytes: util.ParseIntEnv("SIMSAR_MAX_BODY_BYTES", api.DefaultMaxBodyBytes),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		config.DatabaseDefault = true
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"SIMSAR_STATE_DIR", config.StateDir,
		"SIMSAR_DATA_DIR", config.DataDir,
		"DATABASE_URL_SET", !config.DatabaseDefault,
		"REDIS_URL_SET", config.RedisURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"SIMSAR_DEBUG", config.Debug,
		"SIMSAR_SESSION_TTL", config.SessionTTL,
		"SIMSAR_MAX_BODY_BYTES", config.MaxBodyBytes)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:    fs.String("state-dir", config.StateDir, "state directory for Simsar data (overrides $SIMSAR_STATE_DIR)"),
		dataDir:     fs.String("data-dir", config.DataDir, "knowledge directory with properties.csv, rules.json and phase files; empty uses the built-in sample (overrides $SIMSAR_DATA_DIR)"),
		dbDSN:       fs.String("db-dsn", config.DatabaseURL, "session database: SQLite path or PostgreSQL DSN (overrides $DATABASE_URL)"),
		redisURL:    fs.String("redis-url", config.RedisURL, "Redis URL for session storage, takes precedence over -db-dsn (overrides $REDIS_URL)"),
		openaiKey:   fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key; empty uses canned fallback replies (overrides $OPENAI_API_KEY)"),
		openaiModel: fs.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		apiAddr:     fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		publicURL:   fs.String("public-url", config.PublicURL, "externally visible base URL used to verify Twilio signatures (overrides $SIMSAR_PUBLIC_URL)"),
		twilioSID:   fs.String("twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: fs.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  fs.String("twilio-from", config.TwilioFrom, "Twilio sender number, whatsapp: prefix for WhatsApp (overrides $TWILIO_FROM_NUMBER)"),
		sessionTTL:  fs.Duration("session-ttl", config.SessionTTL, "idle session lifetime for the Redis store (overrides $SIMSAR_SESSION_TTL)"),
		maxBody:     fs.Int("max-body-bytes", config.MaxBodyBytes, "largest accepted API request body in bytes (overrides $SIMSAR_MAX_BODY_BYTES)"),
		debug:       fs.Bool("debug", config.Debug, "debug logging and reasoning traces in chat mode (overrides $SIMSAR_DEBUG)"),
		chat:        fs.Bool("chat", false, "talk to the agent on stdin/stdout instead of serving HTTP"),
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// Follow -state-dir when the database path was only the default.
	if config.DatabaseDefault && *flags.dbDSN == config.DatabaseURL && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dataDir", *flags.dataDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisURL_set", *flags.redisURL != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"chat", *flags.chat)

	return flags, nil
}

// run starts the configured mode.
func run(ctx context.Context, flags Flags) error {
	retriever, err := loadRetriever(*flags.dataDir)
	if err != nil {
		return err
	}
	gen, err := buildGenerator(flags)
	if err != nil {
		return err
	}

	if *flags.chat {
		agent := flow.NewAgent(retriever, flow.WithGenerator(gen))
		return runChat(ctx, agent, os.Stdin, os.Stdout, *flags.debug)
	}
	return serve(ctx, flags, retriever, gen)
}

// loadRetriever reads the knowledge tables from dir, or the built-in sample when dir is empty.
func loadRetriever(dir string) (*knowledge.Retriever, error) {
	var (
		base *knowledge.Base
		err  error
	)
	if dir == "" {
		base, err = knowledge.Default(knowledge.WithBudgetMatching())
	} else {
		base, err = knowledge.Load(dir, knowledge.WithBudgetMatching())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge: %w", err)
	}
	return knowledge.NewRetriever(base), nil
}

// buildGenerator returns the OpenAI client when a key is configured and canned replies otherwise.
func buildGenerator(flags Flags) (genai.Generator, error) {
	if *flags.openaiKey == "" {
		slog.Info("No OpenAI API key configured, using canned fallback replies")
		return genai.StaticGenerator{}, nil
	}
	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return client, nil
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	opts := []genai.Option{genai.WithAPIKey(*flags.openaiKey)}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	if *flags.debug {
		opts = append(opts, genai.WithDebugMode(true), genai.WithStateDir(*flags.stateDir))
	}
	return opts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	storeOpts := []store.Option{store.WithTTL(*flags.sessionTTL)}
	if *flags.redisURL != "" {
		slog.Debug("Redis URL provided, configuring Redis store")
		return append(storeOpts, store.WithRedisURL(*flags.redisURL))
	}
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	switch store.DetectDSNType(*flags.dbDSN) {
	case store.DSNTypeRedis:
		slog.Debug("Detected Redis DSN, configuring Redis store")
		storeOpts = append(storeOpts, store.WithRedisURL(*flags.dbDSN))
	case store.DSNTypePostgres:
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// usesSQLite reports whether the configured store keeps its data in a local file.
func usesSQLite(flags Flags) bool {
	return *flags.redisURL == "" && *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == store.DSNTypeSQLite
}

// buildSender returns the Twilio client when credentials are configured.
func buildSender(flags Flags) (messaging.Sender, error) {
	if *flags.twilioSID == "" || *flags.twilioToken == "" {
		slog.Warn("Twilio credentials not set, webhook replies will not be delivered")
		return nil, nil
	}
	client, err := messaging.NewTwilioClient(
		messaging.WithAccountSID(*flags.twilioSID),
		messaging.WithAuthToken(*flags.twilioToken),
		messaging.WithFrom(*flags.twilioFrom),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Twilio client: %w", err)
	}
	return client, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, sender messaging.Sender) []api.Option {
	apiOpts := []api.Option{api.WithAddr(*flags.apiAddr), api.WithMaxBodyBytes(int64(*flags.maxBody))}
	if sender != nil {
		apiOpts = append(apiOpts, api.WithSender(sender))
	}
	if *flags.twilioToken != "" {
		apiOpts = append(apiOpts, api.WithTwilioAuthToken(*flags.twilioToken), api.WithPublicURL(*flags.publicURL))
	}
	return apiOpts
}

func serve(ctx context.Context, flags Flags, retriever *knowledge.Retriever, gen genai.Generator) error {
	if usesSQLite(flags) {
		lock, err := lockfile.Acquire(filepath.Dir(*flags.dbDSN))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.Open(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	sender, err := buildSender(flags)
	if err != nil {
		return err
	}

	sessions := api.NewSessionManager(st, retriever, flow.WithGenerator(gen), flow.WithMetrics(metrics.Prometheus{}))
	slog.Info("Bootstrapping Simsar API", "addr", *flags.apiAddr)
	return api.NewServer(sessions, buildAPIOptions(flags, sender)...).Run(ctx)
}

// runChat holds a conversation over in and out until EOF, an exit word or ctx ends.
func runChat(ctx context.Context, agent *flow.Agent, in io.Reader, out io.Writer, showTrace bool) error {
	fmt.Fprintln(out, "🤖", agent.Welcome())
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "👤 ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					if err != nil && !errors.Is(err, io.EOF) {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			return nil
		}

		reply := agent.Process(ctx, line)
		if showTrace {
			fmt.Fprintf(out, "--- reasoning ---\n%s\n-----------------\n", agent.LastReasoning().Trace)
		}
		fmt.Fprintln(out, "🤖", reply)
	}
}
