package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/BotWeave/BotWeave/internal/api"
	"github.com/BotWeave/BotWeave/internal/flow"
	"github.com/BotWeave/BotWeave/internal/messaging"
	"github.com/BotWeave/BotWeave/internal/messenger"
	"github.com/BotWeave/BotWeave/internal/store"
	"github.com/BotWeave/BotWeave/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for BotWeave state data
	DefaultStateDir = "/var/lib/botweave"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "botweave.db"
	// DefaultTokenTTL is the lifetime of tokens minted via -issue-token
	DefaultTokenTTL = 30 * 24 * time.Hour
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Token minting short-circuits the server
	if *flags.issueToken != "" {
		if *flags.jwtSecret == "" {
			slog.Error("Cannot issue token without a JWT secret")
			os.Exit(1)
		}
		token, err := api.IssueToken(*flags.jwtSecret, *flags.issueToken, DefaultTokenTTL)
		if err != nil {
			slog.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Open the storage backend
	st, err := store.Open(buildStoreOptions(flags)...)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Register the stateful flow strategy alongside the scripted default
	sessions := flow.NewSessionStore()
	flow.Register(flow.StrategyStateful, flow.NewStatefulEngine(sessions))

	// Messenger channel is optional; without a page token the webhook stays off
	var msgClient *messenger.Client
	if config.MessengerToken != "" {
		msgClient, err = messenger.NewClient()
		if err != nil {
			slog.Error("Failed to create Messenger client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("No Messenger page token configured, channel delivery disabled")
	}

	responder := messaging.NewResponder(st, buildResponderOptions(flags, msgClient)...)

	server, err := api.NewServer(buildAPIOptions(flags, st, responder, msgClient, sessions)...)
	if err != nil {
		slog.Error("Failed to create API server", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping BotWeave with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "strategy", *flags.strategy)
	if err := server.Run(); err != nil {
		slog.Error("BotWeave failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("BotWeave exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseDSN      string
	StateDir         string
	APIAddr          string
	JWTSecret        string
	Strategy         string
	WebhookChatbotID string
	MessengerToken   string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	apiAddr        *string
	jwtSecret      *string
	strategy       *string
	webhookChatbot *string
	issueToken     *string
}

// initializeLogger sets up structured logging. Debug level is the default;
// BOTWEAVE_DEBUG=false drops the level to info.
func initializeLogger() {
	level := slog.LevelDebug
	if !util.ParseBoolEnv("BOTWEAVE_DEBUG", true) {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		StateDir:         os.Getenv("BOTWEAVE_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Strategy:         util.GetEnvOrDefault("FLOW_STRATEGY", string(flow.StrategyScripted)),
		WebhookChatbotID: os.Getenv("WEBHOOK_CHATBOT_ID"),
		MessengerToken:   os.Getenv("MESSENGER_PAGE_ACCESS_TOKEN"),
	}

	// Legacy name support
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as DATABASE_DSN", "dsn_set", true)
		}
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No BOTWEAVE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("BOTWEAVE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"BOTWEAVE_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"JWT_SECRET_SET", config.JWTSecret != "",
		"FLOW_STRATEGY", config.Strategy,
		"WEBHOOK_CHATBOT_ID", config.WebhookChatbotID,
		"MESSENGER_PAGE_ACCESS_TOKEN_SET", config.MessengerToken != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for BotWeave data (overrides $BOTWEAVE_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseDSN, "database DSN for the application store (overrides $DATABASE_DSN or $DATABASE_URL)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		jwtSecret:      flag.String("jwt-secret", config.JWTSecret, "HS256 secret for API authentication (overrides $JWT_SECRET)"),
		strategy:       flag.String("flow-strategy", config.Strategy, "flow reply strategy, scripted or stateful (overrides $FLOW_STRATEGY)"),
		webhookChatbot: flag.String("webhook-chatbot", config.WebhookChatbotID, "chatbot that answers Messenger traffic (overrides $WEBHOOK_CHATBOT_ID)"),
		issueToken:     flag.String("issue-token", "", "mint an API token for the given subject and exit"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"jwtSecretSet", *flags.jwtSecret != "",
		"strategy", *flags.strategy,
		"webhookChatbot", *flags.webhookChatbot)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseDSN && config.DatabaseDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildResponderOptions constructs messaging pipeline options
func buildResponderOptions(flags Flags, msgClient *messenger.Client) []messaging.Option {
	var msgOpts []messaging.Option
	if *flags.strategy != "" {
		msgOpts = append(msgOpts, messaging.WithStrategy(flow.StrategyName(*flags.strategy)))
	}
	if msgClient != nil {
		msgOpts = append(msgOpts, messaging.WithService(msgClient))
	}
	return msgOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, st store.Store, responder *messaging.Responder, msgClient *messenger.Client, sessions *flow.SessionStore) []api.Option {
	apiOpts := []api.Option{
		api.WithStore(st),
		api.WithResponder(responder),
		api.WithSessions(sessions),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.jwtSecret != "" {
		apiOpts = append(apiOpts, api.WithJWTSecret(*flags.jwtSecret))
	}
	if *flags.webhookChatbot != "" {
		apiOpts = append(apiOpts, api.WithWebhookChatbot(*flags.webhookChatbot))
	}
	if msgClient != nil {
		apiOpts = append(apiOpts, api.WithMessenger(msgClient))
	}
	return apiOpts
}
