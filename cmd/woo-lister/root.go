package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ArtemZhigarev/woo-lister/pkg/client"
	"github.com/ArtemZhigarev/woo-lister/pkg/config"
	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// quietLogs marks interactive commands whose output shares the terminal with logs.
const quietLogs = "quiet-logs"

// app carries flags and the loaded configuration to every subcommand.
type app struct {
	envDir     string
	configFile string
	logLevel   string
	pretty     bool

	cfg *config.Config

	// Overridable in tests.
	in       io.Reader
	out      io.Writer
	newStore func(ctx context.Context) (credentials.Writer, func(), error)
}

func newRootCmd() *cobra.Command {
	a := &app{in: os.Stdin, out: os.Stdout}
	a.newStore = a.settingsStore
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "woo-lister",
		Short: "Browse WooCommerce orders and customers page by page",
		Long: `woo-lister lists orders and customers of a WooCommerce store through its
REST API, 20 at a time. Pages are appended to one list; items already shown
are skipped when the store shifts records between requests.

Settings (endpoint URL, consumer key and secret) come from WOO_ENDPOINT_URL,
WOO_API_KEY and WOO_API_SECRET, or from Redis when settings.backend=redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.envDir, "env-dir", ".", "Directory searched for a .env file")
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Human-readable log output")

	cmd.AddCommand(
		newOrdersCmd(a),
		newCustomersCmd(a),
		newSettingsCmd(a),
		newServeCmd(a),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envDir, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	switch {
	case a.logLevel != "":
		level = a.logLevel
	case cmd.Annotations[quietLogs] == "true" && os.Getenv(config.EnvPrefix+"_LOG_LEVEL") == "":
		level = string(logging.LevelWarn)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(level),
		Pretty: a.pretty || cfg.Log.Pretty,
		Output: os.Stderr,
	})
	return nil
}

// settingsStore opens the configured settings backend. The returned func
// releases it.
func (a *app) settingsStore(ctx context.Context) (credentials.Writer, func(), error) {
	if a.cfg.Settings.Backend != config.BackendRedis {
		return credentials.NewEnvStore(a.cfg.Viper()), func() {}, nil
	}

	sealer, err := credentials.ParseSealer(a.cfg.Settings.SecretKey)
	if err != nil {
		return nil, nil, fmt.Errorf("settings.secret_key: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}

	store, err := credentials.NewRedisStore(redisClient, sealer, log.With().Str("component", "credentials").Logger())
	if err != nil {
		redisClient.Close()
		return nil, nil, err
	}

	return store, func() { redisClient.Close() }, nil
}

func (a *app) newClient() (*client.Client, error) {
	return client.New(client.Config{
		UserAgent:         a.cfg.Client.UserAgent,
		Timeout:           a.cfg.Client.Timeout,
		RequestsPerSecond: a.cfg.Client.RequestsPerSecond,
		Burst:             a.cfg.Client.Burst,
	})
}

// ask prints prompt and reads a yes/no answer. An empty answer returns def;
// end of input returns false.
func ask(in *bufio.Reader, out io.Writer, prompt string, def bool) bool {
	fmt.Fprint(out, prompt)

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
