// Package main provides the CLI entrypoint for moviequiz.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/moviequiz/internal/catalog"
	"github.com/verte-zerg/moviequiz/internal/config"
	"github.com/verte-zerg/moviequiz/internal/model"
	"github.com/verte-zerg/moviequiz/internal/question"
	"github.com/verte-zerg/moviequiz/internal/session"
	"github.com/verte-zerg/moviequiz/internal/stats"
	"github.com/verte-zerg/moviequiz/internal/statsui"
	"github.com/verte-zerg/moviequiz/internal/store"
	"github.com/verte-zerg/moviequiz/internal/store/redisstore"
	"github.com/verte-zerg/moviequiz/internal/tui"
)

const (
	defaultQuestions     = 10
	defaultFeedbackDelay = time.Second
	defaultEndpoint      = "https://tv-api.com/en/API/Top250Movies"
	defaultTimeout       = 15 * time.Second
	defaultImageWidth    = 600
	defaultBackend       = backendSQLite
	defaultRedisAddr     = "localhost:6379"
	defaultCurveWindow   = 5

	backendSQLite = "sqlite"
	backendRedis  = "redis"
)

var (
	playQuestions     int
	playDelay         time.Duration
	playThresholdMin  int
	playThresholdMax  int
	playShowTitle     bool
	playEndpoint      string
	playAPIKey        string
	playTimeout       time.Duration
	playImageWidth    int
	playBackend       string
	playRedisAddr     string
	playRedisPassword string
	playRedisDB       int
	playDebug         bool

	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "moviequiz",
		Short:         "Terminal movie rating quiz",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&playBackend, "backend", defaultBackend, "stats backend (sqlite or redis)")
	flags.StringVar(&playRedisAddr, "redis-addr", defaultRedisAddr, "redis address for the redis backend")
	flags.StringVar(&playRedisPassword, "redis-password", "", "redis password")
	flags.IntVar(&playRedisDB, "redis-db", 0, "redis database number")

	rootCmd.Flags().IntVar(&playQuestions, "questions", defaultQuestions, "questions per round")
	rootCmd.Flags().DurationVar(&playDelay, "delay", defaultFeedbackDelay, "answer feedback delay")
	rootCmd.Flags().IntVar(&playThresholdMin, "threshold-min", question.DefaultThresholdMin, "lowest rating threshold asked")
	rootCmd.Flags().IntVar(&playThresholdMax, "threshold-max", question.DefaultThresholdMax, "highest rating threshold asked")
	rootCmd.Flags().BoolVar(&playShowTitle, "show-title", false, "show the movie title above the poster")
	rootCmd.Flags().StringVar(&playEndpoint, "endpoint", defaultEndpoint, "movie list endpoint")
	rootCmd.Flags().StringVar(&playAPIKey, "api-key", "", "movie API key")
	rootCmd.Flags().DurationVar(&playTimeout, "timeout", defaultTimeout, "catalog request timeout")
	rootCmd.Flags().IntVar(&playImageWidth, "image-width", defaultImageWidth, "requested poster width in pixels (0 = original)")
	rootCmd.Flags().BoolVar(&playDebug, "debug", false, "write debug log to the state directory")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

// loadSettings merges flag, environment and file values into the shared settings.
func loadSettings(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env", config.DefaultDotEnvPath()); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.ParseEnv()
	if err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	config.ApplyEnv(&fileCfg, envCfg)

	applyIntConfig(cmd, "questions", &playQuestions, fileCfg.Quiz.Questions)
	applyDurationConfig(cmd, "delay", &playDelay, fileCfg.Quiz.FeedbackDelay)
	applyIntConfig(cmd, "threshold-min", &playThresholdMin, fileCfg.Quiz.ThresholdMin)
	applyIntConfig(cmd, "threshold-max", &playThresholdMax, fileCfg.Quiz.ThresholdMax)
	applyBoolConfig(cmd, "show-title", &playShowTitle, fileCfg.Quiz.ShowTitle)
	applyStringConfig(cmd, "endpoint", &playEndpoint, fileCfg.Catalog.Endpoint)
	applyStringConfig(cmd, "api-key", &playAPIKey, fileCfg.Catalog.APIKey)
	applyDurationConfig(cmd, "timeout", &playTimeout, fileCfg.Catalog.Timeout)
	applyIntConfig(cmd, "image-width", &playImageWidth, fileCfg.Catalog.ImageWidth)
	applyStringConfig(cmd, "backend", &playBackend, fileCfg.Stats.Backend)
	applyStringConfig(cmd, "redis-addr", &playRedisAddr, fileCfg.Stats.RedisAddr)
	applyStringConfig(cmd, "redis-password", &playRedisPassword, fileCfg.Stats.RedisPassword)
	applyIntConfig(cmd, "redis-db", &playRedisDB, fileCfg.Stats.RedisDB)
	return nil
}

func currentConfig() model.Config {
	return model.Config{
		Questions:     playQuestions,
		FeedbackDelay: playDelay,
		ThresholdMin:  playThresholdMin,
		ThresholdMax:  playThresholdMax,
		ShowTitle:     playShowTitle,
		Endpoint:      playEndpoint,
		APIKey:        playAPIKey,
		Timeout:       playTimeout,
		ImageWidth:    playImageWidth,
		StatsBackend:  strings.ToLower(strings.TrimSpace(playBackend)),
		RedisAddr:     playRedisAddr,
		RedisPassword: playRedisPassword,
		RedisDB:       playRedisDB,
	}
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	if err := loadSettings(cmd); err != nil {
		return err
	}
	cfg := currentConfig()
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(playDebug)
	if err != nil {
		return err
	}
	defer closeLog()

	agg, closeStats, err := openStats(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStats()

	client := catalog.New(cfg.Endpoint, cfg.APIKey, cfg.Timeout, cfg.ImageWidth)
	source := question.New(client, question.Options{
		ThresholdMin: cfg.ThresholdMin,
		ThresholdMax: cfg.ThresholdMax,
		Logger:       logger,
	})
	logger.Printf("starting round: questions=%d endpoint=%s backend=%s", cfg.Questions, cfg.Endpoint, cfg.StatsBackend)

	quiz := tui.NewModel(source, agg, session.Config{
		Questions:      cfg.Questions,
		FeedbackDelay:  cfg.FeedbackDelay,
		RequestTimeout: cfg.Timeout,
		ShowTitle:      cfg.ShowTitle,
		Logger:         logger,
	})
	program := tea.NewProgram(quiz, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if summary := quiz.Summary(); summary != "" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), summary); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// openLogger returns a file logger when debug is on. The TUI owns the terminal,
// so nothing is logged to stderr while it runs.
func openLogger(debug bool) (*log.Logger, func(), error) {
	if !debug {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := tea.LogToFile(path, "moviequiz")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close debug log: %v\n", cerr)
		}
	}
	return log.Default(), closeFn, nil
}

func openStats(cfg model.Config, logger *log.Logger) (*stats.Aggregator, func(), error) {
	switch cfg.StatsBackend {
	case backendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			if cerr := rs.Close(); cerr != nil {
				// Best-effort close after a failed ping.
				_ = cerr
			}
			return nil, nil, err
		}
		closeFn := func() {
			if cerr := rs.Close(); cerr != nil {
				logErrf("failed to close redis: %v\n", cerr)
			}
		}
		return stats.NewAggregator(rs, rs, logger), closeFn, nil
	default:
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db: %w", err)
		}
		closeFn := func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}
		return stats.NewAggregator(st, st, logger), closeFn, nil
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rounds")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain-text report")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if err := loadSettings(cmd); err != nil {
		return err
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	cfg := currentConfig()
	if err := validateBackend(cfg); err != nil {
		return err
	}
	statsCfg := model.StatsConfig{
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Plain:       statsPlain,
	}

	agg, closeStats, err := openStats(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}
	defer closeStats()

	out := cmd.OutOrStdout()
	if statsCfg.Plain || !stats.IsTerminal(out) {
		report, err := stats.BuildReport(context.Background(), agg, statsCfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		if err := stats.RenderReport(out, report, statsCfg.CurveWindow, stats.TerminalWidth()-2); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	program := tea.NewProgram(statsui.NewModel(agg, statsCfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target, value *time.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# moviequiz configuration
# Uncomment a value to enable it. CLI flags and MOVIEQUIZ_* variables override config values.

[quiz]
# questions = %d            # Questions per round
# feedback-delay = %q     # Pause after an answer
# threshold-min = %d        # Lowest rating threshold asked
# threshold-max = %d        # Highest rating threshold asked
# show-title = false       # Show the movie title above the poster

[catalog]
# endpoint = %q
# api-key = ""             # Or MOVIEQUIZ_API_KEY / .env
# timeout = %q            # Catalog request timeout
# image-width = %d         # Requested poster width in pixels (0 = original)

[stats]
# backend = %q         # "sqlite" or "redis"
# redis-addr = %q
# redis-password = ""
# redis-db = 0
`,
		defaultQuestions,
		defaultFeedbackDelay.String(),
		question.DefaultThresholdMin,
		question.DefaultThresholdMax,
		defaultEndpoint,
		defaultTimeout.String(),
		defaultImageWidth,
		defaultBackend,
		defaultRedisAddr,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Questions <= 0 {
		return fmt.Errorf("--questions must be > 0")
	}
	if cfg.FeedbackDelay < 0 {
		return fmt.Errorf("--delay must be >= 0")
	}
	if cfg.ThresholdMin < question.LowestThreshold || cfg.ThresholdMax > question.HighestThreshold {
		return fmt.Errorf("--threshold-min and --threshold-max must be within %d..%d", question.LowestThreshold, question.HighestThreshold)
	}
	if cfg.ThresholdMin > cfg.ThresholdMax {
		return fmt.Errorf("--threshold-min must be <= --threshold-max")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return fmt.Errorf("--endpoint must not be empty")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	if cfg.ImageWidth < 0 {
		return fmt.Errorf("--image-width must be >= 0")
	}
	return validateBackend(cfg)
}

func validateBackend(cfg model.Config) error {
	switch cfg.StatsBackend {
	case backendSQLite:
		return nil
	case backendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("--redis-addr must not be empty for the redis backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown stats backend %q (want %s or %s)", cfg.StatsBackend, backendSQLite, backendRedis)
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
