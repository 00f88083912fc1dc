package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pagerguild/prqueue"
	"github.com/pagerguild/prqueue/github"
	"github.com/pagerguild/prqueue/internal/config"
	"github.com/pagerguild/prqueue/internal/observability"
	"github.com/pagerguild/prqueue/internal/ratelimit"
	"github.com/pagerguild/prqueue/retry"
)

var (
	logLevel     string
	configPath   string
	accountName  string
	concurrency  int
	otelEnabled  bool
	otelEndpoint string

	appID          int64
	installationID int64
	privateKeyFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "prboard",
	Short:         "Pull request dashboard for GitHub",
	Long:          "Shows open pull requests with their reviews, CI and merge state while staying inside GitHub's rate limits.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&accountName, "account", "", "Account from the config file (default: the first one)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Concurrent API calls (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&otelEnabled, "otel-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (host:port) for traces; if empty uses stdout exporter")
	rootCmd.PersistentFlags().Int64Var(&appID, "app-id", 0, "Authenticate as this GitHub App instead of with a token")
	rootCmd.PersistentFlags().Int64Var(&installationID, "installation-id", 0, "GitHub App installation to act as")
	rootCmd.PersistentFlags().StringVar(&privateKeyFile, "private-key", "", "PEM private key of the GitHub App")
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// app is everything a command needs to talk to GitHub.
type app struct {
	cfg     *config.Config
	account *config.Account
	queue   *prqueue.Queue
	client  *github.Client
	limits  *ratelimit.Cache
	stop    func()
}

func (a *app) Close() {
	a.stop()
}

// newApp loads the configuration and wires the queue, limiter and client
// for the selected account.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	account, err := cfg.Account(accountName)
	if err != nil {
		return nil, err
	}

	tp, shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		Enabled:  otelEnabled,
		Service:  "prboard",
		Endpoint: otelEndpoint,
	})
	if err != nil {
		return nil, err
	}

	limits := ratelimit.NewCache(ratelimit.Config{
		SafetyMargin: cfg.SafetyMargin,
		Rate:         rate.Limit(cfg.RequestsPerSecond),
	}, len(cfg.Accounts))
	limiter := limits.Get(account.BudgetKey())

	policy := retry.Default()
	policy.MaxAttempts = cfg.MaxAttempts

	q := prqueue.New(
		prqueue.WithConcurrency(cfg.Concurrency),
		prqueue.WithRetryPolicy(policy),
		prqueue.WithLimiter(limiter),
		prqueue.WithLogger(slog.Default().With("account", account.Name)),
		prqueue.WithTracerProvider(tp),
	)

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := q.Shutdown(shutdownCtx); err != nil {
			slog.Warn("queue shutdown", "error", err)
		}
		limits.Purge()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown", "error", err)
		}
	}

	httpClient, err := authClient(account, limiter.Transport(http.DefaultTransport))
	if err != nil {
		stop()
		return nil, err
	}
	client, err := github.New(q, httpClient, github.WithBaseURL(account.BaseURL))
	if err != nil {
		stop()
		return nil, err
	}

	slog.Debug("prboard configured",
		"account", account.Name,
		"base_url", account.BaseURL,
		"concurrency", cfg.Concurrency,
		"max_attempts", cfg.MaxAttempts,
		"safety_margin", cfg.SafetyMargin,
	)
	return &app{cfg: cfg, account: account, queue: q, client: client, limits: limits, stop: stop}, nil
}

func authClient(account *config.Account, base http.RoundTripper) (*http.Client, error) {
	if appID == 0 {
		token, err := account.Token()
		if err != nil {
			return nil, err
		}
		return github.NewHTTPClient(github.StaticToken(token), base), nil
	}

	if installationID == 0 || privateKeyFile == "" {
		return nil, fmt.Errorf("--app-id requires --installation-id and --private-key")
	}
	apps, err := github.NewAppsTransportKeyFromFile(base, appID, privateKeyFile)
	if err != nil {
		return nil, err
	}
	src, err := github.NewInstallationTokenSource(apps, installationID, github.WithBaseURL(account.BaseURL))
	if err != nil {
		return nil, err
	}
	return github.NewHTTPClient(src, base), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
