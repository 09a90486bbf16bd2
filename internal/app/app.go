// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/socialrelay/internal/api"
	"github.com/JakeFAU/socialrelay/internal/clock/system"
	"github.com/JakeFAU/socialrelay/internal/config"
	"github.com/JakeFAU/socialrelay/internal/hash/sha256"
	"github.com/JakeFAU/socialrelay/internal/id/uuid"
	"github.com/JakeFAU/socialrelay/internal/metrics"
	"github.com/JakeFAU/socialrelay/internal/notify"
	"github.com/JakeFAU/socialrelay/internal/notify/memory"
	"github.com/JakeFAU/socialrelay/internal/notify/pubsub"
	"github.com/JakeFAU/socialrelay/internal/policy/ratelimit"
	"github.com/JakeFAU/socialrelay/internal/relay"
	"github.com/JakeFAU/socialrelay/internal/relay/reddit"
	"github.com/JakeFAU/socialrelay/internal/relay/telegram"
	"github.com/JakeFAU/socialrelay/internal/telemetry"
)

// App holds all the shared, long-lived services for the application.
// It is built once at startup from a validated config.Config.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	notifier notify.Notifier
	relay    *relay.Relay
	server   *api.Server
	tracer   *sdktrace.TracerProvider
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	notifier   notify.Notifier
	httpClient *http.Client
	spans      []sdktrace.TracerProviderOption
}

// WithNotifier overrides the notifier selected by notify.provider.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithHTTPClient sets the client publishers use for outbound calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTracerOptions passes extra options (span processors, samplers) to the
// tracer provider built when tracing is enabled.
func WithTracerOptions(opts ...sdktrace.TracerProviderOption) Option {
	return func(o *options) { o.spans = append(o.spans, opts...) }
}

// NewApp wires publishers, the notifier, the relay and the HTTP server.
// It fails fast if the notifier cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger.Info("initializing application services")
	metrics.Init()

	notifier := o.notifier
	if notifier == nil {
		var err error
		notifier, err = newNotifier(ctx, cfg.Notify, logger)
		if err != nil {
			return nil, err
		}
	}

	publishers := []relay.Publisher{
		telegram.New(TelegramConfig(cfg), o.httpClient, logger.Named("telegram")),
		reddit.New(RedditConfig(cfg), o.httpClient, logger.Named("reddit")),
	}
	if limit := (ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}); limit.Enabled() {
		logger.Info("throttling publishes", zap.Float64("rps", limit.RPS), zap.Int("burst", limit.Burst))
		limiter := ratelimit.New(limit)
		for i, p := range publishers {
			publishers[i] = ratelimit.Wrap(p, limiter)
		}
	}
	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		var err error
		tp, err = telemetry.InitTracerProvider(ctx, cfg.Tracing.ServiceName, o.spans...)
		if err != nil {
			_ = notifier.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		logger.Info("tracing enabled", zap.String("service", cfg.Tracing.ServiceName))
		for i, p := range publishers {
			publishers[i] = telemetry.TracePublisher(p, tp)
		}
	}
	clk := system.New()
	rl := relay.New(publishers, notifier, uuid.New(), clk, logger.Named("relay")).UseHasher(sha256.New())

	return &App{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier,
		relay:    rl,
		server:   api.NewServer(rl, clk, cfg, logger),
		tracer:   tp,
	}, nil
}

func newNotifier(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (notify.Notifier, error) {
	switch cfg.Provider {
	case "", config.NotifyNone:
		return notify.Nop{}, nil
	case config.NotifyMemory:
		logger.Info("using in-memory submission notifier")
		return memory.New(), nil
	case config.NotifyPubSub:
		logger.Info("connecting to Pub/Sub", zap.String("project", cfg.ProjectID), zap.String("topic", cfg.TopicName))
		n, err := pubsub.New(ctx, cfg.ProjectID, cfg.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}

// TelegramConfig maps service config onto the Telegram publisher settings.
func TelegramConfig(cfg config.Config) telegram.Config {
	return telegram.Config{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		BaseURL:  cfg.Telegram.BaseURL,
		Timeout:  cfg.RequestTimeout(),
	}
}

// RedditConfig maps service config onto the Reddit publisher settings.
func RedditConfig(cfg config.Config) reddit.Config {
	return reddit.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		Subreddit:    cfg.Reddit.Subreddit,
		AuthBaseURL:  cfg.Reddit.AuthBaseURL,
		APIBaseURL:   cfg.Reddit.APIBaseURL,
		UserAgent:    cfg.Reddit.UserAgent,
		PostText:     cfg.Reddit.PostText,
		Timeout:      cfg.RequestTimeout(),
	}
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetRelay returns the submission relay.
func (a *App) GetRelay() *relay.Relay {
	return a.relay
}

// GetNotifier returns the submission event notifier.
func (a *App) GetNotifier() notify.Notifier {
	return a.notifier
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	if a.tracer != nil {
		return telemetry.Handler(a.server.Handler(), a.tracer)
	}
	return a.server.Handler()
}

// MissingCredentials reports the unset credential variables per platform.
func (a *App) MissingCredentials() map[relay.Platform][]string {
	return map[relay.Platform][]string{
		relay.Telegram: TelegramConfig(a.cfg).Missing(),
		relay.Reddit:   RedditConfig(a.cfg).Missing(),
	}
}

// Close shuts down the notifier and tracer provider and flushes the logger.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	var closeErr error
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("error closing notifier", zap.Error(err))
		closeErr = fmt.Errorf("close notifier: %w", err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("error shutting down tracer provider", zap.Error(err))
			if closeErr == nil {
				closeErr = fmt.Errorf("shutdown tracer provider: %w", err)
			}
		}
	}
	// Sync fails on stdout/stderr for some platforms; nothing to do about it.
	_ = a.logger.Sync()
	return closeErr
}
