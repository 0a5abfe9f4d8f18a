// Warden - Benefit-program transaction authorization engine.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/opensource-finance/warden/internal/audit"
	"github.com/opensource-finance/warden/internal/authz"
	"github.com/opensource-finance/warden/internal/bus"
	"github.com/opensource-finance/warden/internal/cache"
	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/mcc"
	"github.com/opensource-finance/warden/internal/metrics"
	"github.com/opensource-finance/warden/internal/policy"
	"github.com/opensource-finance/warden/internal/repository"
	"github.com/opensource-finance/warden/internal/rules"
	"github.com/opensource-finance/warden/internal/velocity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "warden",
		Short:         "Warden - benefit-program transaction authorization",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (overrides WARDEN_* variables)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from WARDEN_* variables, then applies
// the config file when one is given, and installs the default logger.
func loadConfig() (*domain.Config, error) {
	cfg := domain.FromEnv()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	}

	setupLogger(cfg.Logging)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"default_deny", cfg.Engine.DefaultDeny,
		"tracing", cfg.Tracing.Enabled,
	)
	return cfg, nil
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// app holds every wired component.
type app struct {
	cfg        *domain.Config
	repo       *repository.SQLRepository
	cache      domain.RuleCache
	bus        domain.EventBus
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	classifier *mcc.Classifier
	exprs      *rules.ExpressionEngine
	source     *authz.RuleSource
	orch       *authz.Orchestrator
	admin      *authz.Admin
	policyCfg  policy.Config
}

// newApp connects the backends and builds the engine.
func newApp(ctx context.Context, cfg *domain.Config) (*app, error) {
	a := &app{cfg: cfg}

	var err error
	a.repo, err = repository.New(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	ruleCache, err := cache.New(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a.cache = ruleCache
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	eventBus, err := bus.New(cfg.EventBus)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	a.bus = eventBus
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	a.policyCfg, err = policy.LoadConfig(cfg.Engine.PolicyFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	a.classifier = mcc.New(a.repo)
	if err := a.classifier.Refresh(ctx); err != nil {
		slog.Warn("using built-in merchant codes", "error", err)
	}

	a.exprs, err = rules.NewExpressionEngine()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize expression engine: %w", err)
	}

	evaluator := rules.NewEvaluator(
		velocity.NewService(a.repo),
		a.classifier,
		a.exprs,
		rules.WithLookupTimeout(cfg.Engine.LookupTimeout),
	)
	policies := policy.Build(a.policyCfg, a.repo, a.repo, a.classifier)
	slog.Info("program policies registered", "programs", policies.Programs())

	recorder := audit.New(a.repo,
		audit.WithMetrics(a.metrics),
		audit.WithPublisher(a.bus),
		audit.WithTimeout(cfg.Engine.AuditTimeout),
	)

	a.source = authz.NewRuleSource(a.repo, a.cache, a.metrics, cfg.Engine.LookupTimeout)
	a.orch = authz.NewOrchestrator(authz.Deps{
		Source:    a.source,
		Evaluator: evaluator,
		Policies:  policies,
		Recorder:  recorder,
		Metrics:   a.metrics,
		Areas:     policy.NewAreas(a.policyCfg.Areas, a.repo),
	}, cfg.Engine)
	a.admin = authz.NewAdmin(a.repo, a.source, a.bus, authz.WithCompiledRules(a.exprs))

	return a, nil
}

// Close releases the backends in reverse order of creation.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			slog.Warn("failed to close event bus", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("failed to close cache", "error", err)
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			slog.Warn("failed to close repository", "error", err)
		}
	}
}
