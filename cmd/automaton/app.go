package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/internal/config"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/pkg/adapters/file"
	"github.com/messagemind/automaton/pkg/adapters/logsender"
	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/adapters/redis"
	"github.com/messagemind/automaton/pkg/adapters/smtp"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
	"github.com/spf13/cobra"
)

// app bundles the adapters selected by configuration.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	repo   ports.GraphRepository
	locker ports.DistributedLocker
	closer func() error
}

// loadConfig reads .env and the environment, then applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store, _ = flags.GetString("store")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Changed("max-duration") {
		d, _ := flags.GetDuration("max-duration")
		cfg.MaxDuration = config.Duration(d)
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	return cfg, cfg.Validate()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, closer: func() error { return nil }}
	switch cfg.Store {
	case config.StoreFile:
		a.repo = file.New(cfg.DataDir)
	case config.StoreRedis:
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(cfg.RedisPrefix))
		if err := store.Client().Ping(cmd.Context()).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", cfg.RedisAddr, err)
		}
		a.repo = store
		a.locker = redis.NewLocker(store.Client(), cfg.RedisPrefix)
		a.closer = store.Close
	default:
		logger.Warn("using in-memory store: automations are lost on exit")
		a.repo = memory.NewStore()
	}
	logger.Debug("store ready", "store", cfg.Store)
	return a, nil
}

func (a *app) Close() error {
	return a.closer()
}

// sender returns the SMTP transport when credentials are configured, otherwise a log-only sender.
func (a *app) sender(dryRun bool) ports.MessageSender {
	if dryRun || !a.cfg.SMTPEnabled() {
		if !dryRun {
			a.logger.Warn("SMTP credentials missing: messages are logged, not sent")
		}
		return logsender.New(a.logger)
	}
	return smtp.New(a.cfg.SMTPHost, a.cfg.SMTPPort, a.cfg.SMTPUser, a.cfg.SMTPPassword,
		smtp.WithFromName(a.cfg.SMTPFrom),
		smtp.WithLogger(a.logger),
	)
}

func (a *app) service() *automaton.Service {
	opts := []automaton.ServiceOption{automaton.WithServiceLogger(a.logger)}
	if a.locker != nil {
		opts = append(opts, automaton.WithLocker(a.locker))
	}
	return automaton.NewService(a.repo, opts...)
}

func (a *app) engineOptions() []automaton.Option {
	opts := []automaton.Option{
		automaton.WithLogger(a.logger),
		automaton.WithMaxSteps(a.cfg.MaxSteps),
	}
	if a.cfg.MaxDuration > 0 {
		opts = append(opts, automaton.WithMaxDuration(a.cfg.MaxDuration.Std()))
	}
	return opts
}

// loadGraph reads ref as a graph file when such a file exists, otherwise as an id in the store.
func (a *app) loadGraph(ctx context.Context, ref string) (*domain.Graph, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return file.LoadGraphFile(ref)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return a.repo.Get(ctx, ref)
}
