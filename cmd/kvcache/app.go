package main

import (
	"io"

	"github.com/epochly/go-kvcache/cache"
	"github.com/epochly/go-kvcache/env"
	"github.com/epochly/go-kvcache/logger"
	"github.com/epochly/go-kvcache/sys"
	"github.com/spf13/cobra"
)

const (
	namespaceGeneral   = "general"
	namespaceRateLimit = "ratelimit"

	// generalPrefix keeps keys set through /cache apart from the
	// ratelimit: counters when both namespaces share one remote store.
	generalPrefix = "cache"
)

// app holds the namespaces shared by every command.
type app struct {
	file    *env.File
	log     logger.Logger
	logFile io.Closer
	metrics *cache.Metrics
	general *cache.Fallback
	limits  *cache.Fallback
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := env.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	file := &env.File{}
	if path := env.FlagOrEnv(cmd, "config", "KVCACHE_CONFIG", ""); path != "" {
		f, err := env.LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = f
	}
	if file.LogLevel != "" && env.FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, "") == "" {
		_ = cmd.Flags().Set("log-level", file.LogLevel)
	}
	log := env.NewLogger(cmd)
	var logFile io.Closer
	if path := env.FlagOrEnv(cmd, "log-file", "KVCACHE_LOG_FILE", ""); path != "" {
		f, err := env.OpenLogFile(log, path, logger.LevelDebug)
		if err != nil {
			return nil, err
		}
		logFile = f
	}

	maxSize, _ := cmd.Flags().GetInt("max-size")
	if maxSize <= 0 {
		maxSize = file.MaxSize
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := env.CacheConfig(cmd, file.Cache)
	log.Debug("remote config: %s", cfg)
	if cfg.RemoteEnabled() && sys.IsPlaintextRemote(cfg.URL) {
		log.Warn("remote URL is not encrypted, the token is sent in clear text")
	}

	a := &app{file: file, log: log, logFile: logFile, metrics: cache.NewMetrics()}
	opts := []cache.Option{
		cache.WithLogger(log),
		cache.WithMetrics(a.metrics),
	}
	if maxSize > 0 {
		opts = append(opts, cache.WithMaxSize(maxSize))
	}
	if timeout > 0 {
		opts = append(opts, cache.WithQueryTimeout(timeout), cache.WithRESTOptions(cache.WithRESTTimeout(timeout)))
	}
	a.general = cache.New(cfg, append(opts, cache.WithName(namespaceGeneral), cache.WithPrefix(generalPrefix))...)
	a.limits = cache.New(cfg, append(opts, cache.WithName(namespaceRateLimit))...)
	return a, nil
}

func (a *app) Close() {
	if err := a.general.Close(); err != nil {
		a.log.Warn("closing %s cache: %s", namespaceGeneral, err)
	}
	if err := a.limits.Close(); err != nil {
		a.log.Warn("closing %s cache: %s", namespaceRateLimit, err)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
