package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/epochly/go-kvcache/env"
	"github.com/epochly/go-kvcache/health"
	"github.com/epochly/go-kvcache/ratelimit"
	"github.com/epochly/go-kvcache/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			listen := env.FlagOrEnv(cmd, "listen", "KVCACHE_LISTEN", a.file.Listen)
			limit, _ := cmd.Flags().GetInt("rate-limit")
			if limit <= 0 {
				limit = a.file.RateLimit.Limit
			}
			window, err := env.DurationFlagOrEnv(cmd, "rate-window", "KVCACHE_RATE_WINDOW", 0)
			if err != nil {
				return err
			}
			if window <= 0 && a.file.RateLimit.Window != "" {
				window, _ = env.ParseDuration(a.file.RateLimit.Window)
			}

			checker := health.NewChecker()
			checker.Register(namespaceGeneral, a.general)
			checker.Register(namespaceRateLimit, a.limits)

			srv := server.New(server.Options{
				Address: listen,
				Cache:   a.general,
				Limiter: ratelimit.New(a.limits, limit, window),
				Health:  checker,
				Metrics: a.metrics,
				Logger:  a.log,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on (env KVCACHE_LISTEN)")
	cmd.Flags().Int("rate-limit", 0, "requests per window per client on /cache routes")
	cmd.Flags().String("rate-window", "", "rate limit window, e.g. 1m (env KVCACHE_RATE_WINDOW)")
	return cmd
}
