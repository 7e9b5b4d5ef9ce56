package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kvcache",
		Short:         "Key-value cache with a remote store and local fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (env KVCACHE_LOG_LEVEL)")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-file", "", "also append debug and higher entries to this file (env KVCACHE_LOG_FILE)")
	flags.String("config", "", "path to a YAML config file (env KVCACHE_CONFIG)")
	flags.StringSlice("env-file", []string{".env"}, ".env files to load before reading the environment")
	flags.String("remote-url", "", "remote store URL, https:// or redis:// (env KVCACHE_REMOTE_URL)")
	flags.String("remote-token", "", "remote store token (env KVCACHE_REMOTE_TOKEN)")
	flags.Bool("remote-disabled", false, "use the local store only (env KVCACHE_REMOTE_DISABLED)")
	flags.Int("max-size", 0, "local store capacity per namespace")
	flags.Duration("timeout", 0, "per-operation remote timeout")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(keyCmds()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
