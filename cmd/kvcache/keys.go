package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/epochly/go-kvcache/cache"
	"github.com/epochly/go-kvcache/env"
	"github.com/spf13/cobra"
)

func keyCmds() []*cobra.Command {
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value. JSON values are stored decoded, anything else as a string",
		Args:  cobra.ExactArgs(2),
		RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
			ttl, err := ttlFlag(cmd)
			if err != nil {
				return nil, err
			}
			return c.Set(cmd.Context(), args[0], parseValue(args[1]), ttl), nil
		}),
	}
	set.Flags().String("ttl", "", "time to live, e.g. 90s, 15m or 1d (default 1h)")

	expire := &cobra.Command{
		Use:   "expire <key>",
		Short: "Reset the time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
			ttl, err := ttlFlag(cmd)
			if err != nil {
				return nil, err
			}
			return c.Expire(cmd.Context(), args[0], ttl), nil
		}),
	}
	expire.Flags().String("ttl", "", "time to live, e.g. 90s, 15m or 1d (default 1h)")

	return []*cobra.Command{
		{
			Use:   "get <key>",
			Short: "Print a value, or null when missing",
			Args:  cobra.ExactArgs(1),
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				val, _ := c.Get(cmd.Context(), args[0])
				return val, nil
			}),
		},
		set,
		{
			Use:   "del <key>",
			Short: "Delete a key",
			Args:  cobra.ExactArgs(1),
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				return c.Del(cmd.Context(), args[0]), nil
			}),
		},
		{
			Use:   "exists <key>",
			Short: "Report whether a key is present",
			Args:  cobra.ExactArgs(1),
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				return c.Exists(cmd.Context(), args[0]), nil
			}),
		},
		{
			Use:   "incr <key>",
			Short: "Increment a counter",
			Args:  cobra.ExactArgs(1),
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				return c.Increment(cmd.Context(), args[0]), nil
			}),
		},
		expire,
		{
			Use:   "ping",
			Short: "Check the cache is reachable",
			Args:  cobra.NoArgs,
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				return c.Ping(cmd.Context()), nil
			}),
		},
		{
			Use:   "stats",
			Short: "Print cache stats",
			Args:  cobra.NoArgs,
			RunE: withCache(func(cmd *cobra.Command, c cache.Cache, args []string) (any, error) {
				return c.Stats(cmd.Context()), nil
			}),
		},
	}
}

type cacheRunner func(cmd *cobra.Command, c cache.Cache, args []string) (any, error)

// withCache opens the general namespace, runs fn and prints its result as JSON.
func withCache(fn cacheRunner) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		out, err := fn(cmd, a.general, args)
		if err != nil {
			return err
		}
		buf, err := json.Marshal(out)
		if err != nil {
			return errors.Wrap(err, "encoding result")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(buf))
		return nil
	}
}

func ttlFlag(cmd *cobra.Command) (time.Duration, error) {
	val, _ := cmd.Flags().GetString("ttl")
	if val == "" {
		return cache.DefaultTTL, nil
	}
	ttl, err := env.ParseDuration(val)
	if err != nil || ttl <= 0 {
		return 0, errors.Newf("invalid --ttl %q", val)
	}
	return ttl, nil
}

func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
