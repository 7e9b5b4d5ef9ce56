// Package cache provides a key-value cache facade that stays available when
// its remote backend does not.
//
// # Cache Interface
//
// The [Cache] interface defines eight operations: [Cache.Set], [Cache.Get],
// [Cache.Del], [Cache.Exists], [Cache.Increment], [Cache.Expire],
// [Cache.Ping] and [Cache.Stats]. None of them return an error. A failure of
// the remote tier is logged and the call is answered from the local store.
//
// # Tiers
//
//   - [LocalStore] is a bounded in-process store. Entries expire lazily when
//     they are next read; [LocalStore.Size] is the only operation that scans.
//     When a new key is added to a full store, expired entries are dropped
//     and, if that is not enough, the oldest fifth of the remaining entries by
//     insertion order.
//
//   - [RESTClient] speaks a command-over-HTTP protocol. Each command is a
//     JSON array POSTed with a bearer token:
//
//     ["SETEX", "user:1", "3600", "{\"name\":\"ada\"}"]
//
//     and the reply is {"result": ...} or {"error": ...}. Values are JSON
//     encoded before SETEX and decoded after GET. A null result is a miss;
//     0, false and "" are hits.
//
//   - [RedisClient] issues the same commands over the native Redis protocol
//     using [github.com/redis/go-redis/v9]. Values use a [Codec], JSON by
//     default or msgpack with [MsgpackCodec].
//
// [NewRemote] picks the client from the URL scheme: redis:// and rediss://
// select [RedisClient], anything else [RESTClient].
//
// # Fallback
//
// [New] reads a [Config] once. The remote tier is enabled when both URL and
// token are set and the disable flag is not; that decision does not change
// for the lifetime of the [Fallback]. Every remote call runs under its own
// timeout ([DefaultQueryTimeout]). When it fails the orchestrator:
//
//  1. logs a warning naming the operation and key,
//  2. counts the failure in kvcache_remote_failures_total,
//  3. performs the same operation on its [LocalStore].
//
// Successful remote writes are not copied into the local store. Increment on
// the local store treats a missing value as zero and keeps the counter for
// [IncrementTTL]. Expire on the local store re-sets the current value with the
// new ttl and reports false when the key is absent.
//
// Create one [Fallback] per namespace and pass it to the code that needs it:
//
//	general := cache.New(cfg, cache.WithName("general"), cache.WithLogger(log))
//	sessions := cache.New(cfg, cache.WithName("sessions"), cache.WithPrefix("session"))
//
// # Generic Helpers
//
// [GetAs] wraps [Cache.Get] with a type. Values held by the local store are
// returned by type assertion, values decoded from the remote tier are
// converted through JSON:
//
//	found, user, err := cache.GetAs[User](ctx, c, "user:123")
//
// [Exec] is a cache-aside helper. The [Invoker] returns (value, found, error);
// values with found=false are not cached. Concurrent misses for the same key
// on the same cache share a single invocation.
package cache
