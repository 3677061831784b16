// Package cache keeps short-lived copies of remote API responses in Redis so
// that several processes (the CLI and the web server, say) share one copy of
// the item catalog and league standings pages instead of each hitting the
// provider.
//
// Entries expire according to the provider's Expires or Cache-Control
// max-age headers, falling back to DefaultTTL. Redis evicts expired keys on
// its own; Get additionally treats an entry past its Expires as a miss.
//
//	manager := cache.NewManager(redisClient)
//	key := cache.Key{Endpoint: "/bootstrap-static/"}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the provider, then manager.Set(ctx, key, entry)
//	}
//
// Squad payloads are not stored here; they are persisted per league and
// gameweek by package store.
package cache
