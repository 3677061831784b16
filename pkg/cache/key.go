package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every response cache key in Redis.
const KeyPrefix = "fpl:resp"

// Key identifies a cached response.
type Key struct {
	// Endpoint is the request path relative to the API base URL.
	Endpoint string

	// QueryParams are folded into the key in sorted order.
	QueryParams url.Values
}

// String generates a deterministic key.
//
// Example:
//
//	fpl:resp:leagues-classic/314/standings:page_standings=2
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		names := make([]string, 0, len(k.QueryParams))
		for name := range k.QueryParams {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.QueryParams.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
