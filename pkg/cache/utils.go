package cache

import "fmt"

// Key creates a cache key with prefix and ID.
func Key(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// ProviderKey builds the composite key for a cached provider payload:
// provider, symbol, then any request parameters.
func ProviderKey(provider, symbol string, params ...interface{}) string {
	key := fmt.Sprintf("%s:%s", provider, symbol)
	for _, p := range params {
		key = fmt.Sprintf("%s:%v", key, p)
	}
	return key
}
