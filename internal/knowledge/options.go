package knowledge

import "time"

const (
	defaultTopK    = 5
	defaultTimeout = 10 * time.Second
)

type searchConfig struct {
	topK       int
	collection string
	timeout    time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK bounds the number of results. Non-positive values keep the
// default.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithCollection restricts the search to one collection.
func WithCollection(name string) SearchOption {
	return func(c *searchConfig) { c.collection = name }
}

// WithTimeout overrides the per-search deadline.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: defaultTopK, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
