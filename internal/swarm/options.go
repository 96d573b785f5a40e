package swarm

import "time"

// Default TTLs for the result cache and the leaderboard snapshot cache.
const (
	DefaultCacheTTL       = 90 * time.Second
	DefaultLeaderboardTTL = 5 * time.Minute
)

// Options control one Analyze invocation.
type Options struct {
	// AgentIDs selects the subset of registered agents to query.
	// Empty means all agents, in registry order.
	AgentIDs []string

	// Sequential switches the fan-out from concurrent to one-at-a-time
	// invocation in registry order, for rate-limit-sensitive
	// deployments. Failures do not short-circuit in either mode.
	Sequential bool

	// UseCache enables the result-cache check before orchestration and
	// the cache write after it.
	UseCache bool

	// CacheTTL overrides the default TTL for the cache write.
	// Zero means DefaultCacheTTL.
	CacheTTL time.Duration

	// IncludeMarketContext attaches the market data blob to each
	// adapter call when a context builder is configured.
	IncludeMarketContext bool
}

// DefaultOptions returns the options used for a plain analysis: all
// agents, parallel fan-out, caching and market context enabled.
func DefaultOptions() Options {
	return Options{
		UseCache:             true,
		CacheTTL:             DefaultCacheTTL,
		IncludeMarketContext: true,
	}
}

func (o Options) cacheTTL() time.Duration {
	if o.CacheTTL > 0 {
		return o.CacheTTL
	}
	return DefaultCacheTTL
}
