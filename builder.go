package crewauth

import (
	"errors"

	"github.com/DEPthes/crewauth/blacklist"
	"github.com/DEPthes/crewauth/refreshstate"
	"github.com/DEPthes/crewauth/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. Configure it with the With methods, then call
// Build exactly once. Construction is allocation-only; no I/O happens until
// the first Engine call.
type Builder struct {
	config   Config
	redis    *redis.Client
	durable  refreshstate.Store
	resolver SubjectResolver
	logger   *zap.Logger

	built bool
}

// New creates a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the blacklist and the refresh
// cache mirror.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore sets the authoritative durable tier for refresh records.
func (b *Builder) WithRefreshStore(store refreshstate.Store) *Builder {
	b.durable = store
	return b
}

// WithSubjectResolver sets the external account loader consulted during
// authentication.
func (b *Builder) WithSubjectResolver(resolver SubjectResolver) *Builder {
	b.resolver = resolver
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. Configuration
// problems return a ConfigurationError and are meant to fail process
// startup, not individual requests.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	generated, err := normalizeConfig(&cfg)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if generated {
		logger.Warn("no signing secret configured; generated a random key, all credentials become invalid on restart")
	}

	if b.redis == nil {
		return nil, &ConfigurationError{Reason: "redis client required"}
	}
	if b.durable == nil {
		return nil, &ConfigurationError{Reason: "durable refresh store required"}
	}
	if b.resolver == nil {
		return nil, &ConfigurationError{Reason: "subject resolver required"}
	}

	codec, err := token.NewCodec(token.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	metrics := NewMetrics(cfg.Metrics.Enabled)

	tiered := refreshstate.NewTiered(b.durable, refreshstate.NewMirror(b.redis), refreshstate.TieredOptions{
		CacheTTL:        cfg.Refresh.CacheTTL,
		Logger:          logger,
		OnCacheFallback: func() { metrics.Inc(MetricCacheFallback) },
		OnCacheDegraded: func() { metrics.Inc(MetricCacheDegraded) },
	})

	return &Engine{
		config:    cfg,
		codec:     codec,
		refresh:   tiered,
		blacklist: blacklist.NewStore(b.redis, cfg.Blacklist.KeyPrefix),
		resolver:  b.resolver,
		logger:    logger,
		metrics:   metrics,
	}, nil
}
