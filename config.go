package crewauth

import (
	"crypto/rand"
	"time"

	"github.com/DEPthes/crewauth/token"
)

// Config defines the immutable engine configuration. Populate it before
// Builder.Build; the engine never reads it again after construction.
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	Blacklist BlacklistConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds signing parameters for both credential kinds.
type JWTConfig struct {
	// Secret is the process-wide HMAC signing key. When empty a random key
	// is generated at build time and a warning is logged; every restart then
	// invalidates all outstanding credentials. A non-empty key shorter than
	// token.MinSecretLength is a fatal ConfigurationError.
	Secret     []byte
	Issuer     string
	Leeway     time.Duration
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls refresh credential rotation and cache mirroring.
type RefreshConfig struct {
	// SingleUse deletes the old refresh record on successful rotation,
	// making every refresh credential strictly one-shot. Disabling it keeps
	// the record alive for multi-device reuse.
	SingleUse bool

	// CacheTTL bounds the Redis mirror entry lifetime. It is clamped to
	// RefreshTTL at build time so a stale mirror entry can never outlive a
	// deleted durable record by more than the durable window.
	CacheTTL time.Duration
}

/*
====================================
BLACKLIST CONFIG
====================================
*/

// BlacklistConfig controls the revocation list layout.
type BlacklistConfig struct {
	// KeyPrefix is prepended to the raw credential string when building the
	// Redis key. Empty by default: the key is the credential itself.
	KeyPrefix string
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process counters exposed through
// Engine.MetricsSnapshot and the exporters under metrics/export.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Refresh: RefreshConfig{
			SingleUse: true,
			CacheTTL:  24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = make([]byte, len(cfg.JWT.Secret))
		copy(out.JWT.Secret, cfg.JWT.Secret)
	}
	return out
}

// normalizeConfig applies defaults and clamps, returning a fatal
// ConfigurationError for states that cannot be repaired. The generatedSecret
// flag tells the builder to log the dev-fallback warning.
func normalizeConfig(cfg *Config) (generatedSecret bool, err error) {
	if cfg.JWT.AccessTTL <= 0 {
		return false, &ConfigurationError{Reason: "non-positive access TTL"}
	}
	if cfg.JWT.RefreshTTL <= 0 {
		return false, &ConfigurationError{Reason: "non-positive refresh TTL"}
	}
	if cfg.JWT.RefreshTTL < cfg.JWT.AccessTTL {
		return false, &ConfigurationError{Reason: "refresh TTL shorter than access TTL"}
	}

	switch {
	case len(cfg.JWT.Secret) == 0:
		secret, genErr := randomSecret(token.MinSecretLength)
		if genErr != nil {
			return false, &ConfigurationError{Reason: "signing secret generation failed"}
		}
		cfg.JWT.Secret = secret
		generatedSecret = true
	case len(cfg.JWT.Secret) < token.MinSecretLength:
		return false, &ConfigurationError{Reason: "signing secret too short"}
	}

	if cfg.Refresh.CacheTTL <= 0 || cfg.Refresh.CacheTTL > cfg.JWT.RefreshTTL {
		cfg.Refresh.CacheTTL = cfg.JWT.RefreshTTL
	}

	return generatedSecret, nil
}

func randomSecret(size int) ([]byte, error) {
	secret := make([]byte, size)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
