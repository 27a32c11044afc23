package config

import (
	"testing"

	"github.com/agnivade/levenshtein"
	"github.com/stretchr/testify/assert"
)

// resetRegistry swaps in a registry holding only keys, restoring the previous
// one when the test finishes.
func resetRegistry(t *testing.T, keys ...ConfigKeyInfo) {
	t.Helper()
	registryMu.Lock()
	prev := registry
	registry = make(map[string]ConfigKeyInfo)
	for _, k := range keys {
		registry[k.Key] = k
	}
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = prev
		registryMu.Unlock()
	})
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"clientId", "clientId", 0},
		{"clientId", "clientID", 1},
		{"signingKey", "signingKy", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein.ComputeDistance(tt.s1, tt.s2), "%q vs %q", tt.s1, tt.s2)
	}
}

func TestFindSimilarKeys(t *testing.T) {
	resetRegistry(t,
		ConfigKeyInfo{Key: "providers.github.clientId"},
		ConfigKeyInfo{Key: "providers.github.clientSecret"},
		ConfigKeyInfo{Key: "session.signingKey"},
		ConfigKeyInfo{Key: "server.port"},
	)

	tests := []struct {
		key  string
		want string
	}{
		{"providers.github.clientID", "providers.github.clientId"},
		{"providers.github.clientSecrt", "providers.github.clientSecret"},
		{"session.signingKy", "session.signingKey"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Contains(t, FindSimilarKeys(tt.key, 3), tt.want)
		})
	}

	assert.Empty(t, FindSimilarKeys("totally.unrelated.setting", 3))
}

func TestRegistry(t *testing.T) {
	resetRegistry(t)

	RegisterConfigKey(ConfigKeyInfo{Key: "storage.driver", Type: "string", Default: "memory"})
	RegisterConfigKeys(
		ConfigKeyInfo{Key: "storage.dsn", Type: "string"},
		ConfigKeyInfo{Key: "session.expiration", Type: "duration", Default: "24h"},
	)
	RegisterDeprecatedKey("auth.signingKey", "session.signingKey")

	assert.True(t, IsRegisteredKey("storage.driver"))
	assert.False(t, IsRegisteredKey("storage.driverName"))

	info, ok := LookupConfigKey("auth.signingKey")
	assert.True(t, ok)
	assert.True(t, info.Deprecated)
	assert.Equal(t, "session.signingKey", info.ReplacedBy)

	assert.Equal(t, map[string]string{"auth.signingKey": "session.signingKey"}, deprecatedKeys())
	assert.Equal(t, map[string]interface{}{
		"storage.driver":     "memory",
		"session.expiration": "24h",
	}, DefaultConfigs())
}

func TestHasRegisteredPrefix(t *testing.T) {
	resetRegistry(t, ConfigKeyInfo{Key: "providers"})

	assert.True(t, HasRegisteredPrefix("providers.github.clientId"))
	assert.False(t, HasRegisteredPrefix("providers"))
	assert.False(t, HasRegisteredPrefix("storage.dsn"))
}

func TestGetPrefix(t *testing.T) {
	assert.Equal(t, "providers.github", getPrefix("providers.github.clientId"))
	assert.Equal(t, "", getPrefix("name"))
}
