package config

import (
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigKeys(t *testing.T) {
	resetRegistry(t,
		ConfigKeyInfo{Key: "name"},
		ConfigKeyInfo{Key: "session.signingKey"},
		ConfigKeyInfo{Key: "providers.github.clientId"},
		ConfigKeyInfo{Key: "myapp"},
	)
	RegisterDeprecatedKey("auth.signingKey", "session.signingKey")

	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(map[string]interface{}{
		"name":                      "socialauth",
		"session.signingKy":         "secret",
		"providers.github.clientId": "abc",
		"myapp.feature.enabled":     true,
		"auth.signingKey":           "old",
	}, "."), nil))

	warnings := ValidateConfigKeys(k)
	byKey := map[string]ValidationWarning{}
	for _, w := range warnings {
		byKey[w.Key] = w
	}

	require.Len(t, warnings, 2)
	assert.Contains(t, byKey["session.signingKy"].Suggestions, "session.signingKey")
	assert.Equal(t, []string{"session.signingKey"}, byKey["auth.signingKey"].Suggestions)
}

func TestValidateConfigKeys_AllKnown(t *testing.T) {
	resetRegistry(t, ConfigKeyInfo{Key: "server.port"}, ConfigKeyInfo{Key: "server.host"})

	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(map[string]interface{}{
		"server.port": 8000,
		"server.host": "localhost",
	}, "."), nil))

	assert.Empty(t, ValidateConfigKeys(k))
}

func TestValidationWarningString(t *testing.T) {
	tests := []struct {
		name    string
		warning ValidationWarning
		want    string
	}{
		{
			name:    "single suggestion",
			warning: ValidationWarning{Key: "server.prt", Suggestions: []string{"server.port"}},
			want:    "Did you mean 'server.port'?",
		},
		{
			name:    "multiple suggestions",
			warning: ValidationWarning{Key: "server.hst", Suggestions: []string{"server.host", "server.port"}},
			want:    "Did you mean one of these?",
		},
		{
			name:    "no suggestions",
			warning: ValidationWarning{Key: "unknown.key"},
			want:    "'unknown.key' is not a known config key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.warning.String(), tt.want)
		})
	}
}

func TestFormatValidationWarnings(t *testing.T) {
	assert.Empty(t, FormatValidationWarnings(nil))

	out := FormatValidationWarnings([]ValidationWarning{
		{Key: "session.signingKy", Suggestions: []string{"session.signingKey"}},
		{Key: "unknownKey"},
	})
	assert.Contains(t, out, "Configuration warnings detected")
	assert.Contains(t, out, "session.signingKy")
	assert.Contains(t, out, "unknownKey")
	assert.Contains(t, out, "RegisterConfigKey")
}

func TestEnsureDefaultsLoaded(t *testing.T) {
	resetRegistry(t,
		ConfigKeyInfo{Key: "storage.driver", Default: "memory"},
		ConfigKeyInfo{Key: "server.port", Default: 8000},
	)

	k := koanf.New(".")
	require.NoError(t, k.Set("server.port", 9000))
	LoadDefaults(k)

	assert.Equal(t, "memory", k.String("storage.driver"))
	assert.Equal(t, 9000, k.Int("server.port"))
}

func TestLoadDefaults_DeprecatedKeys(t *testing.T) {
	resetRegistry(t,
		ConfigKeyInfo{Key: "session.signingKey"},
		ConfigKeyInfo{Key: "session.expiration", Default: "24h"},
	)
	RegisterDeprecatedKey("auth.signingKey", "session.signingKey")
	RegisterDeprecatedKey("auth.expiration", "session.expiration")

	t.Run("CopiedToReplacement", func(t *testing.T) {
		k := koanf.New(".")
		require.NoError(t, k.Set("auth.signingKey", "old-key"))
		require.NoError(t, k.Set("auth.expiration", "1h"))
		LoadDefaults(k)

		assert.Equal(t, "old-key", k.String("session.signingKey"))
		assert.Equal(t, "1h", k.String("session.expiration"), "deprecated value beats the default")
	})

	t.Run("ReplacementWins", func(t *testing.T) {
		k := koanf.New(".")
		require.NoError(t, k.Set("auth.signingKey", "old-key"))
		require.NoError(t, k.Set("session.signingKey", "new-key"))
		LoadDefaults(k)

		assert.Equal(t, "new-key", k.String("session.signingKey"))
		assert.Equal(t, "24h", k.String("session.expiration"))
	})
}
