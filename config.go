// Package socialauth holds the process wide configuration for the social login
// service. Individual packages take their settings as constructor arguments,
// only cmd/socialauthd reads from Config directly.
package socialauth

import (
	"net"
	"time"

	"github.com/dahromy/socialauth/internal/config"
	"github.com/dahromy/socialauth/provider"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "socialauth.yaml"

// ConfigKeyInfo contains metadata about a known configuration key.
type ConfigKeyInfo = config.ConfigKeyInfo

// ValidationWarning describes an unknown or deprecated key found in Config.
type ValidationWarning = config.ValidationWarning

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order (later sources override earlier):
// 1. Auto-discovered socialauth.yaml (in init())
// 2. Environment variables with SA__ prefix (in init())
// 3. Additional sources loaded via LoadConfigFile() or LoadConfigDefaults()
// 4. Registered defaults, for keys no other source set (EnsureDefaults)
//
// Environment variable transformation:
//   - SA__SERVER__PORT → server.port
//   - SA__PROVIDERS__GITHUB__CLIENT_ID → providers.github.clientId
var Config = koanf.New(".")

const (
	defaultPort = "8000"
	defaultHost = "localhost"
)

func init() {
	registerCoreConfigKeys()

	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	if err := Config.Load(env.Provider(config.EnvPrefix, ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// RegisterConfigKeys registers known configuration keys with metadata.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	config.RegisterConfigKeys(infos...)
}

// LoadConfigFile loads additional configuration from a YAML file into the
// global Config instance.
func LoadConfigFile(path string) {
	if err := Config.Load(file.Provider(path), yaml.Parser()); err != nil {
		panic("error loading config file '" + path + "': " + err.Error())
	}
}

// LoadConfigDefaults loads configuration values from a map into the global
// Config instance, overriding anything loaded before.
//
// Example:
//
//	socialauth.LoadConfigDefaults(map[string]interface{}{
//	    "storage.driver": "sqlite",
//	    "storage.dsn":    "file:accounts.db",
//	})
func LoadConfigDefaults(defaults map[string]interface{}) {
	if err := Config.Load(confmap.Provider(defaults, "."), nil); err != nil {
		panic("error loading config defaults: " + err.Error())
	}
}

// EnsureDefaults fills in registered defaults for keys that are still unset.
func EnsureDefaults() {
	config.EnsureDefaultsLoaded(Config)
}

// ValidateConfig reports loaded keys that are not registered, with
// suggestions for likely typos.
func ValidateConfig() []ValidationWarning {
	return config.ValidateConfigKeys(Config)
}

// FormatWarnings renders validation warnings for logging.
func FormatWarnings(warnings []ValidationWarning) string {
	return config.FormatValidationWarnings(warnings)
}

// ConfigString returns the string value for the given key.
func ConfigString(key string) string {
	return Config.String(key)
}

// ConfigInt returns the int value for the given key.
func ConfigInt(key string) int {
	return Config.Int(key)
}

// ConfigBool returns the bool value for the given key.
func ConfigBool(key string) bool {
	return Config.Bool(key)
}

// ConfigDuration returns the duration value for the given key.
func ConfigDuration(key string) time.Duration {
	return Config.Duration(key)
}

// ConfigBytes returns the byte slice value for the given key.
func ConfigBytes(key string) []byte {
	return Config.Bytes(key)
}

// ProviderCredentials returns the OAuth client id and secret configured for
// p. ok is false when either is missing, which disables the provider.
func ProviderCredentials(p provider.Name) (clientID, clientSecret string, ok bool) {
	clientID = Config.String("providers." + p.String() + ".clientId")
	clientSecret = Config.String("providers." + p.String() + ".clientSecret")
	return clientID, clientSecret, clientID != "" && clientSecret != ""
}

func registerCoreConfigKeys() {
	config.RegisterConfigKeys(
		ConfigKeyInfo{
			Key:         "name",
			Description: "User-facing name that identifies the service",
			Type:        "string",
			Default:     "socialauth",
		},
		ConfigKeyInfo{
			Key:         "address",
			Description: "External address for the service, used for OAuth redirect URLs and token audiences",
			Type:        "string",
			Default:     "http://" + net.JoinHostPort(defaultHost, defaultPort),
		},
		ConfigKeyInfo{
			Key:         "server.host",
			Description: "Host to bind the server to",
			Type:        "string",
			Default:     defaultHost,
		},
		ConfigKeyInfo{
			Key:         "server.port",
			Description: "Port to bind the server to",
			Type:        "int",
			Default:     defaultPort,
		},
		ConfigKeyInfo{
			Key:         "server.security.xFrameOptions",
			Description: "X-Frame-Options header: DENY, SAMEORIGIN, or empty to omit",
			Type:        "string",
			Default:     "DENY",
		},
		ConfigKeyInfo{
			Key:         "server.security.hstsExpiration",
			Description: "Strict-Transport-Security max-age, 0 disables the header",
			Type:        "duration",
			Default:     "0s",
		},
		ConfigKeyInfo{
			Key:         "storage.driver",
			Description: "Accounts store backend: memory, sqlite or postgres",
			Type:        "string",
			Default:     "memory",
		},
		ConfigKeyInfo{
			Key:         "storage.dsn",
			Description: "Data source name passed to the sqlite or postgres driver",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "storage.prefix",
			Description: "Prefix applied to table names",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "storage.autoCreateTables",
			Description: "Create tables and indexes on startup",
			Type:        "bool",
			Default:     true,
		},
		ConfigKeyInfo{
			Key:         "session.signingKey",
			Description: "HMAC key used to sign identity tokens",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "session.expiration",
			Description: "Lifetime of identity tokens",
			Type:        "duration",
			Default:     "24h",
		},
		ConfigKeyInfo{
			Key:         "session.cookieName",
			Description: "Name of the cookie carrying the identity token",
			Type:        "string",
			Default:     "sa-identity",
		},
		ConfigKeyInfo{
			Key:         "oauth.stateSecret",
			Description: "HMAC key used to sign OAuth state parameters",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "logging.mode",
			Description: "Logger output: dev or prod",
			Type:        "string",
			Default:     "dev",
		},
	)

	// Keys used by earlier releases, before sessions had their own section.
	config.RegisterDeprecatedKey("auth.signingKey", "session.signingKey")
	config.RegisterDeprecatedKey("auth.expiration", "session.expiration")

	for _, p := range provider.All() {
		config.RegisterConfigKeys(
			ConfigKeyInfo{
				Key:         "providers." + p.String() + ".clientId",
				Description: "OAuth client id for " + p.String(),
				Type:        "string",
			},
			ConfigKeyInfo{
				Key:         "providers." + p.String() + ".clientSecret",
				Description: "OAuth client secret for " + p.String(),
				Type:        "string",
			},
		)
	}
}
