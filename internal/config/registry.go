package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// ConfigKeyInfo describes a configuration key the service understands.
type ConfigKeyInfo struct {
	Key         string      // Dotted path, e.g. "providers.github.clientId"
	Description string      // Shown in validation output
	Type        string      // "string", "int", "bool", "duration"
	Default     interface{} // Loaded by EnsureDefaultsLoaded when the key is unset
	Deprecated  bool        // Set by RegisterDeprecatedKey
	ReplacedBy  string      // Key that receives the value of a deprecated key
}

var (
	registry   = make(map[string]ConfigKeyInfo)
	registryMu sync.RWMutex
)

// RegisterConfigKey adds a single key to the registry.
func RegisterConfigKey(info ConfigKeyInfo) {
	RegisterConfigKeys(info)
}

// RegisterConfigKeys adds keys to the registry, replacing existing entries.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, info := range infos {
		registry[info.Key] = info
	}
}

// RegisterDeprecatedKey records that oldKey was renamed to newKey. Values set
// under oldKey are copied to newKey by LoadDefaults, and ValidateConfigKeys
// warns about them.
func RegisterDeprecatedKey(oldKey, newKey string) {
	RegisterConfigKeys(ConfigKeyInfo{Key: oldKey, Deprecated: true, ReplacedBy: newKey})
}

// IsRegisteredKey reports whether key is in the registry.
func IsRegisteredKey(key string) bool {
	_, ok := LookupConfigKey(key)
	return ok
}

// LookupConfigKey returns the registry entry for key.
func LookupConfigKey(key string) (ConfigKeyInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[key]
	return info, ok
}

// DefaultConfigs returns the registered defaults keyed by config path. Keys
// without a default are omitted.
func DefaultConfigs() map[string]interface{} {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defaults := make(map[string]interface{})
	for key, info := range registry {
		if info.Default != nil {
			defaults[key] = info.Default
		}
	}
	return defaults
}

// deprecatedKeys returns the registered renames as old key -> new key.
func deprecatedKeys() map[string]string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	renames := make(map[string]string)
	for key, info := range registry {
		if info.Deprecated && info.ReplacedBy != "" {
			renames[key] = info.ReplacedBy
		}
	}
	return renames
}

// FindSimilarKeys returns up to maxResults registered keys within an edit
// distance of 3 of key, closest first. Keys in the same namespace as key get
// one point knocked off their distance.
func FindSimilarKeys(key string, maxResults int) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	type candidate struct {
		key   string
		score int
	}

	prefix := getPrefix(key)
	var candidates []candidate
	for registered := range registry {
		if score := similarity(key, registered, prefix); score <= 3 {
			candidates = append(candidates, candidate{registered, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})

	result := make([]string, 0, maxResults)
	for _, c := range candidates {
		if len(result) == maxResults {
			break
		}
		result = append(result, c.key)
	}
	return result
}

func similarity(key, registered, keyPrefix string) int {
	d := levenshtein.ComputeDistance(key, registered)
	if d > 0 && keyPrefix != "" && keyPrefix == getPrefix(registered) {
		d--
	}
	return d
}

// getPrefix returns everything before the last dot: "providers.github" for
// "providers.github.clientId".
func getPrefix(key string) string {
	i := strings.LastIndex(key, ".")
	if i == -1 {
		return ""
	}
	return key[:i]
}

// HasRegisteredPrefix reports whether a proper prefix of key is itself a
// registered key. Settings under a registered namespace are not validated
// individually.
func HasRegisteredPrefix(key string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for i := strings.Index(key, "."); i != -1; {
		if _, ok := registry[key[:i]]; ok {
			return true
		}
		next := strings.Index(key[i+1:], ".")
		if next == -1 {
			break
		}
		i += next + 1
	}
	return false
}
