package config

import (
	"sync"

	"github.com/knadh/koanf/v2"
)

var defaultsLoaded sync.Once

// EnsureDefaultsLoaded loads registered defaults into k exactly once. Keys that
// already exist, from the config file or the environment, are left alone.
func EnsureDefaultsLoaded(k *koanf.Koanf) {
	defaultsLoaded.Do(func() {
		LoadDefaults(k)
	})
}

// LoadDefaults copies values from deprecated keys onto their replacements,
// then sets every registered default whose key is not yet present. A value
// under the replacement key always wins over a deprecated one.
func LoadDefaults(k *koanf.Koanf) {
	for oldKey, newKey := range deprecatedKeys() {
		if k.Exists(oldKey) && !k.Exists(newKey) {
			_ = k.Set(newKey, k.Get(oldKey))
		}
	}
	for key, val := range DefaultConfigs() {
		if !k.Exists(key) {
			_ = k.Set(key, val)
		}
	}
}
