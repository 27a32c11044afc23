package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
)

// EnvPrefix is the prefix shared by every environment variable read into the
// global config.
const EnvPrefix = "SA__"

// SearchForConfig recursively searches for a config file starting from startDir
// and walking up the directory tree until found or reaching the root.
func SearchForConfig(filename string, startDir string) string {
	d, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	p := filepath.Join(d, filename)
	if _, err = os.Stat(p); err == nil {
		return p
	}

	parentDir := filepath.Dir(d)
	if parentDir == d {
		return ""
	}
	return SearchForConfig(filename, parentDir)
}

// TransformEnv converts SA__PROVIDERS__GITHUB__CLIENT_ID to
// providers.github.clientId.
//   - The SA__ prefix is removed
//   - Double underscores (__) become dots (.)
//   - Each segment is lower camel cased
func TransformEnv(s string) string {
	segments := strings.Split(strings.TrimPrefix(s, EnvPrefix), "__")
	for i, segment := range segments {
		segments[i] = strcase.ToLowerCamel(strings.ToLower(segment))
	}
	return strings.Join(segments, ".")
}
