package string

import (
	"fmt"
	"regexp"
	"strings"
)

var reference = regexp.MustCompile(`\$\{([^{}]*)\}`)

// LookupFunc resolves a variable name.
type LookupFunc func(string) (string, bool)

// Interpolate replaces ${NAME} references in val using lookup.
// ${NAME:-default} supplies a default for a missing or empty value and
// ${!NAME} makes the value required. Unresolved optional references are left
// as written.
func Interpolate(val string, lookup LookupFunc) (string, error) {
	if val == "" {
		return val, nil
	}
	var missing []string
	val = reference.ReplaceAllStringFunc(val, func(s string) string {
		key := reference.FindStringSubmatch(s)[1]
		def, hasDefault := "", false
		required := strings.HasPrefix(key, "!")
		key = strings.TrimPrefix(key, "!")
		if idx := strings.Index(key, ":-"); idx != -1 {
			def, hasDefault = key[idx+2:], true
			key = key[:idx]
		}
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		if required {
			missing = append(missing, key)
		}
		return s
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("required value not found for %s", strings.Join(missing, ", "))
	}
	return val, nil
}
