package deps

import (
	"strings"

	"github.com/matzehuels/gpack/pkg/registry"
)

// Latest is the version requested when no range is given.
const Latest = "latest"

// Specifier is a dependency as declared: a name and an unevaluated range.
type Specifier struct {
	Name  string
	Range string
}

// ParseSpecifier splits "name@range". A leading "@" introduces a scope and
// is not a separator, so "@types/node@20" parses as {"@types/node", "20"}.
// Local-path specifiers are returned whole as the name.
func ParseSpecifier(s string) Specifier {
	s = strings.TrimSpace(s)
	if registry.IsLocal(s) {
		return Specifier{Name: s}
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return Specifier{Name: s}
	}
	return Specifier{Name: s[:at], Range: s[at+1:]}
}

// Version returns the normalized version to request from the registry.
func (s Specifier) Version() string {
	return NormalizeVersion(s.Range)
}

// String renders the specifier back to "name@range" form.
func (s Specifier) String() string {
	if s.Range == "" {
		return s.Name
	}
	return s.Name + "@" + s.Range
}

// NormalizeVersion strips a single leading "^" or "~" from raw. An empty
// range becomes [Latest]. Local-path ranges pass through unchanged.
func NormalizeVersion(raw string) string {
	raw = strings.TrimSpace(raw)
	if registry.IsLocal(raw) {
		return raw
	}
	if strings.HasPrefix(raw, "^") || strings.HasPrefix(raw, "~") {
		raw = raw[1:]
	}
	if raw == "" {
		return Latest
	}
	return raw
}
