package compiler

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// boolState is the outcome of normalizing one inclusion-flag value.
type boolState int

const (
	boolUnset boolState = iota // value absent, skip silently
	boolTrue
	boolFalse
	boolInvalid // present but unparseable, skip with a warning
)

var (
	truthyWords = map[string]bool{"true": true, "1": true, "yes": true, "on": true}
	falsyWords  = map[string]bool{"false": true, "0": true, "no": true, "off": true}
)

// normalizeBoolean leniently coerces a raw extension value into a boolean.
// Native booleans pass through; anything else is stringified, trimmed and
// lower-cased before matching the accepted word sets. A non-empty value
// outside both sets is "present but invalid".
func normalizeBoolean(v any) boolState {
	if v == nil {
		return boolUnset
	}
	if b, ok := v.(bool); ok {
		if b {
			return boolTrue
		}
		return boolFalse
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return boolInvalid
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return boolUnset
	}
	if truthyWords[s] {
		return boolTrue
	}
	if falsyWords[s] {
		return boolFalse
	}
	return boolInvalid
}

// shouldInclude decides whether an operation is surfaced as a tool.
// Precedence is operation-level flag, then path-level, then root-level,
// then defaultInclude. A malformed value at any level is skipped with a
// warning and resolution falls through to the next level.
func shouldInclude(rootExt, pathExt, opExt map[string]any, defaultInclude bool, diags *[]LogEntry) bool {
	levels := []struct {
		name string
		ext  map[string]any
	}{
		{"operation", opExt},
		{"path", pathExt},
		{"root", rootExt},
	}
	for _, lvl := range levels {
		var raw any
		if lvl.ext != nil {
			raw = lvl.ext[extInclude]
		}
		switch normalizeBoolean(raw) {
		case boolTrue:
			return true
		case boolFalse:
			return false
		case boolInvalid:
			*diags = append(*diags, warn(fmt.Sprintf(
				"invalid %s %s-level value %v ignored", extInclude, lvl.name, raw)))
		}
	}
	return defaultInclude
}
