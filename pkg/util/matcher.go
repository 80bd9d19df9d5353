package util

import (
	"path"
	"regexp"
	"strings"
)

// Matcher reports whether a host name is selected.
type Matcher func(name string) bool

// MatchAll accepts every host name.
func MatchAll(string) bool { return true }

// NewMatcher compiles pattern into a Matcher. Glob mode uses shell wildcard
// semantics (*, ?, [...], [!...]); regex mode is case-insensitive and
// unanchored. An empty pattern selects every host. Compilation errors are
// returned as *PatternError so they surface before any device is contacted.
func NewMatcher(option, pattern string, useRegex bool) (Matcher, error) {
	if pattern == "" {
		return MatchAll, nil
	}

	if useRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, &PatternError{Option: option, Pattern: pattern, Err: err}
		}
		return re.MatchString, nil
	}

	glob := translateGlob(pattern)
	// path.Match validates the whole pattern even when the name does not match.
	if _, err := path.Match(glob, ""); err != nil {
		return nil, &PatternError{Option: option, Pattern: pattern, Err: err}
	}
	return func(name string) bool {
		ok, _ := path.Match(glob, name)
		return ok
	}, nil
}

// translateGlob rewrites a shell glob into path.Match syntax. Backslash is
// a literal character, [!...] negates a class, a ']' first in a class and
// a '-' first or last in a class are literal, and a '[' without a closing
// ']' matches itself.
func translateGlob(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			end := strings.IndexByte(pattern[j:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			end += j
			b.WriteByte('[')
			class := pattern[i+1 : end]
			if strings.HasPrefix(class, "!") {
				b.WriteByte('^')
				class = class[1:]
			}
			for k := 0; k < len(class); k++ {
				switch ch := class[k]; {
				case ch == '\\':
					b.WriteString(`\\`)
				case ch == ']', ch == '^' && k == 0, ch == '-' && (k == 0 || k == len(class)-1):
					b.WriteByte('\\')
					b.WriteByte(ch)
				default:
					b.WriteByte(ch)
				}
			}
			b.WriteByte(']')
			i = end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
