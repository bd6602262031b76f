package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// Matcher is a compiled predicate over application records. Matchers are
// stateless and safe to share across concurrent evaluations.
type Matcher func(app api.Application) bool

// regexChars are the characters that classify a pattern as a raw regular
// expression rather than a glob. This is a heuristic, not a grammar check:
// any one of these flips classification, even inside an intended literal.
const regexChars = `^$|+?()[]\`

// Compile translates a user-supplied pattern into a Matcher. An empty
// pattern matches every record. Patterns containing regex metacharacters are
// compiled verbatim with no anchoring added; anything else is treated as a
// glob, where * and ? are wildcards and the match is anchored over the full
// display name.
func Compile(pattern string) (Matcher, error) {
	if pattern == "" {
		return func(api.Application) bool { return true }, nil
	}

	expr := pattern
	if !strings.ContainsAny(pattern, regexChars) {
		expr = globToRegex(pattern)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return func(app api.Application) bool {
		name := app.DisplayName()
		if name == "" {
			return false
		}
		return re.MatchString(name)
	}, nil
}

// globToRegex translates a glob into an anchored regular expression. Every
// metacharacter except * and ? is escaped, so a glob with no wildcards
// matches exactly one literal name.
func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
