package framework

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter is a function that can determine whether to run a specific check or not.
type Filter func(TestID) bool

// RegexFilters selects checks the way "go test -run" and "-skip" do: each pattern is split
// on unescaped slashes and the parts are matched against the elements of a check's ID, one
// level at a time.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) AsFilter(id TestID) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.anyMatchPrefix(id)) &&
		!r.MustNotMatch.anyMatchAll(id)
}

type levelPattern struct {
	source string
	parts  []*regexp.Regexp
}

type RegexList struct {
	patterns []levelPattern
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.source+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (r *RegexList) Set(value string) error {
	p := levelPattern{source: value}
	for _, part := range splitPattern(value) {
		rx, err := regexp.Compile(part)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		p.parts = append(p.parts, rx)
	}
	r.patterns = append(r.patterns, p)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

// anyMatchPrefix is true if some pattern matches every level that both it and id have, so
// a parent of a selected check is itself selected.
func (r RegexList) anyMatchPrefix(id TestID) bool {
	for _, p := range r.patterns {
		if p.matchLevels(id, true) {
			return true
		}
	}
	return false
}

// anyMatchAll is true if some pattern matches id at every one of its own levels.
func (r RegexList) anyMatchAll(id TestID) bool {
	for _, p := range r.patterns {
		if p.matchLevels(id, false) {
			return true
		}
	}
	return false
}

func (p levelPattern) matchLevels(id TestID, partial bool) bool {
	if !partial && len(id.Path) < len(p.parts) {
		return false
	}
	for i, rx := range p.parts {
		if i >= len(id.Path) {
			break
		}
		if !rx.MatchString(id.Path[i]) {
			return false
		}
	}
	return true
}

// splitPattern splits on slashes that are not escaped or inside brackets or parentheses.
func splitPattern(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// QuoteTestID returns a pattern for RegexList.Set that selects exactly id.
func QuoteTestID(id TestID) string {
	parts := make([]string, 0, len(id.Path))
	for _, elem := range id.Path {
		parts = append(parts, "^"+strings.ReplaceAll(regexp.QuoteMeta(elem), "/", `\/`)+"$")
	}
	return strings.Join(parts, "/")
}

// PrintFilterDescription tells the user which checks will be skipped because of filters.
func PrintFilterDescription(filters RegexFilters) {
	if filters.MustMatch.IsDefined() || filters.MustNotMatch.IsDefined() {
		fmt.Println("Some checks will be skipped based on the filter criteria for this run:")
		if filters.MustMatch.IsDefined() {
			fmt.Printf("  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			fmt.Printf("  skip any matching %s\n", filters.MustNotMatch)
		}
		fmt.Println()
	}
}
