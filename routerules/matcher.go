// Package routerules compiles a table of route rules into a matcher that finds the most
// specific rule for a request path, and exports it in a flat form that can be embedded in
// a manifest response.
//
// Pattern syntax:
//
//	/about          static; matches only /about
//	/a/*, /a/:id    dynamic; "*" or ":name" matches exactly one segment
//	/blog/**        wildcard; matches /blog and anything below it
//
// A "**" segment (optionally "**:name") is only allowed in the final position. Query strings
// and trailing slashes are ignored when matching.
package routerules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ErrInvalidPattern is returned by Compile for a pattern that cannot be parsed.
var ErrInvalidPattern = errors.New("invalid route rule pattern")

// Rule associates a path pattern with arbitrary JSON metadata.
type Rule struct {
	Pattern  string        `json:"pattern"`
	Metadata ldvalue.Value `json:"metadata"`
}

type ruleKind int

const (
	kindWildcard ruleKind = iota
	kindDynamic
	kindStatic
)

type compiledRule struct {
	kind     ruleKind
	pattern  string   // canonical form
	segments []string // not including a trailing "**"
	tail     bool
	literals int
	metadata ldvalue.Value
}

// Matcher is an immutable compiled rule table. It is safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// Compile builds a Matcher from an ordered rule table. If two rules have the same canonical
// pattern, the later one replaces the earlier one.
func Compile(rules []Rule) (*Matcher, error) {
	byPattern := make(map[string]compiledRule, len(rules))
	for _, r := range rules {
		cr, err := compileRule(r.Pattern, r.Metadata)
		if err != nil {
			return nil, err
		}
		byPattern[cr.pattern] = cr
	}
	m := &Matcher{rules: make([]compiledRule, 0, len(byPattern))}
	for _, cr := range byPattern {
		m.rules = append(m.rules, cr)
	}
	sort.Slice(m.rules, func(i, j int) bool { return lessSpecific(m.rules[i], m.rules[j]) })
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(rules []Rule) *Matcher {
	m, err := Compile(rules)
	if err != nil {
		panic(err)
	}
	return m
}

func compileRule(pattern string, metadata ldvalue.Value) (compiledRule, error) {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return compiledRule{}, fmt.Errorf("%w %q: must start with \"/\"", ErrInvalidPattern, pattern)
	}
	segs := splitPath(pattern)
	cr := compiledRule{metadata: metadata}
	for i, s := range segs {
		switch {
		case s == "**" || strings.HasPrefix(s, "**:"):
			if i != len(segs)-1 {
				return compiledRule{}, fmt.Errorf(`%w %q: "**" must be the last segment`, ErrInvalidPattern, pattern)
			}
			cr.tail = true
		case isPlaceholder(s):
			cr.segments = append(cr.segments, s)
		case strings.Contains(s, "*"):
			return compiledRule{}, fmt.Errorf("%w %q: partial wildcard in segment %q", ErrInvalidPattern, pattern, s)
		default:
			cr.segments = append(cr.segments, s)
			cr.literals++
		}
	}
	switch {
	case cr.literals < len(cr.segments):
		cr.kind = kindDynamic
	case cr.tail:
		cr.kind = kindWildcard
	default:
		cr.kind = kindStatic
	}
	cr.pattern = joinPath(cr.segments)
	if cr.tail {
		cr.pattern = strings.TrimSuffix(cr.pattern, "/") + "/**"
	}
	return cr, nil
}

func isPlaceholder(segment string) bool {
	return segment == "*" || (strings.HasPrefix(segment, ":") && len(segment) > 1)
}

func (cr compiledRule) matches(segs []string) bool {
	if cr.tail {
		if len(segs) < len(cr.segments) {
			return false
		}
	} else if len(segs) != len(cr.segments) {
		return false
	}
	for i, s := range cr.segments {
		if isPlaceholder(s) {
			continue
		}
		if segs[i] != s {
			return false
		}
	}
	return true
}

// lessSpecific orders rules so that the most specific one sorts last. The order depends only
// on the patterns, so a Matcher rebuilt from an export resolves ties identically.
func lessSpecific(a, b compiledRule) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.literals != b.literals {
		return a.literals < b.literals
	}
	if len(a.segments) != len(b.segments) {
		return len(a.segments) < len(b.segments)
	}
	if a.tail != b.tail {
		return a.tail
	}
	for i := range a.segments {
		pa, pb := isPlaceholder(a.segments[i]), isPlaceholder(b.segments[i])
		if pa != pb {
			return pa
		}
	}
	return a.pattern > b.pattern
}

// Match returns the most specific rule matching path.
func (m *Matcher) Match(path string) (Rule, bool) {
	segs := splitPath(stripQuery(path))
	for i := len(m.rules) - 1; i >= 0; i-- {
		if m.rules[i].matches(segs) {
			return m.rules[i].rule(), true
		}
	}
	return Rule{}, false
}

// MatchAll returns every rule matching path, least specific first.
func (m *Matcher) MatchAll(path string) []Rule {
	segs := splitPath(stripQuery(path))
	var ret []Rule
	for _, cr := range m.rules {
		if cr.matches(segs) {
			ret = append(ret, cr.rule())
		}
	}
	return ret
}

// Len returns the number of distinct patterns in the matcher.
func (m *Matcher) Len() int {
	return len(m.rules)
}

func (cr compiledRule) rule() Rule {
	return Rule{Pattern: cr.pattern, Metadata: cr.metadata}
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	ret := parts[:0]
	for _, s := range parts {
		if s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}
