package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bgricker/campwatch/internal/report"
)

// Pattern is a compiled scenario filter. Patterns wrapped in slashes are
// regular expressions, anything else is a case insensitive substring.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			re, err := regexp.Compile(raw[1 : len(raw)-1])
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// String returns the pattern as written.
func (p Pattern) String() string { return p.raw }

// Match reports whether the pattern matches s.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Set holds include and exclude patterns.
type Set struct {
	Only []Pattern
	Skip []Pattern
}

// NewSet compiles include and exclude patterns.
func NewSet(only, skip []string) (Set, error) {
	o, err := Compile(only)
	if err != nil {
		return Set{}, fmt.Errorf("only-scenario: %w", err)
	}
	s, err := Compile(skip)
	if err != nil {
		return Set{}, fmt.Errorf("skip-scenario: %w", err)
	}
	return Set{Only: o, Skip: s}, nil
}

// Keep reports whether a scenario identified by id and name passes the set.
func (s Set) Keep(id, name string) bool {
	if len(s.Only) > 0 && !matchesAny(s.Only, id, name) {
		return false
	}
	if len(s.Skip) > 0 && matchesAny(s.Skip, id, name) {
		return false
	}
	return true
}

// Outlines returns the outlines passing the set, in their input order.
func (s Set) Outlines(outlines []report.ScenarioOutline) []report.ScenarioOutline {
	if len(outlines) == 0 {
		return nil
	}
	result := make([]report.ScenarioOutline, 0, len(outlines))
	for _, o := range outlines {
		if s.Keep(o.ScenarioID, o.ScenarioName) {
			result = append(result, o)
		}
	}
	return result
}

// Scenarios returns the scenarios passing the set, in their input order.
func (s Set) Scenarios(scenarios []report.ScenarioIndex) []report.ScenarioIndex {
	if len(scenarios) == 0 {
		return nil
	}
	result := make([]report.ScenarioIndex, 0, len(scenarios))
	for _, sc := range scenarios {
		if s.Keep(sc.ID, sc.Title) {
			result = append(result, sc)
		}
	}
	return result
}

func matchesAny(patterns []Pattern, values ...string) bool {
	for _, pattern := range patterns {
		for _, v := range values {
			if pattern.Match(v) {
				return true
			}
		}
	}
	return false
}
