// Package featureflags evaluates FEATURE_FLAGS, a comma-separated list such as
// "popular_legacy_order=off,report_rate_limit=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// PopularLegacyOrder ranks popular listings by the newest favorite rows instead of favorite count.
	PopularLegacyOrder = "popular_legacy_order"
	// ReportRateLimit throttles report submissions per user.
	ReportRateLimit = "report_rate_limit"
)

type rule struct {
	raw     string
	on      bool
	percent int // -1 for boolean rules
}

// Flags is an immutable set of parsed rules. The zero value and nil disable everything.
type Flags struct {
	rules map[string]rule
}

// Parse reads a FEATURE_FLAGS string. Malformed entries are skipped.
func Parse(raw string) *Flags {
	rules := make(map[string]rule)
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[name] = r
		}
	}
	return &Flags{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, on: true, percent: -1}, true
	case "off", "false", "0":
		return rule{raw: value, percent: -1}, true
	}
	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// Enabled reports whether name is on for userID. Percentage rules bucket users
// deterministically and are off for anonymous callers (userID 0) below 100%.
func (f *Flags) Enabled(name string, userID uint) bool {
	if f == nil {
		return false
	}
	r, ok := f.rules[normalize(name)]
	if !ok {
		return false
	}
	if r.percent < 0 {
		return r.on
	}
	switch {
	case r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// On reports whether a flag is on for everyone, for code paths without a user.
func (f *Flags) On(name string) bool {
	return f.Enabled(name, 0)
}

// Raw returns the configured values keyed by flag name.
func (f *Flags) Raw() map[string]string {
	out := make(map[string]string)
	if f == nil {
		return out
	}
	for k, r := range f.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for one user.
func (f *Flags) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	if f == nil {
		return out
	}
	for name := range f.rules {
		out[name] = f.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
