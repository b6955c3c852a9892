package core

import (
	"sort"
	"strings"
	"time"
)

// NowFunc is the clock used by services. Mockable.
var NowFunc = func() time.Time { return time.Now().UTC() }

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanCode trims and upper-cases codes such as course or program codes.
func CleanCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// UniqueStrings returns the sorted, deduplicated, non-empty values of `ss`.
func UniqueStrings(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ContainsString reports whether `s` is in `ss`.
func ContainsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func BoolPtr(b bool) *bool { return &b }

func TimePtr(t time.Time) *time.Time { return &t }
