package inmemdb

import (
	"sort"
	"strings"
	"time"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

type comparator[T any] func(a, b T) int

// orderBy sorts items following ordering; unknown fields are ignored.
func orderBy[T any](items []T, ordering []core.DBOrdering, fields map[string]comparator[T], fallback ...core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = fallback
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpString(a, b string) int { return strings.Compare(a, b) }

func cmpFold(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}

func matches(search string, values ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}
