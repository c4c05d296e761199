package core

import (
	"sort"
	"strings"
)

// Filter is a set of optional predicates; zero fields are ignored and the
// rest are AND-combined.
type Filter struct {
	Year          int    // calendar year of Date
	Month         int    // 1-12
	Customer      string // exact match on the trimmed customer name
	Search        string // case-insensitive substring of customer or plot reference
	Payment       PaymentStatus
	Status        Status
	ExcludeStatus Status // e.g. StatusCompleted for "open jobs"
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// Match reports whether j satisfies every predicate of f. Jobs with an empty
// date never satisfy a date predicate.
func (f Filter) Match(j Job) bool {
	if f.Year != 0 || f.Month != 0 {
		if j.Date.IsEmpty() {
			return false
		}
		if f.Year != 0 && j.Date.Year() != f.Year {
			return false
		}
		if f.Month != 0 && j.Date.Month() != f.Month {
			return false
		}
	}
	if c := strings.TrimSpace(f.Customer); c != "" && strings.TrimSpace(j.Customer) != c {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(j.Customer), q) &&
			!strings.Contains(strings.ToLower(j.PlotRef), q) {
			return false
		}
	}
	if f.Payment != PaymentUnset && j.Payment != f.Payment {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && j.Status == f.ExcludeStatus {
		return false
	}
	return true
}

// FilterJobs returns the jobs matching f in their original order. The input
// slice is never modified; the result is always a fresh slice.
func FilterJobs(jobs []Job, f Filter) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

// Years returns the distinct years present in jobs, newest first.
func Years(jobs []Job) []int {
	seen := map[int]bool{}
	var out []int
	for _, j := range jobs {
		if y := j.Date.Year(); y != 0 && !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Customers returns the distinct non-empty customer names sorted
// case-insensitively.
func Customers(jobs []Job) []string {
	seen := map[string]bool{}
	var out []string
	for _, j := range jobs {
		c := strings.TrimSpace(j.Customer)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return strings.ToLower(out[a]) < strings.ToLower(out[b])
	})
	return out
}
