package index

import (
	"slices"
	"strings"
)

// StringSet is an insertion-ordered set with case-sensitive membership:
// "Art" and "art" are distinct members.
type StringSet struct {
	members map[string]struct{}
	order   []string
}

func NewStringSet(values ...string) *StringSet {
	s := &StringSet{members: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s *StringSet) Add(v string) bool {
	if _, exists := s.members[v]; exists {
		return false
	}
	s.members[v] = struct{}{}
	s.order = append(s.order, v)
	return true
}

func (s *StringSet) Contains(v string) bool {
	_, exists := s.members[v]
	return exists
}

func (s *StringSet) Size() int {
	return len(s.order)
}

// ToSlice returns members in first-seen order.
func (s *StringSet) ToSlice() []string {
	return slices.Clone(s.order)
}

// Union merges the given lists, keeping the first occurrence of each exact value.
func Union(lists ...[]string) []string {
	result := NewStringSet()
	for _, l := range lists {
		for _, v := range l {
			result.Add(v)
		}
	}
	return result.ToSlice()
}

// SortFold sorts values case-insensitively in place. Values equal under
// folding keep their relative order.
func SortFold(values []string) {
	slices.SortStableFunc(values, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
}

// SortedFold returns a sorted copy and never returns nil.
func SortedFold(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	SortFold(out)
	return out
}

// ContainsFold reports whether any value contains substr, ignoring case.
func ContainsFold(values []string, substr string) bool {
	needle := strings.ToLower(substr)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// EqualFoldAny reports whether any value equals target, ignoring case.
func EqualFoldAny(values []string, target string) bool {
	needle := strings.ToLower(target)
	for _, v := range values {
		if strings.ToLower(v) == needle {
			return true
		}
	}
	return false
}
