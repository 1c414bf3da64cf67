package domain

import "time"

// Tag is a global label shared by every note that references its name.
// Names are unique and case-sensitive; tags are never deleted.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagNames returns the names of tags in order.
func TagNames(tags []*Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

// UniqueTagNames returns names with duplicates removed, keeping first occurrence order.
func UniqueTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
