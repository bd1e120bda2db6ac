package catalog

import "strings"

// Profile is an imported chatbot persona. Profiles are immutable once
// imported; a re-import replaces the whole catalog snapshot.
type Profile struct {
	ID            string   `json:"id" yaml:"id"`
	Persona       []string `json:"persona" yaml:"persona"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Topics        []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	LinkedGroupID string   `json:"linked_group_id,omitempty" yaml:"linked_group_id,omitempty"`
}

// Description renders the persona the way backends receive it: one sentence
// per line, in import order.
func (p Profile) Description() string {
	return strings.Join(p.Persona, "\n")
}

// HasAnyTag reports whether the profile's tag set intersects tags.
func (p Profile) HasAnyTag(tags []string) bool {
	if len(p.Tags) == 0 || len(tags) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	for _, t := range p.Tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
