// Package catalog holds the imported profile snapshot and answers the
// router's eligibility queries. A snapshot is replaced wholesale and never
// edited in place, so readers always see a consistent catalog.
package catalog

import (
	"fmt"
	"sync/atomic"
)

type snapshot struct {
	profiles []Profile
	byID     map[string]int
	groups   map[string][]int
}

type Catalog struct {
	current atomic.Pointer[snapshot]
}

func New() *Catalog {
	c := &Catalog{}
	c.current.Store(&snapshot{byID: map[string]int{}, groups: map[string][]int{}})
	return c
}

// Replace swaps in a full new snapshot. Profile ids must be unique; the whole
// replacement is rejected otherwise.
func (c *Catalog) Replace(profiles []Profile) error {
	snap := &snapshot{
		profiles: make([]Profile, len(profiles)),
		byID:     make(map[string]int, len(profiles)),
		groups:   map[string][]int{},
	}
	copy(snap.profiles, profiles)
	for i, p := range snap.profiles {
		if p.ID == "" {
			return fmt.Errorf("catalog: profile %d has empty id", i)
		}
		if _, exists := snap.byID[p.ID]; exists {
			return fmt.Errorf("catalog: duplicate profile id %q", p.ID)
		}
		snap.byID[p.ID] = i
		if p.LinkedGroupID != "" {
			snap.groups[p.LinkedGroupID] = append(snap.groups[p.LinkedGroupID], i)
		}
	}
	c.current.Store(snap)
	return nil
}

func (c *Catalog) Len() int {
	return len(c.current.Load().profiles)
}

// ListEligible returns profiles whose tag set intersects tagFilter, in import
// order. An empty filter means no restriction and returns every profile.
func (c *Catalog) ListEligible(tagFilter []string) []Profile {
	snap := c.current.Load()
	if len(tagFilter) == 0 {
		out := make([]Profile, len(snap.profiles))
		copy(out, snap.profiles)
		return out
	}
	var out []Profile
	for _, p := range snap.profiles {
		if p.HasAnyTag(tagFilter) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) GetByID(id string) (Profile, bool) {
	snap := c.current.Load()
	i, ok := snap.byID[id]
	if !ok {
		return Profile{}, false
	}
	return snap.profiles[i], true
}

// LinkedGroup returns the members of the profile's linked group in import
// order, or just the profile itself if it is not linked.
func (c *Catalog) LinkedGroup(profileID string) []Profile {
	snap := c.current.Load()
	i, ok := snap.byID[profileID]
	if !ok {
		return nil
	}
	p := snap.profiles[i]
	if p.LinkedGroupID == "" {
		return []Profile{p}
	}
	members := snap.groups[p.LinkedGroupID]
	out := make([]Profile, 0, len(members))
	for _, idx := range members {
		out = append(out, snap.profiles[idx])
	}
	return out
}
