// Package taggate holds the process-wide set of active tags that gates which
// profiles may receive new session bindings. The gate is injected into the
// router rather than accessed as a global so tests can substitute
// deterministic tag sets.
package taggate

import (
	"sort"
	"sync"

	"github.com/deeppavlov/convai-router-bot/internal/fsstore"
)

type Gate interface {
	Add(tag string)
	Remove(tag string)
	List() []string
}

// SetGate is a synchronized tag set with an optional JSON snapshot so the
// active set survives restarts. An empty snapshot path disables persistence.
type SetGate struct {
	mu           sync.RWMutex
	tags         map[string]struct{}
	snapshotPath string
}

type gateSnapshot struct {
	Tags []string `json:"tags"`
}

func NewSetGate(snapshotPath string) (*SetGate, error) {
	g := &SetGate{
		tags:         map[string]struct{}{},
		snapshotPath: snapshotPath,
	}
	if snapshotPath != "" {
		var snap gateSnapshot
		if _, err := fsstore.ReadJSON(snapshotPath, &snap); err != nil {
			return nil, err
		}
		for _, t := range snap.Tags {
			g.tags[t] = struct{}{}
		}
	}
	return g, nil
}

func (g *SetGate) Add(tag string) {
	if tag == "" {
		return
	}
	g.mu.Lock()
	g.tags[tag] = struct{}{}
	g.persistLocked()
	g.mu.Unlock()
}

func (g *SetGate) Remove(tag string) {
	g.mu.Lock()
	delete(g.tags, tag)
	g.persistLocked()
	g.mu.Unlock()
}

func (g *SetGate) List() []string {
	g.mu.RLock()
	out := make([]string, 0, len(g.tags))
	for t := range g.tags {
		out = append(out, t)
	}
	g.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (g *SetGate) persistLocked() {
	if g.snapshotPath == "" {
		return
	}
	tags := make([]string, 0, len(g.tags))
	for t := range g.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	// Snapshot failures must not break tag mutation; the gate only needs
	// best-effort durability.
	_ = fsstore.WriteJSONAtomic(g.snapshotPath, gateSnapshot{Tags: tags})
}
