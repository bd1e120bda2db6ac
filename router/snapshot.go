package router

import (
	"fmt"
	"path/filepath"

	"github.com/deeppavlov/convai-router-bot/internal/fsstore"
	"github.com/deeppavlov/convai-router-bot/queue"
)

const stateVersion = 1

type sessionRecord struct {
	Session
	Transcript []TranscriptEntry `json:"transcript,omitempty"`
}

type stateFile struct {
	Version         int                 `json:"version"`
	Instances       []Instance          `json:"instances"`
	ActiveByProfile map[string]string   `json:"active_by_profile"`
	Sessions        []sessionRecord     `json:"sessions"`
	NextChatID      map[string]int64    `json:"next_chat_id"`
	AssignedSeq     map[string]int64    `json:"assigned_seq"`
	AssignTick      int64               `json:"assign_tick"`
	PairUsed        map[string][]string `json:"pair_used"`
}

func (r *Router) statePath() string {
	if r.stateDir == "" {
		return ""
	}
	return filepath.Join(r.stateDir, "router.json")
}

// Load restores instances, sessions and selection state from the last
// snapshot. Each restored instance reopens its own queue snapshot.
func (r *Router) Load() error {
	path := r.statePath()
	if path == "" {
		return nil
	}
	var state stateFile
	ok, err := fsstore.ReadJSON(path, &state)
	if err != nil {
		return fmt.Errorf("router: restore state: %w", err)
	}
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range state.Instances {
		inst := &Instance{
			ID:        rec.ID,
			Token:     rec.Token,
			ProfileID: rec.ProfileID,
			CreatedAt: rec.CreatedAt,
			queue:     queue.New(r.queueSnapshotPath(rec.Token)),
		}
		if err := inst.queue.Load(); err != nil {
			return fmt.Errorf("router: restore queue for %s: %w", rec.ProfileID, err)
		}
		r.instances[inst.ID] = inst
		r.byToken[inst.Token] = inst
	}
	for profileID, instID := range state.ActiveByProfile {
		if inst, ok := r.instances[instID]; ok {
			r.activeByProfile[profileID] = inst
		}
	}
	for _, rec := range state.Sessions {
		sess := rec.Session
		sess.transcript = rec.Transcript
		r.sessions[sess.Key] = &sess
		r.byChat[chatRef{sess.InstanceID, sess.ChatID}] = sess.Key
		r.sessionCount[sess.InstanceID]++
	}
	for instID, next := range state.NextChatID {
		r.nextChatID[instID] = next
	}
	for profileID, seq := range state.AssignedSeq {
		r.assignedSeq[profileID] = seq
	}
	r.assignTick = state.AssignTick
	for rotKey, ids := range state.PairUsed {
		used := make(map[string]bool, len(ids))
		for _, id := range ids {
			used[id] = true
		}
		r.pairUsed[rotKey] = used
	}
	return nil
}

func (r *Router) persistLocked() {
	path := r.statePath()
	if path == "" {
		return
	}
	state := stateFile{
		Version:         stateVersion,
		ActiveByProfile: make(map[string]string, len(r.activeByProfile)),
		NextChatID:      r.nextChatID,
		AssignedSeq:     r.assignedSeq,
		AssignTick:      r.assignTick,
		PairUsed:        make(map[string][]string, len(r.pairUsed)),
	}
	for _, inst := range r.instances {
		state.Instances = append(state.Instances, *inst)
	}
	for profileID, inst := range r.activeByProfile {
		state.ActiveByProfile[profileID] = inst.ID
	}
	for _, sess := range r.sessions {
		state.Sessions = append(state.Sessions, sessionRecord{Session: *sess, Transcript: sess.transcript})
	}
	for rotKey, used := range r.pairUsed {
		ids := make([]string, 0, len(used))
		for id := range used {
			ids = append(ids, id)
		}
		state.PairUsed[rotKey] = ids
	}
	// Snapshot failures are logged, not fatal: routing keeps working from
	// memory and the next mutation retries the write.
	if err := fsstore.WriteJSONAtomic(path, state); err != nil {
		r.log.Warn("state snapshot failed", "path", path, "err", err)
	}
}
