// Package router holds the core state machine: it binds end-user
// conversations to profile instances, feeds their update queues, and
// forwards backend replies to the messenger adapters.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deeppavlov/convai-router-bot/catalog"
	"github.com/deeppavlov/convai-router-bot/messenger"
	"github.com/deeppavlov/convai-router-bot/queue"
	"github.com/deeppavlov/convai-router-bot/taggate"
)

const startCommand = "/start"

// Archiver persists an expired session's transcript.
type Archiver interface {
	ArchiveSession(ctx context.Context, s ArchivedSession) error
}

// ArchivedSession is the flattened record handed to the archiver when a
// session expires.
type ArchivedSession struct {
	Platform   string
	UserID     string
	ProfileID  string
	InstanceID string
	StartedAt  time.Time
	EndedAt    time.Time
	Transcript []TranscriptEntry
}

// Config carries the router's tunables.
type Config struct {
	// StateDir is where session and queue snapshots live. Empty disables
	// durability.
	StateDir string
	// SessionCap limits concurrent sessions per instance. Zero means 1.
	SessionCap int
	// Inactivity is the window after which an idle session expires.
	// Zero means 1 hour.
	Inactivity time.Duration
}

type chatRef struct {
	instanceID string
	chatID     int64
}

type Router struct {
	catalog  *catalog.Catalog
	gate     taggate.Gate
	adapters map[string]messenger.Messenger
	archiver Archiver
	log      *slog.Logger

	stateDir   string
	sessionCap int
	inactivity time.Duration

	mu              sync.Mutex
	instances       map[string]*Instance // by instance id
	byToken         map[string]*Instance
	activeByProfile map[string]*Instance
	sessions        map[SessionKey]*Session
	byChat          map[chatRef]SessionKey
	sessionCount    map[string]int             // instance id -> bound sessions
	assignedSeq     map[string]int64           // profile id -> last assignment tick
	assignTick      int64
	nextChatID      map[string]int64           // instance id -> next chat id
	pairUsed        map[string]map[string]bool // pair key + group -> used profiles
}

// New builds a Router over the given catalog, gate and adapters. adapters
// maps platform name to its messenger. archiver may be nil.
func New(cat *catalog.Catalog, gate taggate.Gate, adapters map[string]messenger.Messenger, archiver Archiver, log *slog.Logger, cfg Config) *Router {
	if cfg.SessionCap <= 0 {
		cfg.SessionCap = 1
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		catalog:         cat,
		gate:            gate,
		adapters:        adapters,
		archiver:        archiver,
		log:             log,
		stateDir:        cfg.StateDir,
		sessionCap:      cfg.SessionCap,
		inactivity:      cfg.Inactivity,
		instances:       make(map[string]*Instance),
		byToken:         make(map[string]*Instance),
		activeByProfile: make(map[string]*Instance),
		sessions:        make(map[SessionKey]*Session),
		byChat:          make(map[chatRef]SessionKey),
		sessionCount:    make(map[string]int),
		assignedSeq:     make(map[string]int64),
		nextChatID:      make(map[string]int64),
		pairUsed:        make(map[string]map[string]bool),
	}
}

// HandleInbound routes one canonical inbound message. An existing session
// keeps its binding; otherwise a profile instance is selected, a session is
// created and a conversation prologue is enqueued before the message itself.
func (r *Router) HandleInbound(ctx context.Context, msg messenger.Inbound) error {
	key := SessionKey{Platform: msg.Platform, UserID: msg.UserID}
	now := msg.ReceivedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	r.mu.Lock()
	sess, bound := r.sessions[key]
	var inst *Instance
	var prologue string
	if bound {
		inst = r.instances[sess.InstanceID]
		sess.LastActivityAt = now
	} else {
		profile, err := r.selectProfileLocked(msg.PairKey)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		inst = r.activeByProfile[profile.ID]
		r.nextChatID[inst.ID]++
		sess = &Session{
			Key:            key,
			InstanceID:     inst.ID,
			ProfileID:      profile.ID,
			ChatID:         r.nextChatID[inst.ID],
			Username:       msg.Username,
			BoundAt:        now,
			LastActivityAt: now,
			RotationCursor: msg.PairKey,
		}
		r.sessions[key] = sess
		r.byChat[chatRef{inst.ID, sess.ChatID}] = key
		r.sessionCount[inst.ID]++
		r.assignTick++
		r.assignedSeq[profile.ID] = r.assignTick
		prologue = startCommand + "\n" + profile.Description()
		r.persistLocked()
		r.log.Info("session bound",
			"platform", key.Platform, "user", key.UserID,
			"profile", profile.ID, "instance", inst.ID, "chat_id", sess.ChatID)
	}
	sess.transcript = append(sess.transcript, TranscriptEntry{Sender: senderUser, Text: msg.Text, SentAt: now})
	chatID := sess.ChatID
	r.mu.Unlock()

	if prologue != "" {
		if _, err := inst.Queue().Enqueue(queue.Update{ChatID: chatID, SenderName: msg.Username, Text: prologue, ReceivedAt: now}); err != nil {
			return fmt.Errorf("router: enqueue prologue: %w", err)
		}
	}
	if _, err := inst.Queue().Enqueue(queue.Update{ChatID: chatID, SenderName: msg.Username, Text: msg.Text, ReceivedAt: now}); err != nil {
		return fmt.Errorf("router: enqueue update: %w", err)
	}
	return nil
}

// selectProfileLocked applies the selection policy: least-recently-assigned
// round-robin over eligible profiles with free instance capacity, catalog
// order breaking ties. A pair hint redirects a linked-group choice to the
// group's next unused member for that key.
func (r *Router) selectProfileLocked(pairKey string) (catalog.Profile, error) {
	eligible := r.catalog.ListEligible(r.gate.List())

	var chosen catalog.Profile
	found := false
	for _, p := range eligible {
		if !r.assignableLocked(p.ID) {
			continue
		}
		if !found || r.assignedSeq[p.ID] < r.assignedSeq[chosen.ID] {
			chosen = p
			found = true
		}
	}
	if !found {
		return catalog.Profile{}, ErrNoEligibleProfile
	}

	if pairKey != "" && chosen.LinkedGroupID != "" {
		group := r.catalog.LinkedGroup(chosen.ID)
		rotKey := pairKey + "/" + chosen.LinkedGroupID
		used := r.pairUsed[rotKey]
		if used == nil {
			used = make(map[string]bool)
			r.pairUsed[rotKey] = used
		}
		if len(used) >= len(group) {
			// Every member served this pair key once; start a new round.
			used = make(map[string]bool)
			r.pairUsed[rotKey] = used
		}
		for _, member := range group {
			if used[member.ID] || !r.assignableLocked(member.ID) {
				continue
			}
			used[member.ID] = true
			return member, nil
		}
		return catalog.Profile{}, ErrNoEligibleProfile
	}
	return chosen, nil
}

func (r *Router) assignableLocked(profileID string) bool {
	inst, ok := r.activeByProfile[profileID]
	return ok && r.sessionCount[inst.ID] < r.sessionCap
}

// DispatchReply forwards one backend reply to the end-user bound to the
// given chat. The reply is consumed even when delivery fails; the backend
// owns any retry.
func (r *Router) DispatchReply(ctx context.Context, instanceToken string, chatID int64, text string) error {
	now := time.Now().UTC()

	r.mu.Lock()
	inst, ok := r.byToken[instanceToken]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownInstance
	}
	key, ok := r.byChat[chatRef{inst.ID, chatID}]
	if !ok {
		r.mu.Unlock()
		r.log.Warn("reply for unknown chat dropped", "instance", inst.ID, "chat_id", chatID)
		return ErrUnknownTarget
	}
	sess := r.sessions[key]
	sess.LastActivityAt = now
	sess.transcript = append(sess.transcript, TranscriptEntry{Sender: senderBot, Text: text, SentAt: now})
	adapter, ok := r.adapters[key.Platform]
	userID := key.UserID
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no adapter for platform %q", ErrDeliveryFailed, key.Platform)
	}
	if err := adapter.SendText(ctx, userID, text); err != nil {
		r.log.Warn("reply delivery failed", "platform", key.Platform, "user", userID, "err", err)
		return err
	}
	return nil
}

// NotifyUser sends a service notice straight to an end-user, outside any
// session. Used for "nothing available" notices after a failed binding.
func (r *Router) NotifyUser(ctx context.Context, platform, userID, text string) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return
	}
	if err := adapter.SendText(ctx, userID, text); err != nil {
		r.log.Warn("service notice delivery failed", "platform", platform, "user", userID, "err", err)
	}
}

// PollUpdates long-polls the queue behind an instance token.
func (r *Router) PollUpdates(ctx context.Context, instanceToken string, maxWait time.Duration, maxCount int) ([]queue.Update, error) {
	inst, err := r.InstanceByToken(instanceToken)
	if err != nil {
		return nil, err
	}
	return inst.Queue().Poll(ctx, maxWait, maxCount)
}

// AcknowledgeUpdates marks every update with id <= updateID as delivered.
func (r *Router) AcknowledgeUpdates(instanceToken string, updateID int64) error {
	inst, err := r.InstanceByToken(instanceToken)
	if err != nil {
		return err
	}
	return inst.Queue().Acknowledge(updateID)
}

// ExpireSessions removes sessions idle past the inactivity window and hands
// their transcripts to the archiver. It returns the number expired.
func (r *Router) ExpireSessions(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for key, sess := range r.sessions {
		if now.Sub(sess.LastActivityAt) < r.inactivity {
			continue
		}
		delete(r.sessions, key)
		delete(r.byChat, chatRef{sess.InstanceID, sess.ChatID})
		r.sessionCount[sess.InstanceID]--
		expired = append(expired, sess)
	}
	if len(expired) > 0 {
		r.persistLocked()
	}
	r.mu.Unlock()

	for _, sess := range expired {
		r.log.Info("session expired",
			"platform", sess.Key.Platform, "user", sess.Key.UserID,
			"profile", sess.ProfileID, "idle_since", sess.LastActivityAt)
		if r.archiver == nil {
			continue
		}
		rec := ArchivedSession{
			Platform:   sess.Key.Platform,
			UserID:     sess.Key.UserID,
			ProfileID:  sess.ProfileID,
			InstanceID: sess.InstanceID,
			StartedAt:  sess.BoundAt,
			EndedAt:    sess.LastActivityAt,
			Transcript: sess.transcript,
		}
		if err := r.archiver.ArchiveSession(ctx, rec); err != nil {
			r.log.Warn("archive failed", "user", sess.Key.UserID, "err", err)
		}
	}
	return len(expired)
}

// RunSweeper expires idle sessions on a fixed interval until ctx is done.
func (r *Router) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.ExpireSessions(ctx, now.UTC())
		}
	}
}

// SessionFor reports the session bound to an end-user, if any.
func (r *Router) SessionFor(platform, userID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[SessionKey{Platform: platform, UserID: userID}]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}
