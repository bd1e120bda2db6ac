package router

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deeppavlov/convai-router-bot/queue"
)

// Instance is one running backend process serving a profile, addressed by
// its polling token. Each instance owns its own update queue.
type Instance struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ProfileID string    `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`

	queue *queue.Queue
}

// Queue returns the instance's update queue.
func (i *Instance) Queue() *queue.Queue { return i.queue }

// RegisterInstance adds a backend instance for a profile and makes it the
// profile's assignable instance. An older instance for the same profile keeps
// its queue and its bound sessions, but receives no new bindings (handover).
func (r *Router) RegisterInstance(profileID, token string) (*Instance, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("router: empty instance token")
	}
	if _, ok := r.catalog.GetByID(profileID); !ok {
		return nil, fmt.Errorf("router: unknown profile %q", profileID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[token]; ok {
		return nil, fmt.Errorf("router: instance token already registered")
	}

	inst := &Instance{
		ID:        uuid.NewString(),
		Token:     token,
		ProfileID: profileID,
		CreatedAt: time.Now().UTC(),
		queue:     queue.New(r.queueSnapshotPath(token)),
	}
	if err := inst.queue.Load(); err != nil {
		return nil, fmt.Errorf("router: restore queue for %s: %w", profileID, err)
	}
	r.instances[inst.ID] = inst
	r.byToken[token] = inst
	r.activeByProfile[profileID] = inst
	r.persistLocked()
	return inst, nil
}

// InstanceByToken resolves the instance behind a polling token.
func (r *Router) InstanceByToken(token string) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byToken[token]
	if !ok {
		return nil, ErrUnknownInstance
	}
	return inst, nil
}

func (r *Router) queueSnapshotPath(token string) string {
	if r.stateDir == "" {
		return ""
	}
	return filepath.Join(r.stateDir, "queues", token+".json")
}
