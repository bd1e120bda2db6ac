// Package queue implements the per-instance update queue behind the polling
// protocol: FIFO order, non-destructive long-poll reads, cumulative
// acknowledgment, and re-delivery of anything not acknowledged.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInstanceBusy is returned when a second poller shows up while another
// poll against the same queue is still in flight. Interleaved pollers would
// break update ordering and reply correlation, so the late one is rejected.
var ErrInstanceBusy = errors.New("queue: another poller holds this instance")

// Update is one canonical inbound message awaiting a backend poll. UpdateID
// is monotonically increasing per queue, starting at 1.
type Update struct {
	UpdateID   int64     `json:"update_id"`
	ChatID     int64     `json:"chat_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

type Queue struct {
	mu      sync.Mutex
	pending []Update
	nextID  int64
	polling bool
	notify  chan struct{}

	snapshotPath string
}

// New creates a queue. A non-empty snapshotPath makes pending updates and the
// id counter survive restarts; Load restores them.
func New(snapshotPath string) *Queue {
	return &Queue{
		nextID:       1,
		notify:       make(chan struct{}, 1),
		snapshotPath: snapshotPath,
	}
}

// Enqueue appends the update, assigns its id and wakes a waiting poller.
func (q *Queue) Enqueue(u Update) (Update, error) {
	q.mu.Lock()
	u.UpdateID = q.nextID
	q.nextID++
	q.pending = append(q.pending, u)
	err := q.persistLocked()
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return u, err
}

// Poll returns up to maxCount unacknowledged updates oldest-first without
// removing them, blocking up to maxWait for at least one to arrive. An empty
// result after maxWait is a normal outcome, not an error. Only one poll may
// be in flight at a time; a concurrent one fails with ErrInstanceBusy.
func (q *Queue) Poll(ctx context.Context, maxWait time.Duration, maxCount int) ([]Update, error) {
	if maxCount <= 0 {
		maxCount = 100
	}

	q.mu.Lock()
	if q.polling {
		q.mu.Unlock()
		return nil, ErrInstanceBusy
	}
	q.polling = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.polling = false
		q.mu.Unlock()
	}()

	deadline := time.Now().Add(maxWait)
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			out := q.snapshotPendingLocked(maxCount)
			q.mu.Unlock()
			return out, nil
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-q.notify:
			timer.Stop()
		}
	}
}

// Acknowledge marks every update with id <= updateID as delivered and removes
// it. Anything newer stays queued for the next poll.
func (q *Queue) Acknowledge(updateID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	for _, u := range q.pending {
		if u.UpdateID > updateID {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(q.pending) {
		return nil
	}
	q.pending = kept
	return q.persistLocked()
}

// Pending reports how many unacknowledged updates are queued.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) snapshotPendingLocked(maxCount int) []Update {
	n := len(q.pending)
	if n > maxCount {
		n = maxCount
	}
	out := make([]Update, n)
	copy(out, q.pending[:n])
	return out
}
