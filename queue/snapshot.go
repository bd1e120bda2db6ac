package queue

import "github.com/deeppavlov/convai-router-bot/internal/fsstore"

const snapshotVersion = 1

type snapshotFile struct {
	Version int      `json:"version"`
	NextID  int64    `json:"next_id"`
	Pending []Update `json:"pending"`
}

// Load restores pending updates and the id counter from the snapshot file.
// Missing snapshots are not an error; the queue starts empty.
func (q *Queue) Load() error {
	if q.snapshotPath == "" {
		return nil
	}
	var snap snapshotFile
	ok, err := fsstore.ReadJSON(q.snapshotPath, &snap)
	if err != nil || !ok {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = snap.Pending
	if snap.NextID > 0 {
		q.nextID = snap.NextID
	}
	return nil
}

func (q *Queue) persistLocked() error {
	if q.snapshotPath == "" {
		return nil
	}
	return fsstore.WriteJSONAtomic(q.snapshotPath, snapshotFile{
		Version: snapshotVersion,
		NextID:  q.nextID,
		Pending: q.pending,
	})
}
