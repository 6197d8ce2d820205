package services

import (
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
)

// GlobalQueue adalah daftar aksi lintas meja, unik per entry id.
// Urutan internal = urutan terima message, tampilan dibalik.
type GlobalQueue struct {
	entries []models.GlobalQueueEntry
	index   map[string]int
}

func NewGlobalQueue() *GlobalQueue {
	return &GlobalQueue{index: make(map[string]int)}
}

// Project menerapkan event ke queue. History tidak menyentuh queue.
func (q *GlobalQueue) Project(alias string, ev kds.Event) bool {
	switch ev.Type {
	case kds.EventMessage:
		return q.Insert(alias, ev.Entry)
	case kds.EventConfirmation, kds.EventCancellation:
		return q.Apply(ev.Update)
	}
	return false
}

// Insert hanya jika id belum ada
func (q *GlobalQueue) Insert(alias string, e models.Entry) bool {
	if _, ok := q.index[e.ID]; ok {
		return false
	}
	q.index[e.ID] = len(q.entries)
	q.entries = append(q.entries, models.NewGlobalQueueEntry(alias, e))
	return true
}

// Apply update status in place. Id tidak dikenal -> no-op.
func (q *GlobalQueue) Apply(u models.StatusUpdate) bool {
	i, ok := q.index[u.ID]
	if !ok {
		return false
	}
	current := q.entries[i]
	if current.Status == u.Status || current.Status.Terminal() {
		return false
	}
	current.Status = u.Status
	current.StatusLabel = models.StatusLabel(u.Status)
	current.Reason = cloneReason(u.Reason)
	q.entries[i] = current
	return true
}

// PurgeAlias menghapus semua entry milik meja yang ditutup
func (q *GlobalQueue) PurgeAlias(alias string) int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.Alias == alias {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	// nolkan sisa backing array supaya tidak menahan entry lama
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = models.GlobalQueueEntry{}
	}
	q.entries = kept

	q.index = make(map[string]int, len(q.entries))
	for i, e := range q.entries {
		q.index[e.ID] = i
	}
	return removed
}

// lookup -> salinan entry, dipakai untuk pemeriksaan
func (q *GlobalQueue) lookup(id string) (models.GlobalQueueEntry, bool) {
	i, ok := q.index[id]
	if !ok {
		return models.GlobalQueueEntry{}, false
	}
	return q.entries[i].Clone(), true
}

func (q *GlobalQueue) Len() int {
	return len(q.entries)
}

// Display -> terbaru di depan
func (q *GlobalQueue) Display() []models.GlobalQueueEntry {
	out := make([]models.GlobalQueueEntry, 0, len(q.entries))
	for i := len(q.entries) - 1; i >= 0; i-- {
		out = append(out, q.entries[i].Clone())
	}
	return out
}

func (q *GlobalQueue) Reset() {
	q.entries = nil
	q.index = make(map[string]int)
}
