package models

// Table adalah satu meja yang sedang dibuka beserta riwayat permintaannya.
// Koneksi ke backend tidak disimpan di sini, lihat services.Registry.
type Table struct {
	ID         string  `json:"id"`
	Alias      string  `json:"alias"`
	History    []Entry `json:"history"`
	HasPending bool    `json:"has_pending"`
	Stale      bool    `json:"stale"`
}

// ComputePending -> scan penuh history
func ComputePending(history []Entry) bool {
	for _, e := range history {
		if e.Status == StatusPending {
			return true
		}
	}
	return false
}

func (t Table) PendingCount() int {
	count := 0
	for _, e := range t.History {
		if e.Status == StatusPending {
			count++
		}
	}
	return count
}

func (t Table) LastEntry() *Entry {
	if len(t.History) == 0 {
		return nil
	}
	last := t.History[len(t.History)-1].Clone()
	return &last
}

func (t Table) Clone() Table {
	history := make([]Entry, len(t.History))
	for i, e := range t.History {
		history[i] = e.Clone()
	}
	t.History = history
	return t
}
