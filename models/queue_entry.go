package models

// GlobalQueueEntry adalah proyeksi Entry ke daftar aksi lintas meja.
// Alias disalin saat entry pertama kali diterima.
type GlobalQueueEntry struct {
	ID     string     `json:"id"`
	Alias  string     `json:"alias"`
	Action ActionKind `json:"action"`
	Status Status     `json:"status"`
	Reason *string    `json:"reason,omitempty"`

	Label       string `json:"label"`
	StatusLabel string `json:"status_label"`
}

func NewGlobalQueueEntry(alias string, e Entry) GlobalQueueEntry {
	e = e.Clone()
	return GlobalQueueEntry{
		ID:     e.ID,
		Alias:  alias,
		Action: e.Action,
		Status: e.Status,
		Reason: e.Reason,

		Label:       ActionLabel(e.Action),
		StatusLabel: StatusLabel(e.Status),
	}
}

func (q GlobalQueueEntry) Clone() GlobalQueueEntry {
	if q.Reason != nil {
		reason := *q.Reason
		q.Reason = &reason
	}
	return q
}
