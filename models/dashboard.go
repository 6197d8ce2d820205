package models

// TableView adalah Table yang siap ditampilkan di dashboard staff
type TableView struct {
	Table
	PendingCount int    `json:"pending_count"`
	LastEntry    *Entry `json:"last_entry,omitempty"`
	LastLabel    string `json:"last_label,omitempty"`
	JoinURL      string `json:"join_url"`
}

// Dashboard adalah satu-satunya state yang dikonsumsi oleh layer tampilan.
// Tables sudah diurutkan (yang pending di depan), Queue terbaru di depan.
type Dashboard struct {
	Tables []TableView        `json:"tables"`
	Queue  []GlobalQueueEntry `json:"queue"`
}
