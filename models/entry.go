package models

type ActionKind string

const (
	ActionService ActionKind = "service"
	ActionBill    ActionKind = "bill"
	ActionCancel  ActionKind = "cancel"
)

func (a ActionKind) Valid() bool {
	switch a {
	case ActionService, ActionBill, ActionCancel:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Terminal -> status akhir, tidak bisa berubah lagi
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Entry adalah satu permintaan dari meja (panggil pelayan, minta bill, batal)
type Entry struct {
	ID     string     `json:"id"`
	Action ActionKind `json:"action"`
	Status Status     `json:"status"`
	Reason *string    `json:"reason,omitempty"`
}

// StatusUpdate membawa transisi status untuk Entry dengan ID yang sama
type StatusUpdate struct {
	ID     string  `json:"id"`
	Status Status  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

func (e Entry) Clone() Entry {
	if e.Reason != nil {
		reason := *e.Reason
		e.Reason = &reason
	}
	return e
}

// ActionLabel -> label yang ditampilkan di kartu meja dan daftar aksi
func ActionLabel(a ActionKind) string {
	switch a {
	case ActionService:
		return "Servicio del restaurante"
	case ActionBill:
		return "Cuenta"
	case ActionCancel:
		return "Cancelado"
	}
	return ""
}

func StatusLabel(s Status) string {
	switch s {
	case StatusConfirmed:
		return "realizado"
	case StatusCancelled:
		return "cancelado"
	}
	return string(s)
}
