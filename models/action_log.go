package models

import "time"

const (
	LogTableOpened    = "table_opened"
	LogTableClosed    = "table_closed"
	LogEntryReceived  = "entry_received"
	LogEntryConfirmed = "entry_confirmed"
	LogEntryCancelled = "entry_cancelled"
	LogCommandSent    = "command_sent"
)

// ActionLog adalah jurnal lokal untuk diagnosa, bukan sumber kebenaran
type ActionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index" json:"session_id"`
	Kind      string    `gorm:"type:varchar(30);not null;index" json:"kind"`
	TableID   string    `gorm:"type:varchar(100);index" json:"table_id"`
	Alias     string    `gorm:"type:varchar(100)" json:"alias"`
	EntryID   string    `gorm:"type:varchar(100)" json:"entry_id,omitempty"`
	Action    string    `gorm:"type:varchar(20)" json:"action,omitempty"`
	Status    string    `gorm:"type:varchar(20)" json:"status,omitempty"`
	Reason    *string   `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ActionLog) TableName() string { return "action_logs" }
