package entities

import (
	"time"
	"unicode/utf8"
)

// MaxStatusMessage is the size of HarvestingStatus.Message.
const MaxStatusMessage = 2048

// HarvestingStatus summarizes one source run. Rows are append-only.
type HarvestingStatus struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SourceID     uint      `gorm:"not null;index" json:"source_id"`
	RunID        string    `gorm:"size:36;index" json:"run_id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	Created      int       `gorm:"not null" json:"created"`
	Updated      int       `gorm:"not null" json:"updated"`
	Deleted      int64     `gorm:"not null" json:"deleted"`
	Processed    int       `gorm:"not null" json:"processed"`
	TotalRecords int       `gorm:"not null" json:"total_records"`
	SessionID    int64     `gorm:"not null" json:"session_id"`
	Error        bool      `gorm:"not null" json:"error"`
	Message      string    `gorm:"size:2048" json:"message"`
}

// TableName returns the table name for GORM.
func (HarvestingStatus) TableName() string {
	return "harvesting_statuses"
}

// TruncateMessage cuts msg to MaxStatusMessage characters.
func TruncateMessage(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxStatusMessage {
		return msg
	}
	n := 0
	for i := range msg {
		if n == MaxStatusMessage {
			return msg[:i]
		}
		n++
	}
	return msg
}
