package entities

import "time"

// Source is a harvest source. Deleting it removes its files and statuses.
type Source struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Reset     bool      `gorm:"not null" json:"reset"`  // tombstone records absent from the newest run
	Active    bool      `gorm:"not null" json:"active"` // included in Collect
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Files    []SourceRecordsFile `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"-"`
	Statuses []HarvestingStatus  `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (Source) TableName() string {
	return "sources"
}
