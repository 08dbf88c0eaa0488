package entities

import "time"

// MaxOriginalIDLength is the column width of Record.OriginalID in characters.
const MaxOriginalIDLength = 255

// Record is the stored identity and change-detection state of one
// bibliographic record. SessionID is the most recent run that observed it.
type Record struct {
	ID         string    `gorm:"type:char(32);primaryKey" json:"id"`
	OriginalID string    `gorm:"size:255;not null;default:''" json:"original_id"`
	Hash       string    `gorm:"type:char(32);not null" json:"hash"`
	Source     string    `gorm:"size:32;not null;index" json:"source"` // source code
	Schema     string    `gorm:"size:32;not null" json:"schema"`
	SessionID  int64     `gorm:"not null;index" json:"session_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false;index" json:"updated_at"`
	Deleted    bool      `gorm:"not null;index" json:"deleted"`
}

// TableName returns the table name for GORM.
func (Record) TableName() string {
	return "records"
}

// RecordContent holds the canonical dump of a record, gzip-compressed at rest.
type RecordContent struct {
	RecordID string    `gorm:"type:char(32);primaryKey" json:"record_id"`
	Content  GzipBytes `gorm:"not null" json:"-"`

	Record *Record `gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (RecordContent) TableName() string {
	return "record_contents"
}
