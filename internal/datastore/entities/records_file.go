package entities

// Defaults applied to SourceRecordsFile when a field is left empty.
const (
	DefaultFileFormat   = "iso2709"
	DefaultFileSchema   = "rusmarc"
	DefaultFileEncoding = "utf-8"
)

// SourceRecordsFile points at one dump file of a source.
// FileURI is a local path or an ftp:// / sftp:// URL.
type SourceRecordsFile struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SourceID uint   `gorm:"not null;index" json:"source_id"`
	FileURI  string `gorm:"size:2048;not null" json:"file_uri"`
	Format   string `gorm:"size:32;not null;default:iso2709" json:"format"`
	Schema   string `gorm:"size:32;not null;default:rusmarc" json:"schema"`
	Encoding string `gorm:"size:32;not null;default:utf-8" json:"encoding"`
}

// TableName returns the table name for GORM.
func (SourceRecordsFile) TableName() string {
	return "source_records_files"
}

// ApplyDefaults fills empty format, schema and encoding.
func (f *SourceRecordsFile) ApplyDefaults() {
	if f.Format == "" {
		f.Format = DefaultFileFormat
	}
	if f.Schema == "" {
		f.Schema = DefaultFileSchema
	}
	if f.Encoding == "" {
		f.Encoding = DefaultFileEncoding
	}
}
