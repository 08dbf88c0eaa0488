package mqtt

import (
	"time"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/harvest"
)

// StatusDTO is the payload published for a finished source run.
//
// Field names are part of the published contract; add fields rather than
// renaming them.
type StatusDTO struct {
	Instance     string `json:"instance,omitempty"`
	Source       string `json:"source"`
	SourceName   string `json:"source_name"`
	RunID        string `json:"run_id"`
	SessionID    int64  `json:"session_id"`
	FinishedAt   string `json:"finished_at"` // RFC3339
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Deleted      int64  `json:"deleted"`
	Processed    int    `json:"processed"`
	TotalRecords int    `json:"total_records"`
	Percent      int    `json:"percent"`
	Error        bool   `json:"error"`
	Message      string `json:"message,omitempty"`
}

// NewStatusDTO creates a StatusDTO for status of source.
func NewStatusDTO(instance string, source *entities.Source, status *entities.HarvestingStatus) *StatusDTO {
	return &StatusDTO{
		Instance:     instance,
		Source:       source.Code,
		SourceName:   source.Name,
		RunID:        status.RunID,
		SessionID:    status.SessionID,
		FinishedAt:   status.CreatedAt.UTC().Format(time.RFC3339),
		Created:      status.Created,
		Updated:      status.Updated,
		Deleted:      status.Deleted,
		Processed:    status.Processed,
		TotalRecords: status.TotalRecords,
		Percent:      harvest.Percent(status.Processed, status.TotalRecords),
		Error:        status.Error,
		Message:      status.Message,
	}
}
