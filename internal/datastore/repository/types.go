package repository

import (
	"time"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// Candidate is a record produced by a harvest, ready to be reconciled.
type Candidate struct {
	ID         string
	OriginalID string
	Hash       string
	Source     string
	Schema     string
	SessionID  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Content    []byte // canonical dump
}

// Record returns the records row for a new candidate.
func (c *Candidate) Record() entities.Record {
	return entities.Record{
		ID:         c.ID,
		OriginalID: c.OriginalID,
		Hash:       c.Hash,
		Source:     c.Source,
		Schema:     c.Schema,
		SessionID:  c.SessionID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// RecordContent returns the record_contents row for the candidate.
func (c *Candidate) RecordContent() entities.RecordContent {
	return entities.RecordContent{
		RecordID: c.ID,
		Content:  entities.GzipBytes(c.Content),
	}
}
