package ingest

import (
	"time"

	"kosh/internal/smsparser"
)

// RawMessage is a bank SMS as stored in the inbox collection.
type RawMessage struct {
	ID        string `json:"id" bson:"_id,omitempty"`
	Sender    string `json:"sender" bson:"sender"`
	Body      string `json:"body" bson:"body"`
	Timestamp int64  `json:"timestamp" bson:"timestamp"`
	Source    string `json:"source" bson:"source"`
}

// Draft is a parsed transaction candidate awaiting user review.
type Draft struct {
	Parsed   smsparser.ParsedTransaction `json:"parsed"`
	Sender   string                      `json:"sender"`
	Selected bool                        `json:"selected"`
}

// ScanSession holds the drafts produced by the most recent inbox scan.
// Draft selection is toggled by index until the user commits.
type ScanSession struct {
	Drafts    []Draft   `json:"drafts"`
	ScannedAt time.Time `json:"scanned_at"`
	Examined  int       `json:"examined"`
}

// SelectedCount reports how many drafts are currently selected.
func (s *ScanSession) SelectedCount() int {
	count := 0
	for _, d := range s.Drafts {
		if d.Selected {
			count++
		}
	}
	return count
}

type ScanResult struct {
	Drafts    []Draft   `json:"drafts"`
	Examined  int       `json:"examined"`
	ScannedAt time.Time `json:"scanned_at"`
}

// SelectedCount reports how many drafts are currently selected.
func (r *ScanResult) SelectedCount() int {
	count := 0
	for _, d := range r.Drafts {
		if d.Selected {
			count++
		}
	}
	return count
}

type CommitResult struct {
	Committed int `json:"committed"`
	Remaining int `json:"remaining"`
}

type IngestMessageRequest struct {
	Sender    string `json:"sender" binding:"required"`
	Body      string `json:"body" binding:"required"`
	Timestamp int64  `json:"timestamp"`
}
