package models

import (
	"strings"
	"time"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

type SourceType string

const (
	SourceExcel   SourceType = "excel"
	SourceScraper SourceType = "scraper"
)

func ParseSourceType(raw string) (SourceType, error) {
	switch s := SourceType(strings.ToLower(strings.TrimSpace(raw))); s {
	case SourceExcel, SourceScraper:
		return s, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "source_type must be excel or scraper")
}

type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// IsTerminal reports whether the session can no longer change.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RowError records why one input row was not imported. Row is 1-based.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Session audits one bulk ingestion.
//
// Lifecycle: pending -> processing -> completed | failed. Counters only grow
// and ImportedRecords + FailedRecords never exceeds TotalRecords.
type Session struct {
	ID              id.ImportSessionID
	OwnerID         id.OwnerID
	SourceType      SourceType
	SourceID        string
	FileName        string
	ListName        string
	TotalRecords    int
	ImportedRecords int
	FailedRecords   int
	Status          SessionStatus
	ErrorLog        []RowError
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSession creates a pending session expecting total rows.
func NewSession(sessionID id.ImportSessionID, ownerID id.OwnerID, source SourceType, sourceID, fileName, listName string, total int, now time.Time) *Session {
	return &Session{
		ID:           sessionID,
		OwnerID:      ownerID,
		SourceType:   source,
		SourceID:     sourceID,
		FileName:     fileName,
		ListName:     listName,
		TotalRecords: total,
		Status:       StatusPending,
		ErrorLog:     []RowError{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Session) Start(now time.Time) error {
	if s.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "import session already started")
	}
	s.Status = StatusProcessing
	s.UpdatedAt = now
	return nil
}

// RecordBatch adds one processed batch to the counters. A failed row may
// carry several errors.
func (s *Session) RecordBatch(imported, failed int, rowErrors []RowError, now time.Time) error {
	if s.Status != StatusProcessing {
		return dErrors.New(dErrors.CodeInvariantViolation, "import session is not processing")
	}
	if imported < 0 || failed < 0 || s.ImportedRecords+imported+s.FailedRecords+failed > s.TotalRecords {
		return dErrors.New(dErrors.CodeInvariantViolation, "import counters exceed total records")
	}
	s.ImportedRecords += imported
	s.FailedRecords += failed
	s.ErrorLog = append(s.ErrorLog, rowErrors...)
	s.UpdatedAt = now
	return nil
}

// Finish closes a processing session. It fails when nothing was imported
// from a non-empty input.
func (s *Session) Finish(now time.Time) error {
	if s.Status != StatusProcessing {
		return dErrors.New(dErrors.CodeInvariantViolation, "import session is not processing")
	}
	if s.TotalRecords > 0 && s.ImportedRecords == 0 {
		s.Status = StatusFailed
	} else {
		s.Status = StatusCompleted
	}
	s.UpdatedAt = now
	return nil
}

// Abort fails the session from any non-terminal state and logs the reason
// against row 0.
func (s *Session) Abort(reason string, now time.Time) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = StatusFailed
	s.ErrorLog = append(s.ErrorLog, RowError{Row: 0, Message: reason})
	s.UpdatedAt = now
}

func (s *Session) Clone() *Session {
	c := *s
	c.ErrorLog = append([]RowError(nil), s.ErrorLog...)
	return &c
}
