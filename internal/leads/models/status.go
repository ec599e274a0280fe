package models

import (
	"strings"

	dErrors "leadline/pkg/domain-errors"
)

// Status is a pipeline stage. Any stage may move to any other; signed and
// bad are terminal only by convention.
type Status string

const (
	StatusNew     Status = "new"
	StatusLeads   Status = "leads"
	StatusWorking Status = "working"
	StatusLater   Status = "later"
	StatusSigned  Status = "signed"
	StatusBad     Status = "bad"
)

var allStatuses = []Status{StatusNew, StatusLeads, StatusWorking, StatusLater, StatusSigned, StatusBad}

// AllStatuses lists the stages in pipeline order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusLeads, StatusWorking, StatusLater, StatusSigned, StatusBad:
		return true
	}
	return false
}

// RequiresCallbackDate reports whether entering s needs date_to_call_back.
func (s Status) RequiresCallbackDate() bool {
	return s == StatusLater
}

// ParseStatus accepts a stage name case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid status: must be one of new, leads, working, later, signed, bad")
	}
	return s, nil
}
