package models

import (
	"strings"
	"time"

	dErrors "leadline/pkg/domain-errors"
)

// CallbackDateLayout is the wire format of date_to_call_back.
const CallbackDateLayout = "2006-01-02"

// TransitionPayload is the extra data carried by a status change. It is a
// closed union: LaterPayload when entering later, DefaultPayload otherwise.
type TransitionPayload interface {
	transitionPayload()
}

// LaterPayload is required when the target status is later.
type LaterPayload struct {
	DateToCallBack time.Time
	Notes          string
}

// DefaultPayload serves every other target status.
type DefaultPayload struct {
	Notes string
}

func (LaterPayload) transitionPayload()   {}
func (DefaultPayload) transitionPayload() {}

// NewTransitionPayload picks the payload variant for target. A later target
// without a date is rejected; a date sent with any other target is ignored.
func NewTransitionPayload(target Status, date *time.Time, notes string) (TransitionPayload, error) {
	notes = strings.TrimSpace(notes)
	if target.RequiresCallbackDate() {
		if date == nil || date.IsZero() {
			return nil, ErrCallbackDateRequired()
		}
		return LaterPayload{DateToCallBack: *date, Notes: notes}, nil
	}
	return DefaultPayload{Notes: notes}, nil
}

// ValidateTransition checks that payload satisfies target's requirements.
func ValidateTransition(target Status, payload TransitionPayload) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid target status")
	}
	if !target.RequiresCallbackDate() {
		return nil
	}
	later, ok := payload.(LaterPayload)
	if !ok || later.DateToCallBack.IsZero() {
		return ErrCallbackDateRequired()
	}
	return nil
}

// PayloadNotes returns the notes carried by payload, if any.
func PayloadNotes(payload TransitionPayload) string {
	switch p := payload.(type) {
	case LaterPayload:
		return p.Notes
	case DefaultPayload:
		return p.Notes
	}
	return ""
}

// PayloadCallbackDate returns the callback date carried by a later payload.
func PayloadCallbackDate(payload TransitionPayload) (time.Time, bool) {
	if p, ok := payload.(LaterPayload); ok && !p.DateToCallBack.IsZero() {
		return p.DateToCallBack, true
	}
	return time.Time{}, false
}

func ErrCallbackDateRequired() error {
	return dErrors.New(dErrors.CodeValidation, "callback date required")
}

// ParseCallbackDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns
// the calendar date at UTC midnight.
func ParseCallbackDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(CallbackDateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date_to_call_back must be YYYY-MM-DD")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
