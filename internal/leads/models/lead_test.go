package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

func TestNewLead(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	ownerID := id.OwnerID(uuid.New())

	t.Run("starts in the new bucket", func(t *testing.T) {
		lead, err := NewLead(id.LeadID(uuid.New()), ownerID, LeadDetails{Name: " Acme Plumbing "}, 4, now)
		require.NoError(t, err)
		assert.Equal(t, StatusNew, lead.Status)
		assert.Equal(t, 4, lead.Number)
		assert.Equal(t, "Acme Plumbing", lead.Name)
		assert.Equal(t, now, lead.CreatedAt)
		assert.True(t, lead.IsOwnedBy(ownerID))
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewLead(id.LeadID(uuid.New()), ownerID, LeadDetails{Name: "   "}, 1, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects non-positive number", func(t *testing.T) {
		_, err := NewLead(id.LeadID(uuid.New()), ownerID, LeadDetails{Name: "Acme"}, 0, now)
		require.Error(t, err)
	})
}

func TestLeadApply(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	lead, err := NewLead(id.LeadID(uuid.New()), id.OwnerID(uuid.New()), LeadDetails{Name: "Acme", Phone: "555"}, 1, now)
	require.NoError(t, err)

	status := StatusLater
	number := 3
	notes := "busy"
	callback := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lead.Apply(LeadPatch{Status: &status, Number: &number, Notes: &notes, DateToCallBack: &callback, UpdatedAt: later})

	assert.Equal(t, StatusLater, lead.Status)
	assert.Equal(t, 3, lead.Number)
	assert.Equal(t, "busy", lead.Notes)
	assert.Equal(t, "555", lead.Phone, "unset fields are untouched")
	require.NotNil(t, lead.DateToCallBack)
	assert.Equal(t, callback, *lead.DateToCallBack)
	assert.Equal(t, later, lead.UpdatedAt)
}

func TestLeadClone_DoesNotShareCallbackDate(t *testing.T) {
	callback := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lead := &Lead{Name: "Acme", DateToCallBack: &callback}

	clone := lead.Clone()
	*clone.DateToCallBack = callback.AddDate(0, 0, 1)

	assert.Equal(t, callback, *lead.DateToCallBack)
}

func TestLeadPatch_IsEmpty(t *testing.T) {
	assert.True(t, LeadPatch{UpdatedAt: time.Now()}.IsEmpty())
	name := "x"
	assert.False(t, LeadPatch{Name: &name}.IsEmpty())
}
