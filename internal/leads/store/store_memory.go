package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

// InMemory is a process-local lead repository used in development and tests.
type InMemory struct {
	mu           sync.RWMutex
	leads        map[id.LeadID]*models.Lead
	interactions []*models.Interaction
	notes        []*models.Note
}

func NewInMemory() *InMemory {
	return &InMemory{leads: make(map[id.LeadID]*models.Lead)}
}

func (s *InMemory) Create(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[lead.ID]; exists {
		return sentinel.ErrConflict
	}
	s.leads[lead.ID] = lead.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ownerID id.OwnerID, leadID id.LeadID) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[leadID]
	if !ok || !lead.IsOwnedBy(ownerID) {
		return nil, sentinel.ErrNotFound
	}
	return lead.Clone(), nil
}

// FindByIDs returns the owner's leads in the order of leadIDs, skipping ids
// that are unknown or foreign.
func (s *InMemory) FindByIDs(_ context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Lead, 0, len(leadIDs))
	for _, leadID := range leadIDs {
		if lead, ok := s.leads[leadID]; ok && lead.IsOwnedBy(ownerID) {
			out = append(out, lead.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, ownerID id.OwnerID, status models.Status) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.bucketLocked(ownerID, status)
	sortByNumber(out)
	return out, nil
}

func (s *InMemory) CountByStatus(_ context.Context, ownerID id.OwnerID, status models.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bucketLocked(ownerID, status)), nil
}

func (s *InMemory) CountsByStatus(_ context.Context, ownerID id.OwnerID) (models.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(models.StatusCounts, len(models.AllStatuses()))
	for _, status := range models.AllStatuses() {
		counts[status] = 0
	}
	for _, lead := range s.leads {
		if lead.IsOwnedBy(ownerID) {
			counts[lead.Status]++
		}
	}
	return counts, nil
}

// CountCallbacksDue counts later leads whose callback date is before the given time.
func (s *InMemory) CountCallbacksDue(_ context.Context, ownerID id.OwnerID, before time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, lead := range s.leads {
		if lead.IsOwnedBy(ownerID) && lead.Status == models.StatusLater &&
			lead.DateToCallBack != nil && lead.DateToCallBack.Before(before) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) List(_ context.Context, ownerID id.OwnerID, filter models.ListFilter) ([]*models.Lead, int, error) {
	filter = filter.Normalized()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	var matched []*models.Lead
	for _, lead := range s.leads {
		if !lead.IsOwnedBy(ownerID) {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if filter.ListName != "" && lead.ListName != filter.ListName {
			continue
		}
		if filter.Provider != "" && lead.Provider != filter.Provider {
			continue
		}
		if search != "" && !matchesSearch(lead, search) {
			continue
		}
		matched = append(matched, lead.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Status != b.Status {
			return statusRank(a.Status) < statusRank(b.Status)
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Lead{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return matched[filter.Offset:end], total, nil
}

func (s *InMemory) Update(_ context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok || !lead.IsOwnedBy(ownerID) {
		return nil, sentinel.ErrNotFound
	}
	updated := lead.Clone()
	updated.Apply(patch)
	if updated.Status == models.StatusLater && updated.DateToCallBack == nil {
		return nil, sentinel.ErrInvalidState
	}
	s.leads[leadID] = updated
	return updated.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, ownerID id.OwnerID, leadID id.LeadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok || !lead.IsOwnedBy(ownerID) {
		return sentinel.ErrNotFound
	}
	delete(s.leads, leadID)
	return nil
}

func (s *InMemory) CreateInteraction(_ context.Context, interaction *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *interaction
	s.interactions = append(s.interactions, &c)
	return nil
}

func (s *InMemory) CreateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *note
	s.notes = append(s.notes, &c)
	return nil
}

func (s *InMemory) ListInteractions(_ context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Interaction
	for _, in := range s.interactions {
		if in.OwnerID == ownerID && in.LeadID == leadID {
			c := *in
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemory) ListNotes(_ context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Note
	for _, n := range s.notes {
		if n.OwnerID == ownerID && n.LeadID == leadID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemory) bucketLocked(ownerID id.OwnerID, status models.Status) []*models.Lead {
	var out []*models.Lead
	for _, lead := range s.leads {
		if lead.IsOwnedBy(ownerID) && lead.Status == status {
			out = append(out, lead.Clone())
		}
	}
	return out
}

func sortByNumber(leads []*models.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		if leads[i].Number != leads[j].Number {
			return leads[i].Number < leads[j].Number
		}
		return leads[i].CreatedAt.Before(leads[j].CreatedAt)
	})
}

func statusRank(s models.Status) int {
	return slices.Index(models.AllStatuses(), s)
}

func matchesSearch(lead *models.Lead, needle string) bool {
	for _, field := range []string{lead.Name, lead.Phone, lead.Address, lead.TypeOfBusiness} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
