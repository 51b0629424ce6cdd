package service

import (
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
)

// proposalStore keeps generated timetables in memory until they are saved
// or expire. Each school has at most one current proposal.
type proposalStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	items   map[string]*dto.TimetableResponse
	current map[string]string
}

func newProposalStore(ttl time.Duration) *proposalStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &proposalStore{
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*dto.TimetableResponse),
		current: make(map[string]string),
	}
}

// Save stores a proposal and makes it the school's current one.
func (s *proposalStore) Save(proposal *dto.TimetableResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.items[proposal.ProposalID] = proposal
	s.current[proposal.SchoolID] = proposal.ProposalID
}

// Get returns a live proposal belonging to schoolID.
func (s *proposalStore) Get(schoolID, id string) (*dto.TimetableResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.items[id]
	if !ok || proposal.SchoolID != schoolID || s.expired(proposal) {
		return nil, false
	}
	return proposal, true
}

// Current returns the school's most recent live proposal.
func (s *proposalStore) Current(schoolID string) (*dto.TimetableResponse, bool) {
	s.mu.RLock()
	id, ok := s.current[schoolID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.Get(schoolID, id)
}

// Forget drops every proposal of a school.
func (s *proposalStore) Forget(schoolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, proposal := range s.items {
		if proposal.SchoolID == schoolID {
			delete(s.items, id)
		}
	}
	delete(s.current, schoolID)
}

func (s *proposalStore) expired(proposal *dto.TimetableResponse) bool {
	return s.now().Sub(proposal.GeneratedAt) > s.ttl
}

func (s *proposalStore) purgeLocked() {
	for id, proposal := range s.items {
		if s.expired(proposal) {
			delete(s.items, id)
			if s.current[proposal.SchoolID] == id {
				delete(s.current, proposal.SchoolID)
			}
		}
	}
}
