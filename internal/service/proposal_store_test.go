package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
)

func TestProposalStoreCurrentAndExpiry(t *testing.T) {
	store := newProposalStore(time.Minute)
	clock := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	store.Save(&dto.TimetableResponse{ProposalID: "p1", SchoolID: "s1", GeneratedAt: clock})
	store.Save(&dto.TimetableResponse{ProposalID: "p2", SchoolID: "s1", GeneratedAt: clock})

	current, ok := store.Current("s1")
	require.True(t, ok)
	assert.Equal(t, "p2", current.ProposalID)

	_, ok = store.Get("s1", "p1")
	assert.True(t, ok)
	_, ok = store.Get("other", "p1")
	assert.False(t, ok)

	clock = clock.Add(2 * time.Minute)
	_, ok = store.Current("s1")
	assert.False(t, ok)

	store.Save(&dto.TimetableResponse{ProposalID: "p3", SchoolID: "s2", GeneratedAt: clock})
	assert.Len(t, store.items, 1)

	store.Forget("s2")
	_, ok = store.Current("s2")
	assert.False(t, ok)
}
