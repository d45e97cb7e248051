package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_OrderedPutsPriorityFirst(t *testing.T) {
	s := &Snapshot{
		PriorityItems: []QueueItem{{ID: "p1", Cost: 25}, {ID: "p2", Cost: 25}},
		StandardItems: []QueueItem{{ID: "s1", Cost: 10}},
		Current:       &QueueItem{ID: "c"},
	}
	s.ComputeStats()

	ordered := s.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"p1", "p2", "s1"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})

	assert.Equal(t, Stats{PriorityCount: 2, StandardCount: 1, Total: 3, PendingPoints: 60, HasCurrent: true}, s.Stats)
}

func TestVenue_Cost(t *testing.T) {
	v := Venue{StandardCost: 10, PriorityCost: 25}
	assert.Equal(t, int64(25), v.Cost(LanePriority))
	assert.Equal(t, int64(10), v.Cost(LaneStandard))
}
