package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortHitsBreaksTiesByID(t *testing.T) {
	hits := []Hit{
		{ID: "zeta", Score: 0.5},
		{ID: "alpha", Score: 0.5},
		{ID: "top", Score: 0.9},
		{ID: "mid", Score: 0.7},
	}

	sortHits(hits)

	assert.Equal(t, []Hit{
		{ID: "top", Score: 0.9},
		{ID: "mid", Score: 0.7},
		{ID: "alpha", Score: 0.5},
		{ID: "zeta", Score: 0.5},
	}, hits)
}
