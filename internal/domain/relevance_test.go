package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
)

func TestRelevanceFromDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "identical vectors", distance: 0, want: 100},
		{name: "orthogonal vectors", distance: 1, want: 50},
		{name: "opposite vectors", distance: 2, want: 0},
		{name: "close match", distance: 0.2, want: 90},
		{name: "weak match", distance: 1.5, want: 25},
		{name: "negative distance clamps high", distance: -0.5, want: 100},
		{name: "out of range clamps low", distance: 2.7, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, domain.RelevanceFromDistance(tt.distance), 1e-9)
		})
	}
}
