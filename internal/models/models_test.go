package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergePOIs(t *testing.T) {
	tower := POI{ID: "p1", Label: "Tower", Confidence: 0.9}
	gate := POI{ID: "p2", Label: "Gate", Confidence: 0.7}

	tests := []struct {
		name     string
		current  []POI
		updates  []POI
		expected []POI
	}{
		{
			name:     "replaces matching id in place",
			current:  []POI{tower, gate},
			updates:  []POI{{ID: "p1", Label: "Clock Tower", Confidence: 0.95}},
			expected: []POI{{ID: "p1", Label: "Clock Tower", Confidence: 0.95}, gate},
		},
		{
			name:     "appends unknown ids in order",
			current:  []POI{tower},
			updates:  []POI{{ID: "p9", Label: "Bench"}, {ID: "p3", Label: "Statue"}},
			expected: []POI{tower, {ID: "p9", Label: "Bench"}, {ID: "p3", Label: "Statue"}},
		},
		{
			name:     "empty updates keep current",
			current:  []POI{tower, gate},
			updates:  []POI{},
			expected: []POI{tower, gate},
		},
		{
			name:     "merging into nothing",
			current:  nil,
			updates:  []POI{gate},
			expected: []POI{gate},
		},
		{
			name:     "duplicate update ids collapse to the last one",
			current:  nil,
			updates:  []POI{{ID: "p5", Label: "A"}, {ID: "p5", Label: "B"}},
			expected: []POI{{ID: "p5", Label: "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergePOIs(tt.current, tt.updates))
		})
	}
}

func TestMergePOIsDoesNotMutateInput(t *testing.T) {
	current := []POI{{ID: "p1", Label: "Tower"}}
	MergePOIs(current, []POI{{ID: "p1", Label: "Spire"}})
	assert.Equal(t, "Tower", current[0].Label)
}

func TestMemoryWindow(t *testing.T) {
	s := NewSession("s1", time.Now())
	assert.Nil(t, s.MemoryWindow(3))

	s.Memory = []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, []string{"c", "d", "e"}, s.MemoryWindow(3))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.MemoryWindow(10))
	assert.Nil(t, s.MemoryWindow(0))
}
