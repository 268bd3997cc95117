package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		label string
		want  bool
	}{
		{"full substring", "夏の思い出", "【新刊】夏の思い出 総集編", true},
		{"ascii substring", "foo bar", "the foo bar baz", true},
		{"ascii token", "foo bar", "only foo here", true},
		{"ascii miss", "xyz", "abc def", false},
		{"case folded", "Summer Memories", "SUMMER MEMORIES vol.2", true},
		{"any token", "夏の思い出 サークルA", "サークルA 既刊セット", true},
		{"no overlap", "夏の思い出", "冬の物語", false},
		{"empty query", "", "anything", false},
		{"blank query", "   ", "anything", false},
		{"empty label", "夏", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesQuery(tt.query, tt.label))
		})
	}
}
