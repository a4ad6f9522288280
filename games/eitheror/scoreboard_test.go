package eitheror

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   []Standing
	}{
		{
			name:   "empty",
			scores: nil,
			want:   []Standing{},
		},
		{
			name: "tie for first",
			scores: []Score{
				{PlayerID: "4", Name: "Dan", Score: 1},
				{PlayerID: "1", Name: "Alice", Score: 5},
				{PlayerID: "3", Name: "Cara", Score: 3},
				{PlayerID: "2", Name: "Bob", Score: 5},
			},
			want: []Standing{
				{Name: "Alice", Score: 5, Rank: 1, Medal: "🥇"},
				{Name: "Bob", Score: 5, Rank: 1, Medal: "🥇"},
				{Name: "Cara", Score: 3, Rank: 3, Medal: "🥉"},
				{Name: "Dan", Score: 1, Rank: 4, Medal: ""},
			},
		},
		{
			name: "distinct scores",
			scores: []Score{
				{PlayerID: "1", Name: "Alice", Score: 2},
				{PlayerID: "2", Name: "Bob", Score: 4},
				{PlayerID: "3", Name: "Cara", Score: 3},
			},
			want: []Standing{
				{Name: "Bob", Score: 4, Rank: 1, Medal: "🥇"},
				{Name: "Cara", Score: 3, Rank: 2, Medal: "🥈"},
				{Name: "Alice", Score: 2, Rank: 3, Medal: "🥉"},
			},
		},
		{
			name: "tie for second",
			scores: []Score{
				{PlayerID: "1", Name: "Alice", Score: 0},
				{PlayerID: "2", Name: "Bob", Score: 2},
				{PlayerID: "3", Name: "Cara", Score: 2},
				{PlayerID: "4", Name: "Dan", Score: 7},
				{PlayerID: "5", Name: "Eve", Score: 0},
			},
			want: []Standing{
				{Name: "Dan", Score: 7, Rank: 1, Medal: "🥇"},
				{Name: "Bob", Score: 2, Rank: 2, Medal: "🥈"},
				{Name: "Cara", Score: 2, Rank: 2, Medal: "🥈"},
				{Name: "Alice", Score: 0, Rank: 4, Medal: ""},
				{Name: "Eve", Score: 0, Rank: 4, Medal: ""},
			},
		},
		{
			name: "everyone tied",
			scores: []Score{
				{PlayerID: "1", Name: "Alice", Score: 0},
				{PlayerID: "2", Name: "Bob", Score: 0},
			},
			want: []Standing{
				{Name: "Alice", Score: 0, Rank: 1, Medal: "🥇"},
				{Name: "Bob", Score: 0, Rank: 1, Medal: "🥇"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankScores(tt.scores))
		})
	}
}

func TestRankScoresIgnoresInputOrder(t *testing.T) {
	scores := []Score{
		{PlayerID: "1", Name: "Alice", Score: 5},
		{PlayerID: "2", Name: "Bob", Score: 5},
		{PlayerID: "3", Name: "Cara", Score: 3},
		{PlayerID: "4", Name: "Dan", Score: 1},
		{PlayerID: "5", Name: "Eve", Score: 3},
	}
	want := RankScores(scores)

	r := rand.New(rand.NewPCG(3, 4))
	for range 20 {
		shuffled := append([]Score(nil), scores...)
		r.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		assert.Equal(t, want, RankScores(shuffled))
	}
}

func TestRankScoresDoesNotModifyInput(t *testing.T) {
	scores := []Score{
		{PlayerID: "1", Name: "Alice", Score: 1},
		{PlayerID: "2", Name: "Bob", Score: 2},
	}

	RankScores(scores)

	assert.Equal(t, "Alice", scores[0].Name)
}
