package eitheror

import (
	"cmp"
	"slices"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Score is one player's total before ranking.
type Score struct {
	PlayerID string
	Name     string
	Score    int
}

// Standing is a ranked scoreboard row.
type Standing struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
	Medal string `json:"medal"`
}

// RankScores orders scores high to low and assigns standard competition
// ranks: equal scores share a rank and the next rank skips by the size of the
// tie. Ranks 1 to 3 get a medal.
func RankScores(scores []Score) []Standing {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b Score) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.PlayerID, b.PlayerID),
		)
	})

	standings := make([]Standing, 0, len(sorted))
	rank := 0
	for i, s := range sorted {
		if i == 0 || s.Score != sorted[i-1].Score {
			rank = i + 1
		}

		medal := ""
		if rank <= len(medals) {
			medal = medals[rank-1]
		}

		standings = append(standings, Standing{
			Name:  s.Name,
			Score: s.Score,
			Rank:  rank,
			Medal: medal,
		})
	}

	return standings
}
