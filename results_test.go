package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/eitheror/games/eitheror"
)

func TestParseLimit(t *testing.T) {
	n, err := parseLimit("")
	require.NoError(t, err)
	assert.Equal(t, defaultResults, n)

	n, err = parseLimit("25")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, bad := range []string{"0", "-1", "101", "ten"} {
		_, err := parseLimit(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteResults(t *testing.T) {
	var out bytes.Buffer

	writeResults(&out, []eitheror.Result{
		{
			RoomCode:   "WXYZ",
			FinishedAt: time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC),
			Rounds:     3,
			Standings: []eitheror.Standing{
				{Name: "Alice", Score: 2, Rank: 1, Medal: "🥇"},
				{Name: "Bob", Score: 2, Rank: 1, Medal: "🥇"},
				{Name: "Cara", Score: 0, Rank: 3, Medal: "🥉"},
			},
		},
	})

	table := out.String()
	assert.Contains(t, table, "WXYZ")
	assert.Contains(t, table, "Alice, Bob")
	assert.Contains(t, table, "🥉 Cara 0")
	assert.True(t, strings.Count(table, "\n") > 4)
}
