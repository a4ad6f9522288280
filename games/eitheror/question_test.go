package eitheror

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQuestionPool(t *testing.T) {
	pool, err := DefaultQuestionPool()
	require.NoError(t, err)

	assert.Equal(t, 17, pool.Len())
	for _, q := range pool.questions {
		assert.NotEmpty(t, q.Prompt)
		assert.NotEmpty(t, q.OptionA)
		assert.NotEmpty(t, q.OptionB)
	}
}

func TestNewQuestionPoolRejectsEmpty(t *testing.T) {
	_, err := NewQuestionPool(nil)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = NewQuestionPool([]Question{{Prompt: "Up or down?", OptionA: "Up"}})
	assert.Error(t, err)
}

func TestParseQuestions(t *testing.T) {
	yamlData := []byte(`
- question: Mountains or beach?
  optionA: Mountains
  optionB: Beach
- question: Sunrise or sunset?
  optionA: Sunrise
  optionB: Sunset
`)

	pool, err := ParseQuestions(yamlData)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, Question{Prompt: "Mountains or beach?", OptionA: "Mountains", OptionB: "Beach"}, pool.questions[0])

	// YAML is a superset of JSON.
	pool, err = ParseQuestions([]byte(`[{"question": "Left or right?", "optionA": "Left", "optionB": "Right"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Len())

	_, err = ParseQuestions([]byte(`question: [`))
	assert.Error(t, err)
}

func TestLoadQuestions(t *testing.T) {
	pool, err := LoadQuestions("")
	require.NoError(t, err)
	assert.Equal(t, 17, pool.Len())

	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {question: Hot or cold?, optionA: Hot, optionB: Cold}\n"), 0o644))

	pool, err = LoadQuestions(path)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Len())

	_, err = LoadQuestions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestQuestionOption(t *testing.T) {
	q := Question{Prompt: "Tea or coffee?", OptionA: "Tea", OptionB: "Coffee"}

	assert.Equal(t, "Tea", q.Option(ChoiceA))
	assert.Equal(t, "Coffee", q.Option(ChoiceB))
}

func TestNextCyclesWithoutRepeats(t *testing.T) {
	pool, err := DefaultQuestionPool()
	require.NoError(t, err)

	intn := rand.New(rand.NewPCG(1, 2)).IntN
	used := map[int]struct{}{}

	for cycle := range 3 {
		seen := map[int]bool{}
		for range pool.Len() {
			idx, q := pool.Next(used, intn)
			assert.False(t, seen[idx], "cycle %d repeated question %d", cycle, idx)
			assert.Equal(t, pool.questions[idx], q)
			seen[idx] = true
		}
		assert.Len(t, seen, pool.Len())
	}
}

func TestNextSingleQuestionNeverFails(t *testing.T) {
	pool, err := NewQuestionPool([]Question{{Prompt: "This or that?", OptionA: "This", OptionB: "That"}})
	require.NoError(t, err)

	used := map[int]struct{}{}
	for range 5 {
		idx, _ := pool.Next(used, rand.IntN)
		assert.Zero(t, idx)
		assert.Len(t, used, 1)
	}
}
